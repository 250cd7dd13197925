package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hn-mirror/internal/config"
	"hn-mirror/internal/logger"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	envFile string
	appCfg  config.Config
)

// rootCmd is the base command called without any subcommands.
var rootCmd = &cobra.Command{
	Use:          "hn-mirror",
	Short:        "Hacker News front page mirror",
	Long:         "Keeps a local, enriched copy of the Hacker News front page and serves it over HTTP.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
}

func initConfig() {
	// A missing .env is the common case.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error reading %s: %v\n", envFile, err)
		os.Exit(1)
	}

	v := viper.GetViper()
	v.SetEnvPrefix("HN_MIRROR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, "hn-mirror"))
		v.AddConfigPath("configs")
	}

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			fmt.Fprintf(os.Stderr, "error reading config: %v\n", err)
			os.Exit(1)
		}
	} else {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", v.ConfigFileUsed())
	}

	if err := v.Unmarshal(&appCfg); err != nil {
		fmt.Fprintf(os.Stderr, "error parsing config: %v\n", err)
		os.Exit(1)
	}

	appCfg.FillDefaults()
	if err := appCfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(os.Stderr, appCfg.App.LogLevel)
}

// bindEnvKeys makes secrets settable from the environment even when the
// config file does not mention them; AutomaticEnv only covers known keys.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"app.log_level",
		"storage.driver",
		"storage.postgres_url",
		"redis.addr",
		"redis.username",
		"redis.password",
		"redis.db",
		"openai.api_key",
		"openai.model",
		"openai.base_url",
		"api.addr",
	} {
		_ = v.BindEnv(key)
	}
}

// GetConfig exposes the loaded configuration to subcommands.
func GetConfig() config.Config {
	return appCfg
}
