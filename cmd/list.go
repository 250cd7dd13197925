package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hn-mirror/internal/storage"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var listFormat string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the stored mirror in front page order",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		store, err := storage.Open(ctx, GetConfig())
		if err != nil {
			return err
		}
		defer store.Close()

		items, err := store.List(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		switch listFormat {
		case "yaml":
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(items)
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(items)
		default:
			return fmt.Errorf("unknown format %q (want yaml or json)", listFormat)
		}
	},
}

func init() {
	listCmd.Flags().StringVar(&listFormat, "format", "yaml", "output format: yaml or json")
	rootCmd.AddCommand(listCmd)
}
