package cmd

import (
	"context"
	"encoding/json"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var updateForce bool

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Synchronise the mirror with the front page once",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		updater, store, err := buildUpdater(ctx, GetConfig())
		if err != nil {
			return err
		}
		defer store.Close()

		stats, err := updater.Update(ctx, updateForce)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

func init() {
	updateCmd.Flags().BoolVar(&updateForce, "force", false, "clear the store and re-enrich every listed item")
	rootCmd.AddCommand(updateCmd)
}
