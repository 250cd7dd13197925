package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"hn-mirror/internal/api"
	"hn-mirror/worker"

	"github.com/spf13/cobra"
)

var serveNoSync bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the periodic updater and the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		updater, store, err := buildUpdater(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		srv := api.New(store, updater, api.FeedInfo{
			Title:       cfg.API.FeedTitle,
			Link:        cfg.API.FeedLink,
			Description: cfg.API.FeedDescription,
		})

		ws := []worker.Worker{&worker.APIWorker{Addr: cfg.API.Addr, Handler: srv.Router()}}
		if !serveNoSync {
			slog.Info("starting front page updater", "interval", cfg.FetchInterval())
			ws = append(ws, &worker.UpdateWorker{Updater: updater, Interval: cfg.FetchInterval()})
		}
		mgr := worker.NewManager(ws...)

		// Signal handling for systemd
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			s := <-sigc
			slog.Info("received signal, shutting down", "signal", s.String())
			cancel()
		}()

		return mgr.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoSync, "no-sync", false, "serve the stored mirror without periodic updates")
	rootCmd.AddCommand(serveCmd)
}
