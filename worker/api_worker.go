package worker

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// APIWorker serves an HTTP handler until its context is cancelled.
type APIWorker struct {
	Addr    string
	Handler http.Handler
}

func (w *APIWorker) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              w.Addr,
		Handler:           w.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		slog.Info("api-worker: listening", "addr", w.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("api-worker: shutdown", "error", err)
		}
		return nil
	}
}
