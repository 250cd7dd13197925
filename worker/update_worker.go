package worker

import (
	"context"
	"log/slog"
	"time"

	"hn-mirror/internal/mirror"
)

// Updater is implemented by *mirror.Updater.
type Updater interface {
	Update(ctx context.Context, force bool) (mirror.Stats, error)
}

// UpdateWorker keeps the mirror in sync with the front page.
type UpdateWorker struct {
	Updater  Updater
	Interval time.Duration
}

func (w *UpdateWorker) Start(ctx context.Context) error {
	if w.Interval <= 0 {
		w.Interval = 10 * time.Minute
	}

	// initial run
	w.runOnce(ctx)

	t := time.NewTicker(w.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			w.runOnce(ctx)
		}
	}
}

func (w *UpdateWorker) runOnce(ctx context.Context) {
	stats, err := w.Updater.Update(ctx, false)
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("update-worker: run failed", "error", err)
		}
		return
	}
	for _, e := range stats.Errors {
		slog.Warn("update-worker: item error", "error", e)
	}
	slog.Info("update-worker: run completed", "added", stats.Added, "updated", stats.Updated, "errors", len(stats.Errors))
}
