package storage

import (
	"context"
	"errors"
	"fmt"

	"hn-mirror/internal/config"
	"hn-mirror/internal/model"
	"hn-mirror/internal/redisclient"
)

// ErrNotFound is returned when an item or image does not exist.
var ErrNotFound = errors.New("storage: not found")

// Store is the union of what the mirror and the API need from a backend.
type Store interface {
	Get(ctx context.Context, url string) (*model.Item, error)
	Add(ctx context.Context, item model.NewsItem, enr model.Enrichment) error
	Update(ctx context.Context, item model.NewsItem) error
	RemoveExcept(ctx context.Context, keep []string) (int, error)
	List(ctx context.Context) ([]model.Item, error)
	AddImage(ctx context.Context, contentType string, data []byte) (string, error)
	GetImage(ctx context.Context, id string) (*model.Image, error)
	Close() error
}

// Open returns the backend selected by cfg.Storage.Driver.
func Open(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.Storage.Driver {
	case "", "redis":
		return NewRedisStore(redisclient.New(cfg.Redis)), nil
	case "postgres":
		return NewPostgresStore(ctx, cfg.Storage.PostgresURL)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Storage.Driver)
	}
}
