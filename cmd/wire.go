package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"hn-mirror/internal/ai"
	"hn-mirror/internal/config"
	"hn-mirror/internal/hackernews"
	"hn-mirror/internal/imaging"
	"hn-mirror/internal/mirror"
	"hn-mirror/internal/scrape"
	"hn-mirror/internal/storage"

	"golang.org/x/time/rate"
)

// buildUpdater wires the listing client, enricher and store described by cfg.
// The caller owns the returned store and must close it.
func buildUpdater(ctx context.Context, cfg config.Config) (*mirror.Updater, storage.Store, error) {
	hn, err := hackernews.NewClient(cfg.HackerNews.Endpoint, cfg.ListingTimeout(), hackernews.ParseOptions{
		Hosts:              hackernews.NewHostClassifier(cfg.Enrichment.SitesForUsers),
		CommentURLTemplate: cfg.HackerNews.CommentURLTemplate,
	})
	if err != nil {
		return nil, nil, err
	}

	var summarizer ai.Summarizer
	if cfg.OpenAI.APIKey != "" {
		oa, err := ai.NewOpenAI(ai.Config{
			APIKey:   cfg.OpenAI.APIKey,
			Model:    cfg.OpenAI.Model,
			BaseURL:  cfg.OpenAI.BaseURL,
			Language: cfg.OpenAI.Language,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("openai: %w", err)
		}
		summarizer = oa
		slog.Info("wire: AI summaries enabled", "model", cfg.OpenAI.Model)
	}

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	var limiter *rate.Limiter
	if cfg.Enrichment.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Enrichment.RatePerSecond), 1)
	}

	return &mirror.Updater{
		Listing: hn,
		Store:   store,
		Images:  store,
		Enricher: scrape.NewReadability(scrape.Options{
			Timeout:       cfg.EnrichmentTimeout(),
			SummaryLength: cfg.Enrichment.SummaryLength,
			MaxImageBytes: cfg.Enrichment.MaxImageBytes,
			Summarizer:    summarizer,
		}),
		Normalizer: imaging.NewNormalizer(cfg.Enrichment.WebPQuality),
		Limiter:    limiter,
	}, store, nil
}
