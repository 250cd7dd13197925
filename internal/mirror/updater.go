package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"hn-mirror/internal/hackernews"
	"hn-mirror/internal/imaging"
	"hn-mirror/internal/model"
	"hn-mirror/internal/scrape"

	"golang.org/x/time/rate"
)

// ListingSource returns the current front page.
type ListingSource interface {
	FrontPage(ctx context.Context) (hackernews.Listing, error)
}

// Store persists news items keyed by URL.
type Store interface {
	Get(ctx context.Context, url string) (*model.Item, error)
	Add(ctx context.Context, item model.NewsItem, enr model.Enrichment) error
	Update(ctx context.Context, item model.NewsItem) error
	RemoveExcept(ctx context.Context, keep []string) (int, error)
}

// ImageStore persists top images.
type ImageStore interface {
	AddImage(ctx context.Context, contentType string, data []byte) (string, error)
}

// Stats summarises one update run.
type Stats struct {
	Updated int      `json:"updated"`
	Added   int      `json:"added"`
	Errors  []string `json:"errors"`
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeUpdated
	outcomeAdded
)

// itemResult is the end state of one listing record. Err may be set for any
// outcome: an added item can carry an enrichment error.
type itemResult struct {
	outcome outcome
	err     error
}

func (s *Stats) record(r itemResult) {
	switch r.outcome {
	case outcomeUpdated:
		s.Updated++
	case outcomeAdded:
		s.Added++
	}
	if r.err != nil {
		s.Errors = append(s.Errors, r.err.Error())
	}
}

// Updater reconciles the stored mirror with the live front page.
type Updater struct {
	Listing    ListingSource
	Store      Store
	Images     ImageStore          // optional; top images are dropped without it
	Enricher   scrape.Enricher     // optional; new items are stored unenriched without it
	Normalizer *imaging.Normalizer // optional
	Limiter    *rate.Limiter       // optional; paces enrichment fetches

	mu sync.Mutex
}

// Update runs one synchronisation pass. With force the store is cleared first
// and every listed item is treated as new. Only a failure to obtain the listing
// (or to clear the store) is returned as an error; per-item problems end up in
// Stats.Errors.
func (u *Updater) Update(ctx context.Context, force bool) (Stats, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	start := time.Now()
	stats := Stats{Errors: []string{}}

	if force {
		n, err := u.Store.RemoveExcept(ctx, nil)
		if err != nil {
			return stats, fmt.Errorf("mirror: clear store: %w", err)
		}
		slog.Info("mirror: cleared store", "removed", n)
	}

	listing, err := u.Listing.FrontPage(ctx)
	if err != nil {
		return stats, fmt.Errorf("mirror: fetch listing: %w", err)
	}
	for _, perr := range listing.Errors {
		slog.Warn("mirror: skipped unparseable item", "error", perr)
		stats.Errors = append(stats.Errors, perr.Error())
	}

	for _, item := range listing.Items {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.record(u.process(ctx, item))
	}

	if !force {
		u.evict(ctx, listing, &stats)
	}

	slog.Info("mirror: update completed",
		"force", force,
		"added", stats.Added,
		"updated", stats.Updated,
		"errors", len(stats.Errors),
		"duration", time.Since(start),
	)
	return stats, nil
}

func (u *Updater) evict(ctx context.Context, listing hackernews.Listing, stats *Stats) {
	// An empty listing is far more likely a transient parse problem than an
	// empty front page.
	keep := listing.URLs()
	if len(keep) == 0 {
		slog.Warn("mirror: listing has no items, skipping eviction")
		return
	}
	n, err := u.Store.RemoveExcept(ctx, keep)
	if err != nil {
		slog.Error("mirror: evict stale items", "error", err)
		stats.Errors = append(stats.Errors, fmt.Sprintf("evict stale items: %v", err))
		return
	}
	if n > 0 {
		slog.Info("mirror: evicted stale items", "removed", n)
	}
}

func (u *Updater) process(ctx context.Context, item model.NewsItem) (res itemResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("mirror: panic while processing item", "url", item.URL, "panic", r)
			res = itemResult{outcome: outcomeFailed, err: fmt.Errorf("process %s: panic: %v", item.URL, r)}
		}
	}()

	existing, err := u.Store.Get(ctx, item.URL)
	if err != nil {
		slog.Error("mirror: lookup item", "url", item.URL, "error", err)
		return itemResult{outcome: outcomeFailed, err: fmt.Errorf("lookup %s: %w", item.URL, err)}
	}
	if existing != nil {
		slog.Info("mirror: updating", "url", item.URL)
		if err := u.Store.Update(ctx, item); err != nil {
			slog.Error("mirror: update item", "url", item.URL, "error", err)
			return itemResult{outcome: outcomeFailed, err: fmt.Errorf("update %s: %w", item.URL, err)}
		}
		return itemResult{outcome: outcomeUpdated}
	}

	slog.Info("mirror: fetching", "url", item.URL)
	enr, enrichErr := u.enrich(ctx, item.URL)
	if err := u.Store.Add(ctx, item, enr); err != nil {
		slog.Error("mirror: add item", "url", item.URL, "error", err)
		return itemResult{outcome: outcomeFailed, err: errors.Join(enrichErr, fmt.Errorf("add %s: %w", item.URL, err))}
	}
	return itemResult{outcome: outcomeAdded, err: enrichErr}
}

// enrich returns whatever enrichment could be derived for url. A non-nil
// error describes everything that went wrong, as a single error. A panic in
// the enricher or image pipeline is reported as that error.
func (u *Updater) enrich(ctx context.Context, url string) (enr model.Enrichment, err error) {
	if u.Enricher == nil {
		return enr, nil
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("mirror: panic while enriching", "url", url, "panic", r)
			err = fmt.Errorf("enrich %s: panic: %v", url, r)
		}
	}()
	if u.Limiter != nil {
		if err := u.Limiter.Wait(ctx); err != nil {
			return enr, fmt.Errorf("enrich %s: %w", url, err)
		}
	}

	page, err := u.Enricher.Enrich(ctx, url)
	enr.Summary = page.Summary
	enr.Favicon = page.FaviconURL
	if page.TopImage != nil && u.Images != nil {
		ct, data := u.Normalizer.Normalize(page.TopImage.ContentType, page.TopImage.Data)
		id, imgErr := u.Images.AddImage(ctx, ct, data)
		if imgErr != nil {
			err = errors.Join(err, fmt.Errorf("store image: %w", imgErr))
		} else {
			enr.ImageID = id
		}
	}
	if err != nil {
		slog.Error("mirror: failed to enrich", "url", url, "error", err)
		return enr, fmt.Errorf("enrich %s: %w", url, err)
	}
	return enr, nil
}
