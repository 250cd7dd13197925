package mirror

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"hn-mirror/internal/hackernews"
	"hn-mirror/internal/model"
	"hn-mirror/internal/scrape"

	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu       sync.Mutex
	items    map[string]model.Item
	images   map[string]model.Image
	getErr   map[string]error
	getPanic string
	imageErr error
}

func newMemStore() *memStore {
	return &memStore{
		items:  map[string]model.Item{},
		images: map[string]model.Image{},
		getErr: map[string]error{},
	}
}

func (s *memStore) Get(_ context.Context, url string) (*model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if url == s.getPanic {
		panic("corrupt record")
	}
	if err := s.getErr[url]; err != nil {
		return nil, err
	}
	it, ok := s.items[url]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (s *memStore) Add(_ context.Context, item model.NewsItem, enr model.Enrichment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.URL] = model.Item{NewsItem: item, Enrichment: enr}
	return nil
}

func (s *memStore) Update(_ context.Context, item model.NewsItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[item.URL]
	if !ok {
		return errors.New("not found")
	}
	it.NewsItem = item
	s.items[item.URL] = it
	return nil
}

func (s *memStore) RemoveExcept(_ context.Context, keep []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := map[string]bool{}
	for _, u := range keep {
		k[u] = true
	}
	n := 0
	for u := range s.items {
		if !k[u] {
			delete(s.items, u)
			n++
		}
	}
	return n, nil
}

func (s *memStore) AddImage(_ context.Context, contentType string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.imageErr != nil {
		return "", s.imageErr
	}
	id := fmt.Sprintf("img-%d", len(s.images)+1)
	s.images[id] = model.Image{ID: id, ContentType: contentType, Data: data}
	return id, nil
}

func (s *memStore) urls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.items))
	for u := range s.items {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

type fakeListing struct {
	listing hackernews.Listing
	err     error
}

func (f *fakeListing) FrontPage(context.Context) (hackernews.Listing, error) {
	return f.listing, f.err
}

type fakeEnricher struct {
	pages map[string]scrape.Page
	errs  map[string]error
	calls []string
}

func (f *fakeEnricher) Enrich(_ context.Context, url string) (scrape.Page, error) {
	f.calls = append(f.calls, url)
	if url == "https://panic.example" {
		panic("boom")
	}
	p, ok := f.pages[url]
	if !ok {
		p = scrape.Page{Summary: "summary of " + url, FaviconURL: url + "/favicon.ico"}
	}
	return p, f.errs[url]
}

func listingOf(urls ...string) hackernews.Listing {
	var l hackernews.Listing
	for i, u := range urls {
		l.Items = append(l.Items, model.NewsItem{
			Rank:       i,
			Title:      "Title " + u,
			URL:        u,
			Comhead:    "example.com",
			Score:      model.IntPtr(i + 1),
			SubmitTime: "1 hour ago",
		})
	}
	return l
}

func newUpdater(store *memStore, src *fakeListing, enr *fakeEnricher) *Updater {
	return &Updater{Listing: src, Store: store, Images: store, Enricher: enr}
}

func TestUpdateAddsNewAndUpdatesExisting(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.items["https://b.example"] = model.Item{
		NewsItem:   model.NewsItem{URL: "https://b.example", Title: "Old title", Rank: 9},
		Enrichment: model.Enrichment{Summary: "original summary", ImageID: "img-old"},
	}
	enr := &fakeEnricher{}
	u := newUpdater(store, &fakeListing{listing: listingOf("https://a.example", "https://b.example", "https://c.example")}, enr)

	stats, err := u.Update(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Added)
	require.Equal(t, 1, stats.Updated)
	require.Empty(t, stats.Errors)

	b := store.items["https://b.example"]
	require.Equal(t, "Title https://b.example", b.Title)
	require.Equal(t, 1, b.Rank)
	require.Equal(t, "original summary", b.Summary)
	require.Equal(t, "img-old", b.ImageID)

	a := store.items["https://a.example"]
	require.Equal(t, "summary of https://a.example", a.Summary)
	require.Equal(t, "https://a.example/favicon.ico", a.Favicon)
	require.Equal(t, []string{"https://a.example", "https://c.example"}, enr.calls)
}

func TestUpdateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	enr := &fakeEnricher{}
	u := newUpdater(store, &fakeListing{listing: listingOf("https://a", "https://b", "https://c")}, enr)

	first, err := u.Update(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 3, first.Added)

	second, err := u.Update(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 0, second.Added)
	require.Equal(t, 3, second.Updated)
	require.Len(t, enr.calls, 3)
}

func TestUpdateEvictsStaleItems(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	src := &fakeListing{listing: listingOf("https://a", "https://b", "https://c")}
	u := newUpdater(store, src, &fakeEnricher{})

	_, err := u.Update(ctx, false)
	require.NoError(t, err)

	src.listing = listingOf("https://b", "https://d")
	stats, err := u.Update(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Added)
	require.Equal(t, 1, stats.Updated)
	require.Equal(t, []string{"https://b", "https://d"}, store.urls())
}

func TestUpdateForceRebuilds(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.items["https://stale"] = model.Item{NewsItem: model.NewsItem{URL: "https://stale"}}
	store.items["https://a"] = model.Item{
		NewsItem:   model.NewsItem{URL: "https://a"},
		Enrichment: model.Enrichment{Summary: "old"},
	}
	u := newUpdater(store, &fakeListing{listing: listingOf("https://a", "https://b")}, &fakeEnricher{})

	stats, err := u.Update(ctx, true)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Added)
	require.Equal(t, 0, stats.Updated)
	require.Equal(t, []string{"https://a", "https://b"}, store.urls())
	require.Equal(t, "summary of https://a", store.items["https://a"].Summary)
}

func TestUpdateEnrichmentFailureIsIsolated(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	enr := &fakeEnricher{
		pages: map[string]scrape.Page{"https://a": {}},
		errs:  map[string]error{"https://a": errors.New("connection refused")},
	}
	u := newUpdater(store, &fakeListing{listing: listingOf("https://a", "https://b", "https://c")}, enr)

	stats, err := u.Update(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 3, stats.Added)
	require.Len(t, stats.Errors, 1)
	require.Contains(t, stats.Errors[0], "connection refused")
	require.Equal(t, []string{"https://a", "https://b", "https://c"}, store.urls())
	require.Empty(t, store.items["https://a"].Summary)
	require.Equal(t, "summary of https://b", store.items["https://b"].Summary)
}

func TestUpdateKeepsPartialEnrichment(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	enr := &fakeEnricher{
		pages: map[string]scrape.Page{"https://a": {Summary: "partial", FaviconURL: "https://a/favicon.ico"}},
		errs:  map[string]error{"https://a": errors.New("image: status 404")},
	}
	u := newUpdater(store, &fakeListing{listing: listingOf("https://a")}, enr)

	stats, err := u.Update(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Added)
	require.Len(t, stats.Errors, 1)
	require.Equal(t, "partial", store.items["https://a"].Summary)
	require.Equal(t, "https://a/favicon.ico", store.items["https://a"].Favicon)
}

func TestUpdateStoresTopImage(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	enr := &fakeEnricher{pages: map[string]scrape.Page{
		"https://a": {Summary: "s", TopImage: &scrape.TopImage{ContentType: "image/png", Data: []byte("png")}},
	}}
	u := newUpdater(store, &fakeListing{listing: listingOf("https://a")}, enr)

	_, err := u.Update(ctx, false)
	require.NoError(t, err)
	id := store.items["https://a"].ImageID
	require.NotEmpty(t, id)
	require.Equal(t, "image/png", store.images[id].ContentType)
	require.Equal(t, []byte("png"), store.images[id].Data)
}

func TestUpdateImageStoreFailure(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.imageErr = errors.New("disk full")
	enr := &fakeEnricher{pages: map[string]scrape.Page{
		"https://a": {Summary: "s", TopImage: &scrape.TopImage{ContentType: "image/png", Data: []byte("png")}},
	}}
	u := newUpdater(store, &fakeListing{listing: listingOf("https://a", "https://b")}, enr)

	stats, err := u.Update(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Added)
	require.Len(t, stats.Errors, 1)
	require.Contains(t, stats.Errors[0], "disk full")
	require.Equal(t, "s", store.items["https://a"].Summary)
	require.Empty(t, store.items["https://a"].ImageID)
}

func TestUpdateListingFailureIsFatal(t *testing.T) {
	store := newMemStore()
	store.items["https://keep"] = model.Item{NewsItem: model.NewsItem{URL: "https://keep"}}
	u := newUpdater(store, &fakeListing{err: hackernews.ErrNoListing}, &fakeEnricher{})

	_, err := u.Update(context.Background(), false)
	require.ErrorIs(t, err, hackernews.ErrNoListing)
	require.Equal(t, []string{"https://keep"}, store.urls())
}

func TestUpdateEmptyListingSkipsEviction(t *testing.T) {
	store := newMemStore()
	store.items["https://keep"] = model.Item{NewsItem: model.NewsItem{URL: "https://keep"}}
	src := &fakeListing{listing: hackernews.Listing{
		Errors: []error{&hackernews.ParseError{Rank: 0, Reason: "missing title row"}},
	}}
	u := newUpdater(store, src, &fakeEnricher{})

	stats, err := u.Update(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, []string{"hackernews: item 0: missing title row"}, stats.Errors)
	require.Equal(t, []string{"https://keep"}, store.urls())
}

func TestUpdateLookupFailureContinues(t *testing.T) {
	store := newMemStore()
	store.getErr["https://a"] = errors.New("redis timeout")
	u := newUpdater(store, &fakeListing{listing: listingOf("https://a", "https://b")}, &fakeEnricher{})

	stats, err := u.Update(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Added)
	require.Len(t, stats.Errors, 1)
	require.Contains(t, stats.Errors[0], "redis timeout")
	require.Equal(t, []string{"https://b"}, store.urls())
}

func TestUpdateEnricherPanicStillAddsItem(t *testing.T) {
	store := newMemStore()
	u := newUpdater(store, &fakeListing{listing: listingOf("https://panic.example", "https://b")}, &fakeEnricher{})

	stats, err := u.Update(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Added)
	require.Len(t, stats.Errors, 1)
	require.Contains(t, stats.Errors[0], "panic: boom")
	require.Equal(t, []string{"https://b", "https://panic.example"}, store.urls())
	require.Equal(t, model.Enrichment{}, store.items["https://panic.example"].Enrichment)
	require.Equal(t, "summary of https://b", store.items["https://b"].Summary)
}

func TestUpdateRecoversFromStorePanic(t *testing.T) {
	store := newMemStore()
	store.getPanic = "https://a"
	u := newUpdater(store, &fakeListing{listing: listingOf("https://a", "https://b")}, &fakeEnricher{})

	stats, err := u.Update(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Added)
	require.Len(t, stats.Errors, 1)
	require.Contains(t, stats.Errors[0], "panic: corrupt record")
	require.Equal(t, []string{"https://b"}, store.urls())
}

func TestUpdateKeepsItemsThatFailedExtraction(t *testing.T) {
	store := newMemStore()
	store.items["https://b"] = model.Item{
		NewsItem:   model.NewsItem{URL: "https://b", Title: "B", SubmitTime: "1 hour ago"},
		Enrichment: model.Enrichment{Summary: "kept"},
	}
	store.items["https://gone"] = model.Item{NewsItem: model.NewsItem{URL: "https://gone", Title: "Gone"}}
	listing := listingOf("https://a")
	listing.Errors = []error{&hackernews.ParseError{Rank: 1, URL: "https://b", Reason: "no submit time"}}
	enr := &fakeEnricher{}
	u := newUpdater(store, &fakeListing{listing: listing}, enr)

	stats, err := u.Update(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Added)
	require.Equal(t, []string{"hackernews: item 1: no submit time"}, stats.Errors)
	require.Equal(t, []string{"https://a", "https://b"}, store.urls())
	require.Equal(t, "kept", store.items["https://b"].Summary)
	require.Equal(t, []string{"https://a"}, enr.calls)
}

func TestUpdateWithoutEnricher(t *testing.T) {
	store := newMemStore()
	u := &Updater{Listing: &fakeListing{listing: listingOf("https://a")}, Store: store}

	stats, err := u.Update(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Added)
	require.Equal(t, model.Enrichment{}, store.items["https://a"].Enrichment)
}
