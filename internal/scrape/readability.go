package scrape

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hn-mirror/internal/ai"

	readability "github.com/go-shiori/go-readability"
)

const maxPageBytes = 5 << 20

// TopImage is the representative image of an article.
type TopImage struct {
	ContentType string
	Data        []byte
}

// Page is the content derived from one article URL.
type Page struct {
	Summary    string
	FaviconURL string
	TopImage   *TopImage
}

// Enricher derives summary, favicon and top image for an article URL.
// Implementations may return a partially filled Page together with an error.
type Enricher interface {
	Enrich(ctx context.Context, rawURL string) (Page, error)
}

// Options configures the readability enricher.
type Options struct {
	Timeout       time.Duration
	SummaryLength int
	MaxImageBytes int64
	Summarizer    ai.Summarizer // optional
}

// Readability implements Enricher with go-readability.
type Readability struct {
	http          *http.Client
	summaryLength int
	maxImageBytes int64
	summarizer    ai.Summarizer
}

// NewReadability creates a new enricher.
func NewReadability(opts Options) *Readability {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.SummaryLength <= 0 {
		opts.SummaryLength = 300
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = 2 << 20
	}
	return &Readability{
		http:          &http.Client{Timeout: opts.Timeout},
		summaryLength: opts.SummaryLength,
		maxImageBytes: opts.MaxImageBytes,
		summarizer:    opts.Summarizer,
	}
}

// Enrich fetches rawURL and extracts its summary, favicon and top image.
func (r *Readability) Enrich(ctx context.Context, rawURL string) (Page, error) {
	var page Page
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return page, fmt.Errorf("scrape: invalid url %q", rawURL)
	}
	page.FaviconURL = (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/favicon.ico"}).String()

	resp, err := r.get(ctx, rawURL, "text/html,application/xhtml+xml")
	if err != nil {
		return page, err
	}
	defer resp.Body.Close()
	if ct := mediaType(resp.Header.Get("Content-Type")); ct != "" && !strings.Contains(ct, "html") {
		return page, fmt.Errorf("scrape: %s is not html (%s)", rawURL, ct)
	}
	base := resp.Request.URL
	article, err := readability.FromReader(io.LimitReader(resp.Body, maxPageBytes), base)
	if err != nil {
		return page, fmt.Errorf("scrape: readability %s: %w", rawURL, err)
	}

	var errs []error
	page.Summary = ai.Truncate(collapseSpace(article.Excerpt), r.summaryLength)
	if page.Summary == "" {
		page.Summary = ai.Truncate(collapseSpace(article.TextContent), r.summaryLength)
	}
	if r.summarizer != nil {
		s, err := r.summarizer.SummarizeItem(ctx, article.Title, article.TextContent, r.summaryLength)
		if err != nil {
			errs = append(errs, fmt.Errorf("scrape: summarize %s: %w", rawURL, err))
		} else if s != "" {
			page.Summary = s
		}
	}
	if fav := resolve(base, article.Favicon); fav != "" {
		page.FaviconURL = fav
	}
	if img := resolve(base, article.Image); img != "" {
		top, err := r.fetchImage(ctx, img)
		if err != nil {
			errs = append(errs, err)
		} else {
			page.TopImage = top
		}
	}
	slog.Debug("scrape: enriched", "url", rawURL, "summary_len", len(page.Summary), "has_image", page.TopImage != nil)
	return page, errors.Join(errs...)
}

func (r *Readability) fetchImage(ctx context.Context, imgURL string) (*TopImage, error) {
	resp, err := r.get(ctx, imgURL, "image/*")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, r.maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("scrape: read image %s: %w", imgURL, err)
	}
	if int64(len(data)) > r.maxImageBytes {
		return nil, fmt.Errorf("scrape: image %s exceeds %d bytes", imgURL, r.maxImageBytes)
	}
	ct := mediaType(resp.Header.Get("Content-Type"))
	if !strings.HasPrefix(ct, "image/") {
		ct = mediaType(http.DetectContentType(data))
	}
	if !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("scrape: %s is not an image (%s)", imgURL, ct)
	}
	return &TopImage{ContentType: ct, Data: bytes.Clone(data)}, nil
}

func (r *Readability) get(ctx context.Context, rawURL, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; hn-mirror/1.0)")
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scrape: get %s: %w", rawURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("scrape: get %s: status %d", rawURL, resp.StatusCode)
	}
	return resp, nil
}

func mediaType(v string) string {
	mt, _, err := mime.ParseMediaType(v)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(v))
	}
	return mt
}

func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
