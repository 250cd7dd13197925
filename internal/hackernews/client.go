package hackernews

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultEndpoint is the front page.
const DefaultEndpoint = "https://news.ycombinator.com/"

// Client fetches and parses the Hacker News front page.
type Client struct {
	endpoint *url.URL
	client   *http.Client
	opts     ParseOptions
}

// NewClient creates a new front page client. If endpoint is empty it defaults
// to DefaultEndpoint. Relative links on the page are resolved against endpoint.
func NewClient(endpoint string, timeout time.Duration, opts ParseOptions) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("hackernews: invalid endpoint %q: %w", endpoint, err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: u,
		client:   &http.Client{Timeout: timeout},
		opts:     opts,
	}, nil
}

// FrontPage downloads the listing page and parses it.
func (c *Client) FrontPage(ctx context.Context) (Listing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint.String(), nil)
	if err != nil {
		return Listing{}, err
	}
	req.Header.Set("User-Agent", "hn-mirror/1.0")
	resp, err := c.client.Do(req)
	if err != nil {
		return Listing{}, fmt.Errorf("hackernews: fetch front page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Listing{}, fmt.Errorf("hackernews: front page status %d", resp.StatusCode)
	}
	listing, err := ParseListing(resp.Body, c.endpoint, c.opts)
	if err != nil {
		return Listing{}, err
	}
	slog.Info("hackernews: parsed front page", "items", len(listing.Items), "errors", len(listing.Errors))
	return listing, nil
}
