package config

import (
	"fmt"
	"strings"
	"time"
)

// AppConfig holds application-level settings.
type AppConfig struct {
	LogLevel string `mapstructure:"log_level"`
}

// StorageConfig selects the storage backend.
type StorageConfig struct {
	Driver      string `mapstructure:"driver"` // redis or postgres
	PostgresURL string `mapstructure:"postgres_url"`
}

// RedisConfig holds redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// HackerNewsConfig controls the listing source.
type HackerNewsConfig struct {
	Endpoint           string `mapstructure:"endpoint"`
	CommentURLTemplate string `mapstructure:"comment_url_template"` // %s is the item id
	FetchInterval      string `mapstructure:"fetch_interval"`       // duration string, e.g., "10m"
	Timeout            string `mapstructure:"timeout"`
}

// EnrichmentConfig controls how new items are enriched.
type EnrichmentConfig struct {
	SummaryLength int      `mapstructure:"summary_length"`
	Timeout       string   `mapstructure:"timeout"`
	RatePerSecond float64  `mapstructure:"rate_per_second"`
	MaxImageBytes int64    `mapstructure:"max_image_bytes"`
	WebPQuality   int      `mapstructure:"webp_quality"` // 0 keeps images as downloaded
	SitesForUsers []string `mapstructure:"sites_for_users"`
}

// OpenAIConfig enables AI summaries when APIKey is set.
type OpenAIConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"base_url"`
	Language string `mapstructure:"language"`
}

// APIConfig controls the read-only HTTP API.
type APIConfig struct {
	Addr            string `mapstructure:"addr"`
	FeedTitle       string `mapstructure:"feed_title"`
	FeedLink        string `mapstructure:"feed_link"`
	FeedDescription string `mapstructure:"feed_description"`
}

// Config is the top-level configuration structure.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Redis      RedisConfig      `mapstructure:"redis"`
	HackerNews HackerNewsConfig `mapstructure:"hackernews"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	API        APIConfig        `mapstructure:"api"`
}

// DefaultSitesForUsers are hosting platforms where the first path segment
// names the author.
var DefaultSitesForUsers = []string{
	"github.com",
	"medium.com",
	"twitter.com",
	"x.com",
	"substack.com",
	"blogspot.com",
	"wordpress.com",
	"tumblr.com",
}

// FillDefaults applies default values if not provided.
func (c *Config) FillDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "redis"
	}
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if c.Redis.Addr == "" {
		c.Redis.Addr = "127.0.0.1:6379"
	}
	if c.HackerNews.Endpoint == "" {
		c.HackerNews.Endpoint = "https://news.ycombinator.com/"
	}
	if c.HackerNews.CommentURLTemplate == "" {
		c.HackerNews.CommentURLTemplate = "http://cheeaun.github.io/hackerweb/#/item/%s"
	}
	if c.HackerNews.FetchInterval == "" {
		c.HackerNews.FetchInterval = "10m"
	}
	if c.HackerNews.Timeout == "" {
		c.HackerNews.Timeout = "15s"
	}
	if c.Enrichment.SummaryLength == 0 {
		c.Enrichment.SummaryLength = 300
	}
	if c.Enrichment.Timeout == "" {
		c.Enrichment.Timeout = "20s"
	}
	if c.Enrichment.RatePerSecond == 0 {
		c.Enrichment.RatePerSecond = 2
	}
	if c.Enrichment.MaxImageBytes == 0 {
		c.Enrichment.MaxImageBytes = 2 << 20
	}
	if c.Enrichment.SitesForUsers == nil {
		c.Enrichment.SitesForUsers = DefaultSitesForUsers
	}
	if c.API.Addr == "" {
		c.API.Addr = ":8080"
	}
	if c.API.FeedTitle == "" {
		c.API.FeedTitle = "Hacker News mirror"
	}
	if c.API.FeedLink == "" {
		c.API.FeedLink = "http://localhost:8080"
	}
	if c.API.FeedDescription == "" {
		c.API.FeedDescription = "The current Hacker News front page"
	}
}

// Validate checks values that FillDefaults cannot repair.
func (c *Config) Validate() error {
	for name, d := range map[string]string{
		"hackernews.fetch_interval": c.HackerNews.FetchInterval,
		"hackernews.timeout":        c.HackerNews.Timeout,
		"enrichment.timeout":        c.Enrichment.Timeout,
	} {
		v, err := time.ParseDuration(d)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if v <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if !strings.Contains(c.HackerNews.CommentURLTemplate, "%s") {
		return fmt.Errorf("hackernews.comment_url_template must contain %%s")
	}
	if c.Enrichment.RatePerSecond < 0 {
		return fmt.Errorf("enrichment.rate_per_second cannot be negative")
	}
	switch c.Storage.Driver {
	case "redis":
	case "postgres":
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("storage.postgres_url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	return nil
}

// FetchInterval returns the parsed hackernews.fetch_interval.
func (c *Config) FetchInterval() time.Duration {
	return mustDuration(c.HackerNews.FetchInterval, 10*time.Minute)
}

// ListingTimeout returns the parsed hackernews.timeout.
func (c *Config) ListingTimeout() time.Duration {
	return mustDuration(c.HackerNews.Timeout, 15*time.Second)
}

// EnrichmentTimeout returns the parsed enrichment.timeout.
func (c *Config) EnrichmentTimeout() time.Duration {
	return mustDuration(c.Enrichment.Timeout, 20*time.Second)
}

func mustDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
