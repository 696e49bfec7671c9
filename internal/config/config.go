// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/catalogue-titles/internal/crawler"
)

// Output backends.
const (
	BackendLocal  = "local"
	BackendMemory = "memory"
	BackendGCS    = "gcs"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Catalogue CatalogueConfig `mapstructure:"catalogue"`
	Extract   ExtractConfig   `mapstructure:"extract"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Output    OutputConfig    `mapstructure:"output"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// CatalogueConfig describes which listing pages are scraped.
type CatalogueConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	PageCount      int    `mapstructure:"page_count"`
	IndexPath      string `mapstructure:"index_path"`
	PagePathFormat string `mapstructure:"page_path_format"`
}

// ExtractConfig controls how titles are located and filtered.
type ExtractConfig struct {
	Selector       string `mapstructure:"selector"`
	Attribute      string `mapstructure:"attribute"`
	MinTitleLength int    `mapstructure:"min_title_length"`
}

// CrawlerConfig governs the worker pool and request identity.
type CrawlerConfig struct {
	Concurrency   int    `mapstructure:"concurrency"`
	UserAgent     string `mapstructure:"user_agent"`
	RespectRobots bool   `mapstructure:"respect_robots"`
}

// RateLimitConfig configures the shared token bucket.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// HTTPConfig configures the HTTP client.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// OutputConfig selects where the results document is written.
type OutputConfig struct {
	Backend   string `mapstructure:"backend"`
	Path      string `mapstructure:"path"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Order     string `mapstructure:"order"`
}

// PubSubConfig holds metadata for run-summary notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// MetricsConfig configures the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("catalogue.base_url", "https://books.toscrape.com/")
	v.SetDefault("catalogue.page_count", 5)
	v.SetDefault("catalogue.index_path", crawler.DefaultIndexPath)
	v.SetDefault("catalogue.page_path_format", crawler.DefaultPagePathFormat)
	v.SetDefault("extract.selector", "h3 a")
	v.SetDefault("extract.attribute", "title")
	v.SetDefault("extract.min_title_length", 4)
	v.SetDefault("crawler.concurrency", 5)
	v.SetDefault("crawler.user_agent", "catalogue-titles/0.1")
	v.SetDefault("crawler.respect_robots", false)
	v.SetDefault("rate_limit.requests_per_second", 1.0)
	v.SetDefault("rate_limit.burst", 1)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("output.backend", BackendLocal)
	v.SetDefault("output.path", "titles.json")
	v.SetDefault("output.gcs_bucket", "")
	v.SetDefault("output.order", string(crawler.OrderPage))
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Catalogue.BaseURL) == "" {
		return fmt.Errorf("catalogue.base_url is required")
	}
	u, err := url.Parse(c.Catalogue.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("catalogue.base_url must be an absolute http(s) URL: %q", c.Catalogue.BaseURL)
	}
	if c.Catalogue.PageCount < 0 {
		return fmt.Errorf("catalogue.page_count must be >= 0")
	}
	if c.Extract.MinTitleLength < 0 {
		return fmt.Errorf("extract.min_title_length must be >= 0")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("rate_limit.requests_per_second must be >= 0")
	}
	if c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit.burst must be >= 0")
	}
	if rps := c.RateLimit.RequestsPerSecond; rps > 0 && float64(c.RateLimit.Burst) > math.Max(1, rps) {
		return fmt.Errorf("rate_limit.burst %d would let more than %g requests start in one second", c.RateLimit.Burst, rps)
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if strings.TrimSpace(c.Output.Path) == "" {
		return fmt.Errorf("output.path is required")
	}
	switch c.Output.Backend {
	case BackendLocal, BackendMemory:
	case BackendGCS:
		if c.Output.GCSBucket == "" {
			return fmt.Errorf("output.gcs_bucket must be set when output.backend is %q", BackendGCS)
		}
	default:
		return fmt.Errorf("output.backend must be one of local, memory, gcs: %q", c.Output.Backend)
	}
	if _, err := crawler.ParseOrder(c.Output.Order); err != nil {
		return fmt.Errorf("output.order: %w", err)
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	return nil
}

// RequestTimeout converts the HTTP timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// OutputOrder returns the parsed output order. Validate guarantees it parses.
func (c Config) OutputOrder() crawler.Order {
	order, err := crawler.ParseOrder(c.Output.Order)
	if err != nil {
		return crawler.OrderPage
	}
	return order
}

// CatalogueSpec converts the catalogue section into the page-building input.
func (c Config) CatalogueSpec() crawler.CatalogueSpec {
	return crawler.CatalogueSpec{
		BaseURL:        c.Catalogue.BaseURL,
		PageCount:      c.Catalogue.PageCount,
		IndexPath:      c.Catalogue.IndexPath,
		PagePathFormat: c.Catalogue.PagePathFormat,
	}
}
