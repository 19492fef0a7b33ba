// Package config loads and validates crawler configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	collyfetcher "github.com/JakeFAU/boxoffice-crawler/internal/fetcher/colly"
)

// Config captures every knob of a crawl run.
type Config struct {
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Output  OutputConfig  `mapstructure:"output"`
	Archive ArchiveConfig `mapstructure:"archive"`
	DB      DBConfig      `mapstructure:"db"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// CrawlConfig selects the site, the year range and the fan-out width.
type CrawlConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	StartYear      int    `mapstructure:"start_year"`
	EndYear        int    `mapstructure:"end_year"`
	MaxConcurrency int    `mapstructure:"max_concurrency"`
}

// HTTPConfig configures the fetcher's client, retry and politeness behavior.
type HTTPConfig struct {
	UserAgent            string  `mapstructure:"user_agent"`
	TimeoutSeconds       int     `mapstructure:"timeout_seconds"`
	MaxRetries           int     `mapstructure:"max_retries"`
	BackoffFactorSeconds float64 `mapstructure:"backoff_factor_seconds"`
	BackoffMaxSeconds    float64 `mapstructure:"backoff_max_seconds"`
	RetryStatuses        []int   `mapstructure:"retry_statuses"`
	RequestsPerSecond    float64 `mapstructure:"requests_per_second"`
	RespectRobots        bool    `mapstructure:"respect_robots"`
}

// OutputConfig controls the CSV file and its optional upload.
type OutputConfig struct {
	Path      string `mapstructure:"path"`
	Dedupe    bool   `mapstructure:"dedupe"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	GCSObject string `mapstructure:"gcs_object"`
}

// ArchiveConfig enables raw HTML archiving to disk or GCS.
type ArchiveConfig struct {
	Dir       string `mapstructure:"dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	GCSPrefix string `mapstructure:"gcs_prefix"`
}

// DBConfig controls the optional Postgres sink.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	RunTable string `mapstructure:"run_table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// PubSubConfig holds metadata for the run-completed notification.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// MetricsConfig exposes /metrics and /healthz while a run is in progress.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"start-year":  "crawl.start_year",
	"end-year":    "crawl.end_year",
	"concurrency": "crawl.max_concurrency",
	"output":      "output.path",
	"base-url":    "crawl.base_url",
}

// Load builds a Config from defaults, an optional file, CRAWLER_* env vars
// and any flags that were set, in increasing precedence.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
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

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
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
	v.SetDefault("crawl.base_url", "https://m.the-numbers.com")
	v.SetDefault("crawl.start_year", 2015)
	v.SetDefault("crawl.end_year", 2024)
	v.SetDefault("crawl.max_concurrency", 100)
	v.SetDefault("http.user_agent", collyfetcher.DefaultUserAgent)
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.max_retries", 5)
	v.SetDefault("http.backoff_factor_seconds", 1)
	v.SetDefault("http.backoff_max_seconds", 120)
	v.SetDefault("http.retry_statuses", []int{403, 429, 500, 502, 503, 504})
	v.SetDefault("http.requests_per_second", 0)
	v.SetDefault("http.respect_robots", false)
	v.SetDefault("output.path", "movies.csv")
	v.SetDefault("output.dedupe", true)
	v.SetDefault("output.gcs_bucket", "")
	v.SetDefault("output.gcs_object", "")
	v.SetDefault("archive.dir", "")
	v.SetDefault("archive.gcs_bucket", "")
	v.SetDefault("archive.gcs_prefix", "")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "movies")
	v.SetDefault("db.run_table", "crawl_runs")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("metrics.listen_addr", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Crawl.MaxConcurrency <= 0 {
		return errors.New("crawl.max_concurrency must be > 0")
	}
	if c.Crawl.StartYear < 1000 || c.Crawl.EndYear > 9999 {
		return fmt.Errorf("crawl years must be four digits, got %d..%d", c.Crawl.StartYear, c.Crawl.EndYear)
	}
	if c.Crawl.StartYear > c.Crawl.EndYear {
		return fmt.Errorf("crawl.start_year %d is after crawl.end_year %d", c.Crawl.StartYear, c.Crawl.EndYear)
	}
	u, err := url.Parse(c.Crawl.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("crawl.base_url must be an absolute http(s) URL, got %q", c.Crawl.BaseURL)
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return errors.New("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return errors.New("http.max_retries must be >= 0")
	}
	if c.HTTP.BackoffFactorSeconds < 0 || c.HTTP.BackoffMaxSeconds < 0 {
		return errors.New("http backoff values must be >= 0")
	}
	if c.HTTP.RequestsPerSecond < 0 {
		return errors.New("http.requests_per_second must be >= 0")
	}
	for _, code := range c.HTTP.RetryStatuses {
		if code < 100 || code > 599 {
			return fmt.Errorf("http.retry_statuses contains invalid status %d", code)
		}
	}
	if strings.TrimSpace(c.Output.Path) == "" {
		return errors.New("output.path is required")
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return errors.New("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	if c.Archive.Dir != "" && c.Archive.GCSBucket != "" {
		return errors.New("archive.dir and archive.gcs_bucket are mutually exclusive")
	}
	if c.DB.MaxConns < 0 {
		return errors.New("db.max_conns must be >= 0")
	}
	return nil
}

// Timeout is the per-request HTTP timeout.
func (c HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BackoffFactor is the base of the exponential retry delay.
func (c HTTPConfig) BackoffFactor() time.Duration {
	return time.Duration(c.BackoffFactorSeconds * float64(time.Second))
}

// BackoffMax caps a single retry delay.
func (c HTTPConfig) BackoffMax() time.Duration {
	return time.Duration(c.BackoffMaxSeconds * float64(time.Second))
}

// OutputObject is the GCS object name for the CSV upload, defaulting to the
// local file's base name.
func (c OutputConfig) OutputObject() string {
	if c.GCSObject != "" {
		return c.GCSObject
	}
	parts := strings.Split(strings.ReplaceAll(c.Path, "\\", "/"), "/")
	return parts[len(parts)-1]
}
