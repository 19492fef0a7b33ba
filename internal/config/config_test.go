package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	collyfetcher "github.com/JakeFAU/boxoffice-crawler/internal/fetcher/colly"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "https://m.the-numbers.com", cfg.Crawl.BaseURL)
	assert.Equal(t, 2015, cfg.Crawl.StartYear)
	assert.Equal(t, 2024, cfg.Crawl.EndYear)
	assert.Equal(t, 100, cfg.Crawl.MaxConcurrency)
	assert.Equal(t, 5, cfg.HTTP.MaxRetries)
	assert.Equal(t, []int{403, 429, 500, 502, 503, 504}, cfg.HTTP.RetryStatuses)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout())
	assert.Equal(t, time.Second, cfg.HTTP.BackoffFactor())
	assert.Equal(t, 2*time.Minute, cfg.HTTP.BackoffMax())
	assert.Equal(t, collyfetcher.DefaultUserAgent, cfg.HTTP.UserAgent)
	assert.Equal(t, "movies.csv", cfg.Output.Path)
	assert.True(t, cfg.Output.Dedupe)
	assert.Equal(t, "movies", cfg.DB.Table)
	assert.True(t, cfg.Logging.Development)
}

func TestLoadWithFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	configYAML := `
crawl:
  start_year: 2018
  end_year: 2019
  max_concurrency: 8
http:
  max_retries: 2
  backoff_factor_seconds: 0.5
  retry_statuses: [429, 503]
  requests_per_second: 4
output:
  path: out/films.csv
  dedupe: false
  gcs_bucket: exports
pubsub:
  project_id: proj
  topic_name: runs
logging:
  development: false
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, 2018, cfg.Crawl.StartYear)
	assert.Equal(t, 2019, cfg.Crawl.EndYear)
	assert.Equal(t, 8, cfg.Crawl.MaxConcurrency)
	assert.Equal(t, 2, cfg.HTTP.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.HTTP.BackoffFactor())
	assert.Equal(t, []int{429, 503}, cfg.HTTP.RetryStatuses)
	assert.InDelta(t, 4.0, cfg.HTTP.RequestsPerSecond, 1e-9)
	assert.False(t, cfg.Output.Dedupe)
	assert.Equal(t, "films.csv", cfg.Output.OutputObject())
	assert.Equal(t, "runs", cfg.PubSub.TopicName)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadEnvAndFlags(t *testing.T) {
	t.Setenv("CRAWLER_CRAWL_START_YEAR", "2001")
	t.Setenv("CRAWLER_CRAWL_END_YEAR", "2003")
	t.Setenv("CRAWLER_HTTP_MAX_RETRIES", "1")

	flags := pflag.NewFlagSet("crawl", pflag.ContinueOnError)
	flags.Int("start-year", 0, "")
	flags.Int("end-year", 0, "")
	flags.Int("concurrency", 0, "")
	require.NoError(t, flags.Parse([]string{"--end-year=2005", "--concurrency=3"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, 2001, cfg.Crawl.StartYear, "env applies when flag is unset")
	assert.Equal(t, 2005, cfg.Crawl.EndYear, "flag beats env")
	assert.Equal(t, 3, cfg.Crawl.MaxConcurrency)
	assert.Equal(t, 1, cfg.HTTP.MaxRetries)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.Error(t, err)
}

func validConfig() Config {
	return Config{
		Crawl: CrawlConfig{
			BaseURL:        "https://m.the-numbers.com",
			StartYear:      2015,
			EndYear:        2024,
			MaxConcurrency: 100,
		},
		HTTP:   HTTPConfig{TimeoutSeconds: 30, MaxRetries: 5, RetryStatuses: []int{503}},
		Output: OutputConfig{Path: "movies.csv"},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, validConfig().Validate())

	cases := map[string]func(*Config){
		"zero concurrency":    func(c *Config) { c.Crawl.MaxConcurrency = 0 },
		"three digit year":    func(c *Config) { c.Crawl.StartYear = 999 },
		"five digit year":     func(c *Config) { c.Crawl.EndYear = 10000 },
		"reversed range":      func(c *Config) { c.Crawl.StartYear, c.Crawl.EndYear = 2020, 2019 },
		"relative base":       func(c *Config) { c.Crawl.BaseURL = "/movies" },
		"ftp base":            func(c *Config) { c.Crawl.BaseURL = "ftp://m.the-numbers.com" },
		"zero timeout":        func(c *Config) { c.HTTP.TimeoutSeconds = 0 },
		"negative retries":    func(c *Config) { c.HTTP.MaxRetries = -1 },
		"negative rps":        func(c *Config) { c.HTTP.RequestsPerSecond = -1 },
		"bad status":          func(c *Config) { c.HTTP.RetryStatuses = []int{42} },
		"empty output":        func(c *Config) { c.Output.Path = " " },
		"topic without proj":  func(c *Config) { c.PubSub.TopicName = "runs" },
		"two archive targets": func(c *Config) { c.Archive.Dir, c.Archive.GCSBucket = "raw", "bucket" },
		"negative max conns":  func(c *Config) { c.DB.MaxConns = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
