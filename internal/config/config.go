// Package config provides configuration management for the feeder pipeline.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrMissingSampleURL   = errors.New("dump.sample_url is required")
	ErrMissingFullURL     = errors.New("dump.full_url is required")
	ErrMissingArchivePath = errors.New("dump.archive_path is required")
	ErrMissingExtractDir  = errors.New("dump.extract_dir is required")
	ErrInvalidDumpLimit   = errors.New("dump.sample_limit must be at least 1")
	ErrMissingAPIURL      = errors.New("feed.api_url is required")
	ErrInvalidWindow      = errors.New("feed.window_minutes must be at least 1")
	ErrInvalidInterval    = errors.New("feed.interval_minutes must be at least 1")
	ErrInvalidPageSize    = errors.New("feed.page_size must be between 1 and 500")
	ErrInvalidFetchDelay  = errors.New("feed.fetch_delay_ms must be non-negative")
	ErrInvalidFeedLimit   = errors.New("feed.sample_limit must be at least 1")
	ErrMissingEndpoint    = errors.New("ingest.endpoint is required")
	ErrInvalidDeployment  = errors.New("ingest.deployment must be one of: Docker, Weaviate, Local, Custom")
	ErrInvalidBatchSize   = errors.New("ingest.batch_size must be at least 1")
	ErrMissingIDPrefix    = errors.New("ingest.id_prefix is required")
	ErrNoLabels           = errors.New("ingest.labels must contain at least one label")
	ErrInvalidLogLevel    = errors.New("logging.level must be one of: debug, info, warn, error")
)

// Config represents the complete feeder configuration.
type Config struct {
	Production bool          `yaml:"production"`
	Dump       DumpConfig    `yaml:"dump"`
	Feed       FeedConfig    `yaml:"feed"`
	Ingest     IngestConfig  `yaml:"ingest"`
	Logging    LoggingConfig `yaml:"logging"`
}

// DumpConfig contains settings for the bulk dump pipeline.
type DumpConfig struct {
	SampleURL   string `yaml:"sample_url"`
	FullURL     string `yaml:"full_url"`
	ArchivePath string `yaml:"archive_path"`
	ExtractDir  string `yaml:"extract_dir"`
	SampleLimit int    `yaml:"sample_limit"`
}

// FeedConfig contains settings for the recent-changes feed.
type FeedConfig struct {
	APIURL          string `yaml:"api_url"`
	WindowMinutes   int    `yaml:"window_minutes"`
	IntervalMinutes int    `yaml:"interval_minutes"`
	PageSize        int    `yaml:"page_size"`
	FetchDelayMs    int    `yaml:"fetch_delay_ms"`
	SampleLimit     int    `yaml:"sample_limit"`
}

// IngestConfig contains settings for the downstream ingestion API.
type IngestConfig struct {
	Endpoint   string   `yaml:"endpoint"`
	Deployment string   `yaml:"deployment"`
	URL        string   `yaml:"url"`
	APIKey     string   `yaml:"api_key"`
	BatchSize  int      `yaml:"batch_size"`
	Overwrite  bool     `yaml:"overwrite"`
	Labels     []string `yaml:"labels"`
	IDPrefix   string   `yaml:"id_prefix"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level"`
	ShowProgress bool   `yaml:"show_progress"`
}

// Default returns the configuration used when no file is given. The dump
// URLs point at the English Wikipedia pages-articles exports.
func Default() *Config {
	return &Config{
		Dump: DumpConfig{
			SampleURL:   "https://dumps.wikimedia.org/enwiki/latest/enwiki-latest-pages-articles1.xml-p1p41242.bz2",
			FullURL:     "https://dumps.wikimedia.org/enwiki/latest/enwiki-latest-pages-articles-multistream.xml.bz2",
			ArchivePath: "/data/datasets/wikipedia/enwiki-sample.xml.bz2",
			ExtractDir:  "/data/datasets/wikipedia/extracted_wikipedia",
			SampleLimit: 500,
		},
		Feed: FeedConfig{
			APIURL:          "https://en.wikipedia.org/w/api.php",
			WindowMinutes:   5,
			IntervalMinutes: 5,
			PageSize:        500,
			FetchDelayMs:    100,
			SampleLimit:     50,
		},
		Ingest: IngestConfig{
			Endpoint:   "http://localhost:8000",
			Deployment: "Docker",
			URL:        "weaviate",
			APIKey:     "",
			BatchSize:  10,
			Overwrite:  false,
			Labels:     []string{"Wikipedia"},
			IDPrefix:   "wiki_",
		},
		Logging: LoggingConfig{
			Level:        "info",
			ShowProgress: true,
		},
	}
}

// LoadConfig loads configuration from a YAML file on top of the defaults.
// An empty path returns the defaults unchanged.
func LoadConfig(filepath string) (*Config, error) {
	cfg := Default()

	if filepath != "" {
		data, err := os.ReadFile(filepath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Check dump config
	if c.Dump.SampleURL == "" {
		return ErrMissingSampleURL
	}

	if c.Dump.FullURL == "" {
		return ErrMissingFullURL
	}

	if c.Dump.ArchivePath == "" {
		return ErrMissingArchivePath
	}

	if c.Dump.ExtractDir == "" {
		return ErrMissingExtractDir
	}

	if c.Dump.SampleLimit < 1 {
		return ErrInvalidDumpLimit
	}

	// Validate feed config
	if c.Feed.APIURL == "" {
		return ErrMissingAPIURL
	}

	if c.Feed.WindowMinutes < 1 {
		return ErrInvalidWindow
	}

	if c.Feed.IntervalMinutes < 1 {
		return ErrInvalidInterval
	}

	if c.Feed.PageSize < 1 || c.Feed.PageSize > 500 {
		return ErrInvalidPageSize
	}

	if c.Feed.FetchDelayMs < 0 {
		return ErrInvalidFetchDelay
	}

	if c.Feed.SampleLimit < 1 {
		return ErrInvalidFeedLimit
	}

	// Validate ingest config
	if c.Ingest.Endpoint == "" {
		return ErrMissingEndpoint
	}

	validDeployments := map[string]bool{"Docker": true, "Weaviate": true, "Local": true, "Custom": true}
	if !validDeployments[c.Ingest.Deployment] {
		return ErrInvalidDeployment
	}

	if c.Ingest.BatchSize < 1 {
		return ErrInvalidBatchSize
	}

	if c.Ingest.IDPrefix == "" {
		return ErrMissingIDPrefix
	}

	if len(c.Ingest.Labels) == 0 {
		return ErrNoLabels
	}

	for i, label := range c.Ingest.Labels {
		if strings.TrimSpace(label) == "" {
			return fmt.Errorf("%w: labels[%d] is blank", ErrNoLabels, i)
		}
	}

	// Validate logging config
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	return nil
}

// DumpURL returns the dump export to download for the current mode.
func (c *Config) DumpURL() string {
	if c.Production {
		return c.Dump.FullURL
	}

	return c.Dump.SampleURL
}

// DumpLimit returns the article cap for the dump parser, 0 for unlimited.
func (c *Config) DumpLimit() int {
	if c.Production {
		return 0
	}

	return c.Dump.SampleLimit
}

// FeedLimit returns the per-invocation record cap for the poller, 0 for
// unlimited.
func (c *Config) FeedLimit() int {
	if c.Production {
		return 0
	}

	return c.Feed.SampleLimit
}

// Window returns how far back each feed invocation looks.
func (f *FeedConfig) Window() time.Duration {
	return time.Duration(f.WindowMinutes) * time.Minute
}

// Interval returns the pause between feed invocations.
func (f *FeedConfig) Interval() time.Duration {
	return time.Duration(f.IntervalMinutes) * time.Minute
}

// FetchDelay returns the courtesy delay between per-page content fetches.
func (f *FeedConfig) FetchDelay() time.Duration {
	return time.Duration(f.FetchDelayMs) * time.Millisecond
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Production: %t, Endpoint: %s, BatchSize: %d, Interval: %s}",
		c.Production,
		c.Ingest.Endpoint,
		c.Ingest.BatchSize,
		c.Feed.Interval(),
	)
}
