package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Helper to create a temp config file.
func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()

	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}

	return configPath
}

// overrideYAML changes a subset of keys; everything else keeps defaults.
const overrideYAML = `
production: true
dump:
  archive_path: "/tmp/wiki/archive.xml.bz2"
  extract_dir: "/tmp/wiki/extracted"
feed:
  interval_minutes: 10
ingest:
  endpoint: "http://ingest.local:9000"
  batch_size: 25
logging:
  level: "debug"
`

func TestLoadConfig_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Ingest.BatchSize != 10 {
		t.Errorf("Expected default batch size 10, got %d", cfg.Ingest.BatchSize)
	}

	if cfg.Feed.APIURL != "https://en.wikipedia.org/w/api.php" {
		t.Errorf("Unexpected default feed URL: %s", cfg.Feed.APIURL)
	}
}

func TestLoadConfig_OverridesOnTopOfDefaults(t *testing.T) {
	configPath := createTempConfigFile(t, overrideYAML)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if !cfg.Production {
		t.Error("Expected production mode from file")
	}

	if cfg.Ingest.BatchSize != 25 {
		t.Errorf("Expected batch size 25, got %d", cfg.Ingest.BatchSize)
	}

	// Keys absent from the file keep their defaults.
	if cfg.Feed.PageSize != 500 {
		t.Errorf("Expected default page size 500, got %d", cfg.Feed.PageSize)
	}

	if len(cfg.Ingest.Labels) != 1 || cfg.Ingest.Labels[0] != "Wikipedia" {
		t.Errorf("Expected default labels, got %v", cfg.Ingest.Labels)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("Expected error for nonexistent file, got nil")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	configPath := createTempConfigFile(t, "invalid: yaml: content: [}")

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("Expected error for invalid YAML, got nil")
	}
}

// --- Validation Tests ---

func TestConfig_Validate_MissingArchivePath(t *testing.T) {
	cfg := Default()
	cfg.Dump.ArchivePath = ""

	if err := cfg.Validate(); !errors.Is(err, ErrMissingArchivePath) {
		t.Fatalf("Expected ErrMissingArchivePath, got %v", err)
	}
}

func TestConfig_Validate_MissingExtractDir(t *testing.T) {
	cfg := Default()
	cfg.Dump.ExtractDir = ""

	if err := cfg.Validate(); !errors.Is(err, ErrMissingExtractDir) {
		t.Fatalf("Expected ErrMissingExtractDir, got %v", err)
	}
}

func TestConfig_Validate_InvalidDumpLimit(t *testing.T) {
	cfg := Default()
	cfg.Dump.SampleLimit = 0

	if err := cfg.Validate(); !errors.Is(err, ErrInvalidDumpLimit) {
		t.Fatalf("Expected ErrInvalidDumpLimit, got %v", err)
	}
}

func TestConfig_Validate_MissingAPIURL(t *testing.T) {
	cfg := Default()
	cfg.Feed.APIURL = ""

	if err := cfg.Validate(); !errors.Is(err, ErrMissingAPIURL) {
		t.Fatalf("Expected ErrMissingAPIURL, got %v", err)
	}
}

func TestConfig_Validate_InvalidPageSize(t *testing.T) {
	tests := []struct {
		name     string
		pageSize int
	}{
		{"zero", 0},
		{"negative", -1},
		{"above API maximum", 501},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Feed.PageSize = tt.pageSize

			if err := cfg.Validate(); !errors.Is(err, ErrInvalidPageSize) {
				t.Errorf("Expected ErrInvalidPageSize, got %v", err)
			}
		})
	}
}

func TestConfig_Validate_NegativeFetchDelay(t *testing.T) {
	cfg := Default()
	cfg.Feed.FetchDelayMs = -5

	if err := cfg.Validate(); !errors.Is(err, ErrInvalidFetchDelay) {
		t.Fatalf("Expected ErrInvalidFetchDelay, got %v", err)
	}
}

func TestConfig_Validate_InvalidWindow(t *testing.T) {
	cfg := Default()
	cfg.Feed.WindowMinutes = 0

	if err := cfg.Validate(); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("Expected ErrInvalidWindow, got %v", err)
	}
}

func TestConfig_Validate_InvalidInterval(t *testing.T) {
	cfg := Default()
	cfg.Feed.IntervalMinutes = -1

	if err := cfg.Validate(); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("Expected ErrInvalidInterval, got %v", err)
	}
}

func TestConfig_Validate_MissingEndpoint(t *testing.T) {
	cfg := Default()
	cfg.Ingest.Endpoint = ""

	if err := cfg.Validate(); !errors.Is(err, ErrMissingEndpoint) {
		t.Fatalf("Expected ErrMissingEndpoint, got %v", err)
	}
}

func TestConfig_Validate_InvalidDeployment(t *testing.T) {
	cfg := Default()
	cfg.Ingest.Deployment = "Kubernetes"

	if err := cfg.Validate(); !errors.Is(err, ErrInvalidDeployment) {
		t.Fatalf("Expected ErrInvalidDeployment, got %v", err)
	}
}

func TestConfig_Validate_InvalidBatchSize(t *testing.T) {
	cfg := Default()
	cfg.Ingest.BatchSize = 0

	if err := cfg.Validate(); !errors.Is(err, ErrInvalidBatchSize) {
		t.Fatalf("Expected ErrInvalidBatchSize, got %v", err)
	}
}

func TestConfig_Validate_NoLabels(t *testing.T) {
	cfg := Default()
	cfg.Ingest.Labels = nil

	if err := cfg.Validate(); !errors.Is(err, ErrNoLabels) {
		t.Fatalf("Expected ErrNoLabels, got %v", err)
	}
}

func TestConfig_Validate_BlankLabel(t *testing.T) {
	cfg := Default()
	cfg.Ingest.Labels = []string{"Wikipedia", "  "}

	if err := cfg.Validate(); !errors.Is(err, ErrNoLabels) {
		t.Fatalf("Expected ErrNoLabels for blank label, got %v", err)
	}
}

func TestConfig_Validate_InvalidLoggingLevel(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "verbose"

	if err := cfg.Validate(); !errors.Is(err, ErrInvalidLogLevel) {
		t.Fatalf("Expected ErrInvalidLogLevel, got %v", err)
	}
}

// --- Mode Getter Tests ---

func TestConfig_DumpURL(t *testing.T) {
	cfg := Default()

	if got := cfg.DumpURL(); got != cfg.Dump.SampleURL {
		t.Errorf("Expected sample URL in sample mode, got %s", got)
	}

	cfg.Production = true
	if got := cfg.DumpURL(); got != cfg.Dump.FullURL {
		t.Errorf("Expected full URL in production mode, got %s", got)
	}
}

func TestConfig_Limits(t *testing.T) {
	cfg := Default()

	if got := cfg.DumpLimit(); got != 500 {
		t.Errorf("Expected dump limit 500 in sample mode, got %d", got)
	}

	if got := cfg.FeedLimit(); got != 50 {
		t.Errorf("Expected feed limit 50 in sample mode, got %d", got)
	}

	cfg.Production = true

	if got := cfg.DumpLimit(); got != 0 {
		t.Errorf("Expected unlimited dump in production mode, got %d", got)
	}

	if got := cfg.FeedLimit(); got != 0 {
		t.Errorf("Expected unlimited feed in production mode, got %d", got)
	}
}

func TestFeedConfig_Durations(t *testing.T) {
	feed := FeedConfig{WindowMinutes: 5, IntervalMinutes: 10, FetchDelayMs: 100}

	if got := feed.Window(); got != 5*time.Minute {
		t.Errorf("Window() = %v, want %v", got, 5*time.Minute)
	}

	if got := feed.Interval(); got != 10*time.Minute {
		t.Errorf("Interval() = %v, want %v", got, 10*time.Minute)
	}

	if got := feed.FetchDelay(); got != 100*time.Millisecond {
		t.Errorf("FetchDelay() = %v, want %v", got, 100*time.Millisecond)
	}
}

func TestConfig_String(t *testing.T) {
	str := Default().String()
	if str == "" {
		t.Error("Expected non-empty string representation")
	}
}
