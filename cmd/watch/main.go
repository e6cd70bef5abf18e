// Package main provides the watch command that follows the recent-changes
// feed without touching the dump.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"wikifeeder/internal/changes"
	"wikifeeder/internal/config"
	"wikifeeder/internal/ingest"
	"wikifeeder/internal/logger"
)

func main() {
	// 1. Define Command-Line Flags
	// ----------------------------
	configPath := flag.String("config", os.Getenv("FEEDER_CONFIG"), "Path to YAML config file (optional)")
	production := flag.Bool("production", envBool("PRODUCTION"), "Run the feed uncapped")
	apiKey := flag.String("api-key", os.Getenv("INGEST_API_KEY"), "Ingestion API key (optional)")
	logLevel := flag.String("log-level", "", "Override the configured log level (debug, info, warn, error)")
	once := flag.Bool("once", false, "Run a single feed cycle and exit")

	flag.Parse()

	// 2. Load Configuration
	// ---------------------
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *production {
		cfg.Production = true
	}

	if *apiKey != "" {
		cfg.Ingest.APIKey = *apiKey
	}

	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	log := logger.NewLogger(cfg.Logging.Level)

	log.Info("🚀 Starting Wikipedia Feed Watcher")
	log.Info(fmt.Sprintf("📍 Feed: %s (window %s, every %s)", cfg.Feed.APIURL, cfg.Feed.Window(), cfg.Feed.Interval()))
	log.Info(fmt.Sprintf("🎯 Target: %s", cfg.Ingest.Endpoint))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *once, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error(fmt.Sprintf("❌ Watcher failed: %v", err))
		os.Exit(1)
	}

	log.Info("✨ Watcher stopped")
}

func run(ctx context.Context, cfg *config.Config, once bool, log *logger.Logger) error {
	// 3. Connect to the Ingestion API
	// -------------------------------
	client, err := ingest.Connect(ctx, cfg.Ingest.Endpoint, ingest.Credentials{
		Deployment: cfg.Ingest.Deployment,
		URL:        cfg.Ingest.URL,
		Key:        cfg.Ingest.APIKey,
	}, log)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			log.Warn("failed to close ingestion client", "error", closeErr)
		}
	}()

	ragConfig, err := client.LoadRAGConfig(ctx)
	if err != nil {
		return err
	}

	builder := ingest.NewDocumentBuilder(cfg.Ingest.IDPrefix, ragConfig, cfg.Ingest.Overwrite)
	batcher := ingest.NewBatcher(client, builder, cfg.Ingest.BatchSize, log)

	api := changes.NewAPIClient(cfg.Feed.APIURL, log)

	poller := changes.NewPoller(api, changes.PollerConfig{
		Window:     cfg.Feed.Window(),
		PageSize:   cfg.Feed.PageSize,
		Limit:      cfg.FeedLimit(),
		Labels:     cfg.Ingest.Labels,
		FetchDelay: cfg.Feed.FetchDelay(),
	}, log)

	cycle := func(ctx context.Context) error {
		log.Info(fmt.Sprintf("Fetching recent changes at %s", time.Now().UTC().Format(time.RFC3339)))

		stats, err := batcher.Dispatch(ctx, poller.Changes(ctx))
		if err != nil {
			return err
		}

		log.Info(fmt.Sprintf("✅ Feed cycle complete: %d articles in %d batches", stats.Imported, stats.Batches))

		return nil
	}

	// 4. Poll the Feed
	// ----------------
	if once {
		return cycle(ctx)
	}

	return changes.RunEvery(ctx, cfg.Feed.Interval(), cycle)
}

// envBool reads a boolean environment variable, treating unset as false.
func envBool(key string) bool {
	return strings.EqualFold(os.Getenv(key), "true")
}
