// Package main provides the unified feeder command that backfills from the
// dump and then follows the live recent-changes feed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"wikifeeder/internal/changes"
	"wikifeeder/internal/config"
	"wikifeeder/internal/dump"
	"wikifeeder/internal/ingest"
	"wikifeeder/internal/logger"
)

func main() {
	// 1. Define Command-Line Flags
	// ----------------------------
	configPath := flag.String("config", os.Getenv("FEEDER_CONFIG"), "Path to YAML config file (optional)")
	production := flag.Bool("production", envBool("PRODUCTION"), "Process the full dump and run the feed uncapped")
	apiKey := flag.String("api-key", os.Getenv("INGEST_API_KEY"), "Ingestion API key (optional)")
	logLevel := flag.String("log-level", "", "Override the configured log level (debug, info, warn, error)")

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

	log.Info("🚀 Starting Wikipedia Feeder Pipeline")
	log.Info(fmt.Sprintf("⚙️  %s", cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error(fmt.Sprintf("❌ Pipeline failed: %v", err))
		os.Exit(1)
	}

	log.Info("✨ Pipeline stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
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

	// 4. Backfill from the Dump
	// -------------------------
	if err := backfill(ctx, cfg, batcher, log); err != nil {
		return err
	}

	// 5. Follow the Live Feed
	// -----------------------
	return follow(ctx, cfg, batcher, log)
}

func backfill(ctx context.Context, cfg *config.Config, batcher *ingest.Batcher, log *logger.Logger) error {
	log.Info("Phase 1: Backfill (Dump)...")

	startTime := time.Now()

	acquirer := dump.NewAcquirer(dump.AcquirerConfig{
		URL:         cfg.DumpURL(),
		ArchivePath: cfg.Dump.ArchivePath,
		ExtractDir:  cfg.Dump.ExtractDir,
		KeepArchive: cfg.Production,
		ProgressOut: progressOut(cfg),
	}, log)

	if err := acquirer.EnsureArchive(ctx); err != nil {
		return err
	}

	if err := acquirer.EnsureExtracted(ctx); err != nil {
		return err
	}

	parser := dump.NewParser(dump.ParserConfig{
		XMLPath:     acquirer.XMLPath(),
		Labels:      cfg.Ingest.Labels,
		Limit:       cfg.DumpLimit(),
		ProgressOut: progressOut(cfg),
	}, log)

	stats, err := batcher.Dispatch(ctx, parser.Articles(ctx))
	if err != nil {
		return err
	}

	log.Info(fmt.Sprintf("✅ Backfill complete: %d articles in %d batches (%v)",
		stats.Imported, stats.Batches, time.Since(startTime).Round(time.Second)))

	return nil
}

func follow(ctx context.Context, cfg *config.Config, batcher *ingest.Batcher, log *logger.Logger) error {
	log.Info("Phase 2: Live Feed (Recent Changes)...")

	api := changes.NewAPIClient(cfg.Feed.APIURL, log)

	poller := changes.NewPoller(api, changes.PollerConfig{
		Window:     cfg.Feed.Window(),
		PageSize:   cfg.Feed.PageSize,
		Limit:      cfg.FeedLimit(),
		Labels:     cfg.Ingest.Labels,
		FetchDelay: cfg.Feed.FetchDelay(),
	}, log)

	return changes.RunEvery(ctx, cfg.Feed.Interval(), func(ctx context.Context) error {
		log.Info(fmt.Sprintf("Fetching recent changes at %s", time.Now().UTC().Format(time.RFC3339)))

		stats, err := batcher.Dispatch(ctx, poller.Changes(ctx))
		if err != nil {
			return err
		}

		log.Info(fmt.Sprintf("✅ Feed cycle complete: %d articles in %d batches", stats.Imported, stats.Batches))

		return nil
	})
}

// envBool reads a boolean environment variable, treating unset as false.
func envBool(key string) bool {
	return strings.EqualFold(os.Getenv(key), "true")
}

// progressOut returns the progress sink, nil when rendering is disabled.
func progressOut(cfg *config.Config) io.Writer {
	if !cfg.Logging.ShowProgress {
		return nil
	}

	return os.Stderr
}
