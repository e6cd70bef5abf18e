// Package main provides the backfill command that loads a pages-articles dump
// into the ingestion API and exits.
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

	"wikifeeder/internal/config"
	"wikifeeder/internal/dump"
	"wikifeeder/internal/ingest"
	"wikifeeder/internal/logger"
)

func main() {
	// 1. Define Command-Line Flags
	// ----------------------------
	configPath := flag.String("config", os.Getenv("FEEDER_CONFIG"), "Path to YAML config file (optional)")
	production := flag.Bool("production", envBool("PRODUCTION"), "Process the full dump instead of the sample")
	apiKey := flag.String("api-key", os.Getenv("INGEST_API_KEY"), "Ingestion API key (optional)")
	logLevel := flag.String("log-level", "", "Override the configured log level (debug, info, warn, error)")
	keepArchive := flag.Bool("keep-archive", false, "Keep the compressed archive after extraction")

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

	log.Info("🚀 Starting Wikipedia Dump Backfill")
	log.Info(fmt.Sprintf("📍 Dump: %s", cfg.DumpURL()))
	log.Info(fmt.Sprintf("🎯 Target: %s", cfg.Ingest.Endpoint))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startTime := time.Now()

	stats, err := run(ctx, cfg, *keepArchive, log)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error(fmt.Sprintf("❌ Backfill failed: %v", err))
		os.Exit(1)
	}

	// 5. Final Report
	// ---------------
	fmt.Println("\n------------------------------------------------")
	fmt.Printf("📊 Backfill Report\n")
	fmt.Println("------------------------------------------------")
	fmt.Printf("Articles parsed: %d\n", stats.Records)
	fmt.Printf("Documents sent:  %d\n", stats.Imported)
	fmt.Printf("Batches:         %d\n", stats.Batches)
	fmt.Printf("Total Duration:  %v\n", time.Since(startTime).Round(time.Second))
	fmt.Println("------------------------------------------------")
}

func run(ctx context.Context, cfg *config.Config, keepArchive bool, log *logger.Logger) (ingest.Stats, error) {
	// 3. Acquire and Extract the Dump
	// -------------------------------
	log.Info("Phase 1: Acquisition (Download & Extract)...")

	acquirer := dump.NewAcquirer(dump.AcquirerConfig{
		URL:         cfg.DumpURL(),
		ArchivePath: cfg.Dump.ArchivePath,
		ExtractDir:  cfg.Dump.ExtractDir,
		KeepArchive: keepArchive || cfg.Production,
		ProgressOut: progressOut(cfg),
	}, log)

	if err := acquirer.EnsureArchive(ctx); err != nil {
		return ingest.Stats{}, err
	}

	if err := acquirer.EnsureExtracted(ctx); err != nil {
		return ingest.Stats{}, err
	}

	// 4. Parse and Import
	// -------------------
	log.Info("Phase 2: Import (Parse & Dispatch)...")

	client, err := ingest.Connect(ctx, cfg.Ingest.Endpoint, ingest.Credentials{
		Deployment: cfg.Ingest.Deployment,
		URL:        cfg.Ingest.URL,
		Key:        cfg.Ingest.APIKey,
	}, log)
	if err != nil {
		return ingest.Stats{}, err
	}

	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			log.Warn("failed to close ingestion client", "error", closeErr)
		}
	}()

	ragConfig, err := client.LoadRAGConfig(ctx)
	if err != nil {
		return ingest.Stats{}, err
	}

	parser := dump.NewParser(dump.ParserConfig{
		XMLPath:     acquirer.XMLPath(),
		Labels:      cfg.Ingest.Labels,
		Limit:       cfg.DumpLimit(),
		ProgressOut: progressOut(cfg),
	}, log)

	builder := ingest.NewDocumentBuilder(cfg.Ingest.IDPrefix, ragConfig, cfg.Ingest.Overwrite)
	batcher := ingest.NewBatcher(client, builder, cfg.Ingest.BatchSize, log)

	return batcher.Dispatch(ctx, parser.Articles(ctx))
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
