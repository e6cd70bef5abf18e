package ingest

import (
	"context"
	"fmt"
	"iter"

	"golang.org/x/sync/errgroup"

	"wikifeeder/internal/logger"
	"wikifeeder/internal/models"
)

// Importer sends one document to the ingestion API.
type Importer interface {
	Import(ctx context.Context, doc Document) error
}

// Ensure Client implements Importer.
var _ Importer = (*Client)(nil)

// Stats summarizes one dispatch run.
type Stats struct {
	Records  int
	Imported int
	Batches  int
}

// Batcher groups a record stream into fixed-size batches and imports the
// documents of each batch concurrently. A batch is only started once the
// previous one has fully resolved, so at most BatchSize imports are in
// flight at any time.
type Batcher struct {
	importer Importer
	builder  *DocumentBuilder
	size     int
	log      *logger.Logger
}

// NewBatcher creates a batcher dispatching batches of size documents.
func NewBatcher(importer Importer, builder *DocumentBuilder, size int, log *logger.Logger) *Batcher {
	if size < 1 {
		size = 1
	}

	return &Batcher{
		importer: importer,
		builder:  builder,
		size:     size,
		log:      log,
	}
}

// Dispatch drains the stream and imports every record. It stops at the first
// import failure or terminal stream error; the returned stats cover whatever
// completed before that. A short final batch is flushed when the stream ends.
func (b *Batcher) Dispatch(ctx context.Context, stream iter.Seq2[models.ArticleRecord, error]) (Stats, error) {
	var stats Stats

	batch := make([]models.ArticleRecord, 0, b.size)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}

		if err := b.importBatch(ctx, batch); err != nil {
			return err
		}

		stats.Imported += len(batch)
		stats.Batches++
		b.log.Debug("batch imported", "size", len(batch), "imported", stats.Imported)

		batch = batch[:0]

		return nil
	}

	for record, err := range stream {
		if err != nil {
			return stats, fmt.Errorf("failed to read record stream: %w", err)
		}

		stats.Records++

		batch = append(batch, record)
		if len(batch) >= b.size {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}

	if err := flush(); err != nil {
		return stats, err
	}

	return stats, nil
}

func (b *Batcher) importBatch(ctx context.Context, batch []models.ArticleRecord) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, record := range batch {
		doc, err := b.builder.Build(record)
		if err != nil {
			return fmt.Errorf("failed to build document for page %d: %w", record.PageID, err)
		}

		g.Go(func() error {
			if err := b.importer.Import(ctx, doc); err != nil {
				return fmt.Errorf("failed to import %s: %w", doc.FileID, err)
			}

			return nil
		})
	}

	return g.Wait()
}
