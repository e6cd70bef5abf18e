package dump

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"wikifeeder/internal/logger"
	"wikifeeder/internal/models"
	"wikifeeder/internal/progress"
	"wikifeeder/pkg/wikitext"
)

// Parser streams article records out of a decompressed pages-articles dump.
//
// The pages-articles export stores exactly one revision per page, the
// current one at dump time, so the parser reads the first <revision> of
// each <page> and skips the rest. Exports carrying full edit history would
// need revision selection instead and are not supported.
type Parser struct {
	log         *logger.Logger
	xmlPath     string
	labels      []string
	limit       int
	progressOut io.Writer
}

// ParserConfig carries the construction parameters for a Parser.
type ParserConfig struct {
	// XMLPath is the decompressed dump to read.
	XMLPath string
	// Labels are attached to every record.
	Labels []string
	// Limit caps the number of emitted records, 0 means no cap.
	Limit int
	// ProgressOut receives progress rendering, nil disables it. Enabling
	// progress scans the dump an extra time to count pages for totals.
	ProgressOut io.Writer
}

// NewParser creates a parser over a decompressed dump.
func NewParser(cfg ParserConfig, log *logger.Logger) *Parser {
	return &Parser{
		log:         log,
		xmlPath:     cfg.XMLPath,
		labels:      cfg.Labels,
		limit:       cfg.Limit,
		progressOut: cfg.ProgressOut,
	}
}

// CountPages scans the dump once and returns the number of <page> elements,
// retaining nothing.
func (p *Parser) CountPages() (int64, error) {
	f, err := os.Open(p.xmlPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open dump: %w", err)
	}

	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			p.log.Warn("failed to close dump", "error", closeErr)
		}
	}()

	dec := xml.NewDecoder(f)

	var count int64

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return count, nil
		}

		if err != nil {
			return 0, fmt.Errorf("failed to scan dump: %w", err)
		}

		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "page" {
			count++
		}
	}
}

// Articles returns a finite stream over the dump in document order. Each
// call opens the file again. Redirects, empty pages and pages outside the
// article namespace are skipped. A malformed dump yields one terminal error
// and the stream ends.
func (p *Parser) Articles(ctx context.Context) iter.Seq2[models.ArticleRecord, error] {
	return func(yield func(models.ArticleRecord, error) bool) {
		bar, err := p.newBar()
		if err != nil {
			yield(models.ArticleRecord{}, err)
			return
		}
		defer bar.Finish()

		f, err := os.Open(p.xmlPath)
		if err != nil {
			yield(models.ArticleRecord{}, fmt.Errorf("failed to open dump: %w", err))
			return
		}

		defer func() {
			if closeErr := f.Close(); closeErr != nil {
				p.log.Warn("failed to close dump", "error", closeErr)
			}
		}()

		dec := xml.NewDecoder(f)
		emitted := 0

		for {
			if ctxErr := ctx.Err(); ctxErr != nil {
				yield(models.ArticleRecord{}, ctxErr)
				return
			}

			tok, err := dec.Token()
			if errors.Is(err, io.EOF) {
				return
			}

			if err != nil {
				yield(models.ArticleRecord{}, fmt.Errorf("failed to parse dump: %w", err))
				return
			}

			se, ok := tok.(xml.StartElement)
			if !ok || se.Name.Local != "page" {
				continue
			}

			page, err := p.decodePage(dec)
			if err != nil {
				yield(models.ArticleRecord{}, err)
				return
			}

			bar.Add(1)

			record, emit := p.record(page)
			if !emit {
				continue
			}

			if !yield(record, nil) {
				return
			}

			emitted++
			if p.limit > 0 && emitted >= p.limit {
				p.log.Info("dump article limit reached", "limit", p.limit)
				return
			}
		}
	}
}

// newBar prepares the page progress bar, counting pages only when progress
// rendering is enabled.
func (p *Parser) newBar() (*progress.Bar, error) {
	if p.progressOut == nil {
		return progress.NewBar(nil, "", 0), nil
	}

	p.log.Info("counting dump pages")

	total, err := p.CountPages()
	if err != nil {
		return nil, err
	}

	p.log.Info("dump pages counted", "pages", total)

	return progress.NewBar(p.progressOut, "processing pages", total), nil
}

type rawPage struct {
	title string
	id    int64
	text  string
}

// decodePage consumes tokens until </page>, decoding the scalar children
// and the first revision and skipping everything else.
func (p *Parser) decodePage(dec *xml.Decoder) (rawPage, error) {
	var (
		page    rawPage
		idSeen  bool
		revSeen bool
	)

	for {
		tok, err := dec.Token()
		if err != nil {
			return rawPage{}, fmt.Errorf("failed to parse page: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "title":
				if err := dec.DecodeElement(&page.title, &el); err != nil {
					return rawPage{}, fmt.Errorf("failed to decode title: %w", err)
				}
			case "id":
				if idSeen {
					if err := dec.Skip(); err != nil {
						return rawPage{}, fmt.Errorf("failed to skip element: %w", err)
					}

					continue
				}

				if err := dec.DecodeElement(&page.id, &el); err != nil {
					return rawPage{}, fmt.Errorf("failed to decode page id: %w", err)
				}

				idSeen = true
			case "revision":
				if revSeen {
					if err := dec.Skip(); err != nil {
						return rawPage{}, fmt.Errorf("failed to skip revision: %w", err)
					}

					continue
				}

				var rev struct {
					Text string `xml:"text"`
				}

				if err := dec.DecodeElement(&rev, &el); err != nil {
					return rawPage{}, fmt.Errorf("failed to decode revision: %w", err)
				}

				page.text = rev.Text
				revSeen = true
			default:
				if err := dec.Skip(); err != nil {
					return rawPage{}, fmt.Errorf("failed to skip element: %w", err)
				}
			}
		case xml.EndElement:
			if el.Name.Local == "page" {
				return page, nil
			}
		}
	}
}

// record applies the per-entry policy: namespaced titles, empty pages and
// redirects are dropped, everything else is normalized to plain text.
func (p *Parser) record(page rawPage) (models.ArticleRecord, bool) {
	if strings.Contains(page.title, ":") {
		return models.ArticleRecord{}, false
	}

	if page.text == "" || strings.HasPrefix(page.text, "#REDIRECT") {
		return models.ArticleRecord{}, false
	}

	return models.ArticleRecord{
		PageID:    page.id,
		Title:     page.title,
		SourceURL: models.PageURL(page.title),
		Text:      wikitext.Strip(page.text),
		Labels:    p.labels,
		Meta: models.Metadata{
			ID:    page.id,
			Title: page.title,
		},
	}, true
}
