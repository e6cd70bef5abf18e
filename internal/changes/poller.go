package changes

import (
	"context"
	"iter"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"wikifeeder/internal/logger"
	"wikifeeder/internal/models"
	"wikifeeder/pkg/wikitext"
)

// API abstracts the MediaWiki calls the poller makes.
type API interface {
	RecentChanges(ctx context.Context, start time.Time, pageSize int, cont map[string]string) ([]Change, map[string]string, error)
	PageContent(ctx context.Context, pageID int64) (string, string, error)
}

// Ensure APIClient implements API.
var _ API = (*APIClient)(nil)

// Poller streams recently edited articles. Each invocation of Changes
// covers one look-back window and is finite; scheduling invocations is the
// caller's concern.
type Poller struct {
	api          API
	log          *logger.Logger
	window       time.Duration
	pageSize     int
	limit        int
	labels       []string
	limiter      *rate.Limiter
	now          func() time.Time
	onFetchError func(pageID int64, err error)
}

// PollerConfig carries the construction parameters for a Poller.
type PollerConfig struct {
	// Window is how far back each invocation looks.
	Window time.Duration
	// PageSize is the listing page size, capped at 500 by the API.
	PageSize int
	// Limit caps records per invocation, 0 means no cap.
	Limit int
	// Labels are attached to every record.
	Labels []string
	// FetchDelay spaces out per-page content fetches, 0 disables pacing.
	FetchDelay time.Duration
	// Now supplies the invocation start time, nil means time.Now.
	Now func() time.Time
	// OnFetchError observes per-page content fetch failures. The failed
	// page is skipped either way. Nil installs a logging handler.
	OnFetchError func(pageID int64, err error)
}

// NewPoller creates a poller over the given API.
func NewPoller(api API, cfg PollerConfig, log *logger.Logger) *Poller {
	p := &Poller{
		api:          api,
		log:          log,
		window:       cfg.Window,
		pageSize:     cfg.PageSize,
		limit:        cfg.Limit,
		labels:       cfg.Labels,
		now:          cfg.Now,
		onFetchError: cfg.OnFetchError,
	}

	if cfg.FetchDelay > 0 {
		p.limiter = rate.NewLimiter(rate.Every(cfg.FetchDelay), 1)
	}

	if p.now == nil {
		p.now = time.Now
	}

	if p.onFetchError == nil {
		p.onFetchError = func(pageID int64, err error) {
			log.Warn("failed to fetch page content", "page_id", pageID, "error", err)
		}
	}

	return p
}

// Changes returns a finite stream over one look-back window. Pages edited
// several times in the window are emitted once. The stream itself never
// carries an error: a listing failure ends the invocation with whatever was
// already produced, and per-page fetch failures go to the OnFetchError
// handler while the stream moves on.
func (p *Poller) Changes(ctx context.Context) iter.Seq2[models.ArticleRecord, error] {
	return func(yield func(models.ArticleRecord, error) bool) {
		start := p.now().Add(-p.window)
		seen := make(map[int64]struct{})
		emitted := 0

		var cont map[string]string

		for {
			changes, next, err := p.api.RecentChanges(ctx, start, p.pageSize, cont)
			if err != nil {
				// The next scheduled invocation is the retry path.
				p.log.Error("failed to list recent changes", "error", err)
				return
			}

			if len(changes) == 0 {
				return
			}

			for _, change := range changes {
				if ctx.Err() != nil {
					return
				}

				if _, dup := seen[change.PageID]; dup {
					continue
				}

				seen[change.PageID] = struct{}{}

				record, ok := p.fetchRecord(ctx, change)
				if !ok {
					continue
				}

				if !yield(record, nil) {
					return
				}

				emitted++
				if p.limit > 0 && emitted >= p.limit {
					p.log.Info("feed sample limit reached", "limit", p.limit)
					return
				}
			}

			if len(next) == 0 {
				return
			}

			cont = next
		}
	}
}

// fetchRecord resolves one change to a record. Redirects and pages whose
// content cannot be fetched produce nothing.
func (p *Poller) fetchRecord(ctx context.Context, change Change) (models.ArticleRecord, bool) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return models.ArticleRecord{}, false
		}
	}

	title, text, err := p.api.PageContent(ctx, change.PageID)
	if err != nil {
		p.onFetchError(change.PageID, err)
		return models.ArticleRecord{}, false
	}

	if strings.HasPrefix(text, "#REDIRECT") {
		return models.ArticleRecord{}, false
	}

	if title == "" {
		title = change.Title
	}

	return models.ArticleRecord{
		PageID:    change.PageID,
		Title:     title,
		SourceURL: models.PageURL(title),
		Text:      wikitext.Strip(text),
		Labels:    p.labels,
		Meta: models.Metadata{
			ID:           change.PageID,
			Title:        title,
			LastModified: change.Timestamp,
			Editor:       change.User,
			Comment:      change.Comment,
		},
	}, true
}
