// Package changes turns the MediaWiki recent-changes feed into article
// records.
package changes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"wikifeeder/internal/logger"
)

// API errors.
var (
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	ErrNoRevisionContent    = errors.New("no revision content")
)

const (
	timestampLayout  = "20060102150405"
	maxResponseBytes = 10 * 1024 * 1024
	userAgent        = "wikifeeder/1.0"
)

// Change represents one entry from the recent-changes listing.
type Change struct {
	PageID    int64  `json:"pageid"`
	RevID     int64  `json:"revid"`
	Title     string `json:"title"`
	Timestamp string `json:"timestamp"`
	User      string `json:"user"`
	Comment   string `json:"comment"`
}

// listingResponse mirrors the envelope of the recent-changes listing call.
// The continue object is echoed verbatim into the next request to page
// through the listing.
type listingResponse struct {
	Continue map[string]string `json:"continue"`
	Query    struct {
		RecentChanges []Change `json:"recentchanges"`
	} `json:"query"`
}

// contentResponse mirrors the envelope of the revision-content call. The
// wikitext sits under the page's first revision in the main slot, keyed "*".
type contentResponse struct {
	Query struct {
		Pages map[string]pageContent `json:"pages"`
	} `json:"query"`
}

type pageContent struct {
	PageID    int64  `json:"pageid"`
	Title     string `json:"title"`
	Revisions []struct {
		Slots struct {
			Main struct {
				Content string `json:"*"`
			} `json:"main"`
		} `json:"slots"`
	} `json:"revisions"`
}

// APIClient talks to the MediaWiki action API.
type APIClient struct {
	httpClient *http.Client
	baseURL    string
	log        *logger.Logger
}

// NewAPIClient creates a client for the given action API endpoint.
func NewAPIClient(baseURL string, log *logger.Logger) *APIClient {
	return &APIClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: baseURL,
		log:     log,
	}
}

// RecentChanges lists article-namespace changes from start forward, one
// page per call. The returned continuation map pages through the listing
// when echoed into the next call; it is empty on the last page.
func (c *APIClient) RecentChanges(ctx context.Context, start time.Time, pageSize int, cont map[string]string) ([]Change, map[string]string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("list", "recentchanges")
	params.Set("rcstart", start.UTC().Format(timestampLayout))
	params.Set("rcdir", "newer")
	params.Set("rcnamespace", "0")
	params.Set("rclimit", strconv.Itoa(pageSize))
	params.Set("rcprop", "title|ids|timestamp|comment|user|flags|sizes")

	for key, value := range cont {
		params.Set(key, value)
	}

	var resp listingResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, nil, fmt.Errorf("failed to list recent changes: %w", err)
	}

	return resp.Query.RecentChanges, resp.Continue, nil
}

// PageContent fetches the current wikitext of a page, returning the
// canonical title alongside it.
func (c *APIClient) PageContent(ctx context.Context, pageID int64) (string, string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("prop", "revisions")
	params.Set("pageids", strconv.FormatInt(pageID, 10))
	params.Set("rvprop", "content")
	params.Set("rvslots", "main")

	var resp contentResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return "", "", fmt.Errorf("failed to fetch page content: %w", err)
	}

	for _, page := range resp.Query.Pages {
		if len(page.Revisions) == 0 {
			break
		}

		return page.Title, page.Revisions[0].Slots.Main.Content, nil
	}

	return "", "", fmt.Errorf("%w: page %d", ErrNoRevisionContent, pageID)
}

func (c *APIClient) get(ctx context.Context, params url.Values, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.log.Warn("failed to close response body", "error", closeErr)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d: %s", ErrUnexpectedStatusCode, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}
