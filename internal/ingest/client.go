// Package ingest dispatches normalized article records to the downstream
// ingestion API.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"wikifeeder/internal/logger"
)

// Ingestion API errors.
var (
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	ErrNotConnected         = errors.New("ingestion API refused the connection")
	ErrEmptyRAGConfig       = errors.New("rag config is empty")
	ErrImportRejected       = errors.New("import rejected")
)

const (
	maxResponseBytes  = 10 * 1024 * 1024
	requestTimeout    = 30 * time.Second
	disconnectTimeout = 5 * time.Second
)

// Credentials identify the ingestion deployment to connect to. The key is
// also sent as the Authorization header on every subsequent call.
type Credentials struct {
	Deployment string `json:"deployment"`
	URL        string `json:"url"`
	Key        string `json:"key"`
}

type connectResponse struct {
	Connected bool   `json:"connected"`
	Error     string `json:"error"`
}

type ragConfigResponse struct {
	RAGConfig json.RawMessage `json:"rag_config"`
	Error     string          `json:"error"`
}

type importResponse struct {
	Error string `json:"error"`
}

// Client talks to the ingestion API over HTTP JSON.
type Client struct {
	httpClient *http.Client
	endpoint   string
	key        string
	log        *logger.Logger
}

// Connect dials the ingestion API and performs the connect handshake.
// Callers must Close the returned client when done.
func Connect(ctx context.Context, endpoint string, creds Credentials, log *logger.Logger) (*Client, error) {
	client := &Client{
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		endpoint: strings.TrimRight(endpoint, "/"),
		key:      creds.Key,
		log:      log,
	}

	var resp connectResponse
	if err := client.post(ctx, "/api/connect", creds, &resp); err != nil {
		return nil, fmt.Errorf("failed to connect to ingestion API: %w", err)
	}

	if !resp.Connected {
		return nil, fmt.Errorf("%w: %s", ErrNotConnected, resp.Error)
	}

	log.Info("connected to ingestion API", "endpoint", endpoint, "deployment", creds.Deployment)

	return client, nil
}

// LoadRAGConfig fetches the server's RAG configuration, which is attached
// verbatim to every imported document. An empty configuration is reported as
// ErrEmptyRAGConfig so callers can abort before any record is processed.
func (c *Client) LoadRAGConfig(ctx context.Context) (json.RawMessage, error) {
	var resp ragConfigResponse
	if err := c.get(ctx, "/api/rag_config", &resp); err != nil {
		return nil, fmt.Errorf("failed to load rag config: %w", err)
	}

	cfg := string(bytes.TrimSpace(resp.RAGConfig))
	if cfg == "" || cfg == "null" || cfg == "{}" {
		return nil, ErrEmptyRAGConfig
	}

	return resp.RAGConfig, nil
}

// Import sends one document to the ingestion API.
func (c *Client) Import(ctx context.Context, doc Document) error {
	var resp importResponse
	if err := c.post(ctx, "/api/import", doc, &resp); err != nil {
		return fmt.Errorf("failed to import document: %w", err)
	}

	if resp.Error != "" {
		return fmt.Errorf("%w: %s", ErrImportRejected, resp.Error)
	}

	return nil
}

// Close releases the server-side session and drops idle connections. It must
// be called exactly once when the client is no longer needed.
func (c *Client) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()

	err := c.post(ctx, "/api/disconnect", nil, nil)
	c.httpClient.CloseIdleConnections()

	if err != nil {
		return fmt.Errorf("failed to disconnect from ingestion API: %w", err)
	}

	return nil
}

func (c *Client) post(ctx context.Context, path string, payload, target any) error {
	var body io.Reader = http.NoBody

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}

		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	return c.do(req, target)
}

func (c *Client) get(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.do(req, target)
}

func (c *Client) do(req *http.Request, target any) error {
	if c.key != "" {
		req.Header.Set("Authorization", c.key)
	}

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

	if target == nil {
		return nil
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}
