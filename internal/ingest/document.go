package ingest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"wikifeeder/internal/models"
)

const (
	documentExtension = "txt"
	statusReady       = "READY"
)

// Document is the import payload understood by the ingestion API. Content is
// base64-encoded article text; FileSize counts the decoded bytes. Metadata is
// a JSON-encoded string, not a nested object.
type Document struct {
	FileID       string          `json:"fileID"`
	Filename     string          `json:"filename"`
	IsURL        bool            `json:"isURL"`
	Overwrite    bool            `json:"overwrite"`
	Extension    string          `json:"extension"`
	Source       string          `json:"source"`
	Content      string          `json:"content"`
	Labels       []string        `json:"labels"`
	RAGConfig    json.RawMessage `json:"rag_config"`
	FileSize     int             `json:"file_size"`
	Status       string          `json:"status"`
	Metadata     string          `json:"metadata"`
	StatusReport map[string]any  `json:"status_report"`
}

// DocumentBuilder turns article records into import payloads, stamping each
// one with the server's RAG configuration.
type DocumentBuilder struct {
	idPrefix  string
	ragConfig json.RawMessage
	overwrite bool
}

// NewDocumentBuilder creates a builder. Document IDs are the prefix followed
// by the numeric page ID, so re-imports of the same page collapse downstream
// when overwrite is set.
func NewDocumentBuilder(idPrefix string, ragConfig json.RawMessage, overwrite bool) *DocumentBuilder {
	return &DocumentBuilder{
		idPrefix:  idPrefix,
		ragConfig: ragConfig,
		overwrite: overwrite,
	}
}

// Build maps one article record to a document.
func (b *DocumentBuilder) Build(record models.ArticleRecord) (Document, error) {
	meta, err := json.Marshal(record.Meta)
	if err != nil {
		return Document{}, fmt.Errorf("failed to encode metadata: %w", err)
	}

	content := []byte(record.Text)

	return Document{
		FileID:       fmt.Sprintf("%s%d", b.idPrefix, record.PageID),
		Filename:     record.Title,
		Overwrite:    b.overwrite,
		Extension:    documentExtension,
		Source:       record.SourceURL,
		Content:      base64.StdEncoding.EncodeToString(content),
		Labels:       record.Labels,
		RAGConfig:    b.ragConfig,
		FileSize:     len(content),
		Status:       statusReady,
		Metadata:     string(meta),
		StatusReport: map[string]any{},
	}, nil
}
