package ingest

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"wikifeeder/internal/models"
)

func TestDocumentBuilder_Build(t *testing.T) {
	ragConfig := json.RawMessage(`{"Reader": {"selected": "Default"}}`)
	builder := NewDocumentBuilder("wiki_", ragConfig, false)

	record := models.ArticleRecord{
		PageID:    42,
		Title:     "Paris",
		SourceURL: "https://en.wikipedia.org/wiki/Paris",
		Text:      "Paris is the capital of France.",
		Labels:    []string{"Wikipedia"},
		Meta: models.Metadata{
			ID:    42,
			Title: "Paris",
		},
	}

	doc, err := builder.Build(record)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if doc.FileID != "wiki_42" {
		t.Errorf("Expected fileID wiki_42, got %q", doc.FileID)
	}

	if doc.Filename != "Paris" {
		t.Errorf("Expected filename Paris, got %q", doc.Filename)
	}

	if doc.IsURL || doc.Overwrite {
		t.Errorf("Expected isURL and overwrite to be false, got %v and %v", doc.IsURL, doc.Overwrite)
	}

	if doc.Extension != "txt" {
		t.Errorf("Expected extension txt, got %q", doc.Extension)
	}

	if doc.Source != record.SourceURL {
		t.Errorf("Expected source %q, got %q", record.SourceURL, doc.Source)
	}

	decoded, err := base64.StdEncoding.DecodeString(doc.Content)
	if err != nil {
		t.Fatalf("Expected base64 content, got %q: %v", doc.Content, err)
	}

	if string(decoded) != record.Text {
		t.Errorf("Expected content to decode to the article text, got %q", decoded)
	}

	if doc.FileSize != len(record.Text) {
		t.Errorf("Expected file size %d, got %d", len(record.Text), doc.FileSize)
	}

	if doc.Status != "READY" {
		t.Errorf("Expected status READY, got %q", doc.Status)
	}

	if string(doc.RAGConfig) != string(ragConfig) {
		t.Errorf("Expected rag config passed through, got %q", doc.RAGConfig)
	}

	var meta models.Metadata
	if err := json.Unmarshal([]byte(doc.Metadata), &meta); err != nil {
		t.Fatalf("Expected metadata to be a JSON string, got %q: %v", doc.Metadata, err)
	}

	if meta.ID != 42 || meta.Title != "Paris" {
		t.Errorf("Expected metadata for page 42, got %+v", meta)
	}

	if doc.StatusReport == nil || len(doc.StatusReport) != 0 {
		t.Errorf("Expected an empty status report, got %v", doc.StatusReport)
	}
}

func TestDocumentBuilder_Build_Overwrite(t *testing.T) {
	builder := NewDocumentBuilder("wiki_", nil, true)

	doc, err := builder.Build(models.ArticleRecord{PageID: 1, Title: "Paris", Text: "Paris"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if !doc.Overwrite {
		t.Error("Expected overwrite to be set")
	}
}

func TestDocumentBuilder_Build_CountsBytesNotRunes(t *testing.T) {
	builder := NewDocumentBuilder("wiki_", nil, false)

	record := models.ArticleRecord{
		PageID: 7,
		Title:  "Łódź",
		Text:   "Łódź is a city",
	}

	doc, err := builder.Build(record)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// 14 runes, 17 bytes once the three two-byte letters are encoded.
	if doc.FileSize != 17 {
		t.Errorf("Expected file size 17, got %d", doc.FileSize)
	}
}

func TestDocument_MarshalShape(t *testing.T) {
	builder := NewDocumentBuilder("wiki_", json.RawMessage(`{"Reader": {}}`), false)

	doc, err := builder.Build(models.ArticleRecord{
		PageID: 1,
		Title:  "Paris",
		Text:   "Paris",
		Labels: []string{"Wikipedia"},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var wire map[string]any
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	for _, key := range []string{
		"fileID", "filename", "isURL", "overwrite", "extension", "source",
		"content", "labels", "rag_config", "file_size", "status", "metadata",
		"status_report",
	} {
		if _, ok := wire[key]; !ok {
			t.Errorf("Expected key %q on the wire, got %s", key, data)
		}
	}

	if _, ok := wire["metadata"].(string); !ok {
		t.Errorf("Expected metadata to travel as a string, got %T", wire["metadata"])
	}

	if _, ok := wire["rag_config"].(map[string]any); !ok {
		t.Errorf("Expected rag_config to travel as an object, got %T", wire["rag_config"])
	}
}
