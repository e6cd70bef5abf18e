package models

// Metadata carries per-article attribution attached to every ingested
// document. Keys follow the ingestion API's metadata contract; the
// edit-related fields are only set for records sourced from the live feed.
type Metadata struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	LastModified string `json:"last_modified,omitempty"`
	Editor       string `json:"editor,omitempty"`
	Comment      string `json:"comment,omitempty"`
}
