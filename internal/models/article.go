// Package models defines data structures shared by the dump and feed pipelines.
package models

import "strings"

const wikipediaBaseURL = "https://en.wikipedia.org/wiki/"

// ArticleRecord represents one normalized encyclopedia article, produced by
// the dump parser or the change poller and consumed by the ingest dispatcher.
type ArticleRecord struct {
	PageID    int64    `json:"pageId"`
	Title     string   `json:"title"`
	SourceURL string   `json:"sourceUrl"`
	Text      string   `json:"text"`
	Labels    []string `json:"labels"`
	Meta      Metadata `json:"metadata"`
}

// PageURL returns the canonical article URL for a page title.
func PageURL(title string) string {
	return wikipediaBaseURL + strings.ReplaceAll(title, " ", "_")
}
