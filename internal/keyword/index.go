// Package keyword provides full-text search over processed documents.
package keyword

import "context"

// Result is one search hit.
type Result struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Index is the full-text search surface used by the HTTP API.
type Index interface {
	Index(ctx context.Context, id string, doc *IndexedDocument) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string, limit int) ([]*Result, error)
	Count() (uint64, error)
	Close() error
}

// IndexedDocument is the flat projection of a document that gets indexed.
type IndexedDocument struct {
	FileName     string `json:"file_name"`
	Manufacturer string `json:"manufacturer"`
	DeviceName   string `json:"device_name"`
	Protocol     string `json:"protocol"`
	Keywords     string `json:"keywords"`
	Content      string `json:"content"`
}
