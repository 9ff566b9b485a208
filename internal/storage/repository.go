// Package storage defines the persistence interface for documents, their
// extracted content, parser sections, and similarity results.
package storage

import (
	"context"

	"github.com/labdriver/specsim/internal/models"
)

// DocumentFilter narrows ListDocuments. Zero values mean "no constraint".
// SearchTerm matches file name, manufacturer, and device name as a substring.
type DocumentFilter struct {
	Protocol     string
	Manufacturer string
	Status       models.DocumentStatus
	SearchTerm   string
	Offset       int
	Limit        int
}

// Repository defines document persistence operations.
type Repository interface {
	// Document operations
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	GetDocumentByFileName(ctx context.Context, fileName string) (*models.Document, error)
	GetDocumentByHash(ctx context.Context, contentHash string) (*models.Document, error)
	UpdateDocument(ctx context.Context, doc *models.Document) error
	DeleteDocument(ctx context.Context, id string) error
	ExistsByFileName(ctx context.Context, fileName string) (bool, error)
	ExistsByHash(ctx context.Context, contentHash string) (bool, error)
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]*models.Document, error)
	RecentDocuments(ctx context.Context, n int) ([]*models.Document, error)
	CountByStatus(ctx context.Context) (map[models.DocumentStatus]int64, error)

	// Content operations. SaveContent replaces any prior content wholesale.
	SaveContent(ctx context.Context, content *models.DocumentContent) error
	GetContent(ctx context.Context, documentID string) (*models.DocumentContent, error)
	ListProcessedWithContent(ctx context.Context) ([]*models.Document, error)

	// Section operations. ReplaceSections supersedes all prior sections of
	// the document in one transaction.
	ReplaceSections(ctx context.Context, documentID string, sections []*models.DocumentSection) error
	GetSections(ctx context.Context, documentID string) ([]*models.DocumentSection, error)

	// Similarity results. At most one result per ordered (source, target)
	// pair; saving again replaces the prior result.
	SaveSimilarityResult(ctx context.Context, result *models.SimilarityResult) error
	ListSimilarityResults(ctx context.Context, sourceDocumentID string) ([]*models.SimilarityResult, error)

	Close() error
}
