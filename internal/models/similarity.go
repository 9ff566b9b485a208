package models

import "time"

// SimilarityResult holds the similarity signals for an ordered (source, target) document pair.
// Source and target are always distinct; at most one result is retained per ordered pair,
// recomputation replaces the prior one.
type SimilarityResult struct {
	ID               string    `json:"id" db:"id"`
	SourceDocumentID string    `json:"source_document_id" db:"source_document_id"`
	TargetDocumentID string    `json:"target_document_id" db:"target_document_id"`
	OverallScore     float64   `json:"overall_score" db:"overall_score"`
	KeywordScore     float64   `json:"keyword_score" db:"keyword_score"`
	StructuralScore  float64   `json:"structural_score" db:"structural_score"`
	SemanticScore    float64   `json:"semantic_score" db:"semantic_score"`
	Method           string    `json:"method" db:"method"`
	MatchedSections  []string  `json:"matched_sections,omitempty" db:"-"`
	Notes            string    `json:"notes,omitempty" db:"notes"`
	ComputedAt       time.Time `json:"computed_at" db:"computed_at"`
}

// TfIdfVector is a sparse term-weight vector derived from a text.
type TfIdfVector struct {
	Weights    map[string]float64 `json:"weights"`
	Magnitude  float64            `json:"magnitude"`
	TermCount  int                `json:"term_count"`
	SourceText string             `json:"source_text,omitempty"`
}
