// Package models defines core data structures for documents, sections, messages, and similarity results.
package models

import "time"

// DocumentStatus is the lifecycle state of a document in the processing pipeline.
type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "Uploaded"
	StatusProcessing DocumentStatus = "Processing"
	StatusProcessed  DocumentStatus = "Processed"
	StatusFailed     DocumentStatus = "Failed"
)

// Protocol identifies a device-connectivity protocol.
type Protocol string

const (
	ProtocolPOCT1A  Protocol = "POCT1A"
	ProtocolASTM    Protocol = "ASTM"
	ProtocolHL7     Protocol = "HL7"
	ProtocolUnknown Protocol = "Unknown"
)

// SectionType tags a contiguous excerpt of a specification document.
type SectionType string

const (
	SectionMessageFormat SectionType = "MessageFormat"
	SectionDataFields    SectionType = "DataFields"
	SectionCommunication SectionType = "Communication"
	SectionExamples      SectionType = "Examples"
	SectionIntroduction  SectionType = "Introduction"
	SectionAppendix      SectionType = "Appendix"
	SectionUnknown       SectionType = "Unknown"
)

// Document represents an ingested protocol specification file with inferred metadata.
// Manufacturer, DeviceName, Protocol, and Version are best-effort inferences and may be empty.
type Document struct {
	ID              string         `json:"id" db:"id"`
	FileName        string         `json:"file_name" db:"file_name"`
	ContentHash     string         `json:"content_hash" db:"content_hash"`
	FileSize        int64          `json:"file_size" db:"file_size"`
	Manufacturer    string         `json:"manufacturer,omitempty" db:"manufacturer"`
	DeviceName      string         `json:"device_name,omitempty" db:"device_name"`
	Protocol        string         `json:"protocol,omitempty" db:"protocol"`
	Version         string         `json:"version,omitempty" db:"version"`
	Status          DocumentStatus `json:"status" db:"status"`
	ProcessingError string         `json:"processing_error,omitempty" db:"processing_error"`
	UploadedAt      time.Time      `json:"uploaded_at" db:"uploaded_at"`
	ProcessedAt     *time.Time     `json:"processed_at,omitempty" db:"processed_at"`

	// Content is the extracted content; nil when extraction has not succeeded yet.
	Content *DocumentContent `json:"content,omitempty" db:"-"`
	// Sections are the parser-extracted sections, ordered by position.
	Sections []*DocumentSection `json:"sections,omitempty" db:"-"`
}

// DocumentContent holds the extracted text and derived data for a document.
// One-to-one with Document; replaced wholesale on reprocessing.
type DocumentContent struct {
	DocumentID string `json:"document_id" db:"document_id"`
	FullText   string `json:"full_text" db:"full_text"`
	PageCount  int    `json:"page_count" db:"page_count"`
	WordCount  int    `json:"word_count" db:"word_count"`
	Keywords   string `json:"keywords" db:"keywords"`
	Summary    string `json:"summary,omitempty" db:"summary"`
	VectorData string `json:"-" db:"vector_data"`
}

// DocumentSection is a tagged excerpt produced by a protocol parser's section extractor,
// ordered by Position within its document. Sections are regenerated on each processing pass.
type DocumentSection struct {
	ID         string      `json:"id" db:"id"`
	DocumentID string      `json:"document_id" db:"document_id"`
	Type       SectionType `json:"type" db:"type"`
	Title      string      `json:"title" db:"title"`
	Content    string      `json:"content" db:"content"`
	Position   int         `json:"position" db:"position"`
}
