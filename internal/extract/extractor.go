// Package extract provides text extraction from PDF specification documents.
package extract

import (
	"bytes"
	"fmt"
	"os"
	"strings"
)

// pdfMagic is the PDF file signature ("%PDF").
var pdfMagic = []byte{0x25, 0x50, 0x44, 0x46}

// PageText is the extracted text of a single page plus its top keywords.
type PageText struct {
	Number   int      `json:"number"`
	Text     string   `json:"text"`
	Keywords []string `json:"keywords,omitempty"`
}

// Extraction is the result of extracting text from a document file.
type Extraction struct {
	FullText  string            `json:"full_text"`
	PageCount int               `json:"page_count"`
	WordCount int               `json:"word_count"`
	Pages     []PageText        `json:"pages,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Extractor extracts plain text from PDF files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// IsPDFFile reports whether the file at path starts with the PDF magic bytes.
func (e *Extractor) IsPDFFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	head := make([]byte, len(pdfMagic))
	n, err := f.Read(head)
	if err != nil || n < len(pdfMagic) {
		return false
	}
	return bytes.Equal(head, pdfMagic)
}

// IsPDFValid reports whether the file at path is a PDF that can be opened.
func (e *Extractor) IsPDFValid(path string) bool {
	if !e.IsPDFFile(path) {
		return false
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	_, err = openPDF(content)
	return err == nil
}

// ExtractText reads the PDF at path and returns its text, page by page.
// Failures are reported both as an error and on the Extraction's Success/Error
// fields so callers can persist the diagnostic.
func (e *Extractor) ExtractText(path string) (*Extraction, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return failed(fmt.Errorf("read file: %w", err))
	}
	pages, err := extractPDFPages(content)
	if err != nil {
		return failed(fmt.Errorf("extract pdf: %w", err))
	}

	var buf strings.Builder
	for i, p := range pages {
		buf.WriteString(p.Text)
		if i < len(pages)-1 {
			buf.WriteByte('\n')
		}
	}
	full := buf.String()
	for i := range pages {
		pages[i].Keywords = TopKeywords(pages[i].Text, pageKeywordLimit)
	}
	return &Extraction{
		FullText:  full,
		PageCount: len(pages),
		WordCount: len(strings.Fields(full)),
		Pages:     pages,
		Success:   true,
		Metadata:  map[string]string{"format": "pdf"},
	}, nil
}

func failed(err error) (*Extraction, error) {
	return &Extraction{Success: false, Error: err.Error()}, err
}
