// Package processor orchestrates the per-document pipeline: extraction,
// protocol detection, parsing, persistence, and similarity analysis.
package processor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/labdriver/specsim/internal/extract"
	"github.com/labdriver/specsim/internal/keyword"
	"github.com/labdriver/specsim/internal/models"
	"github.com/labdriver/specsim/internal/protocol"
	"github.com/labdriver/specsim/internal/similarity"
	"github.com/labdriver/specsim/internal/storage"
	"github.com/labdriver/specsim/internal/tfidf"
)

// maxKeywords caps the derived keyword list per document.
const maxKeywords = 50

// TextExtractor is the PDF text extraction collaborator.
type TextExtractor interface {
	IsPDFFile(path string) bool
	IsPDFValid(path string) bool
	ExtractText(path string) (*extract.Extraction, error)
}

// Result reports the outcome of one processing run.
type Result struct {
	Success    bool           `json:"success"`
	DocumentID string         `json:"document_id,omitempty"`
	Error      string         `json:"error,omitempty"`
	Duration   time.Duration  `json:"duration"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Processor runs the document pipeline. Safe for concurrent use across
// different files; concurrent runs for the same path are not serialized here.
type Processor struct {
	repo       storage.Repository
	extractor  TextExtractor
	engine     *similarity.Engine
	vectorizer *tfidf.Vectorizer
	parsers    []protocol.Parser
	index      keyword.Index
	logger     *zap.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithKeywordIndex enables best-effort full-text indexing of processed documents.
func WithKeywordIndex(idx keyword.Index) Option {
	return func(p *Processor) { p.index = idx }
}

// WithParsers overrides the default parser registration order.
func WithParsers(parsers []protocol.Parser) Option {
	return func(p *Processor) { p.parsers = parsers }
}

// NewProcessor returns a Processor using the default parser set.
func NewProcessor(repo storage.Repository, extractor TextExtractor, engine *similarity.Engine, opts ...Option) *Processor {
	p := &Processor{
		repo:       repo,
		extractor:  extractor,
		engine:     engine,
		vectorizer: tfidf.NewVectorizer(),
		parsers:    protocol.DefaultParsers(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessNewDocument runs the pipeline for a file seen for the first time.
// It returns false without processing when a document with the same file name
// already exists, or when the same content hash already exists under any name.
func (p *Processor) ProcessNewDocument(ctx context.Context, path string) (bool, error) {
	fileName := filepath.Base(path)
	exists, err := p.repo.ExistsByFileName(ctx, fileName)
	if err != nil {
		return false, fmt.Errorf("check file name: %w", err)
	}
	if exists {
		p.logf("skipping known file", zap.String("file", fileName))
		return false, nil
	}

	hash, _, err := hashFile(path)
	if err != nil {
		return false, fmt.Errorf("hash file: %w", err)
	}
	exists, err = p.repo.ExistsByHash(ctx, hash)
	if err != nil {
		return false, fmt.Errorf("check content hash: %w", err)
	}
	if exists {
		p.logf("skipping duplicate content", zap.String("file", fileName), zap.String("hash", hash))
		return false, nil
	}

	result := p.ProcessDocument(ctx, path)
	if !result.Success {
		return false, errors.New(result.Error)
	}
	return true, nil
}

// ProcessDocumentUpdate reprocesses a changed file. A file with no existing
// record is treated as new. An unchanged content hash is a successful no-op.
func (p *Processor) ProcessDocumentUpdate(ctx context.Context, path string) (bool, error) {
	fileName := filepath.Base(path)
	doc, err := p.repo.GetDocumentByFileName(ctx, fileName)
	if errors.Is(err, storage.ErrNotFound) {
		return p.ProcessNewDocument(ctx, path)
	}
	if err != nil {
		return false, fmt.Errorf("look up document: %w", err)
	}

	hash, _, err := hashFile(path)
	if err != nil {
		return false, fmt.Errorf("hash file: %w", err)
	}
	if hash == doc.ContentHash {
		p.logf("content unchanged", zap.String("file", fileName))
		return true, nil
	}

	doc.Status = models.StatusProcessing
	if err := p.repo.UpdateDocument(ctx, doc); err != nil {
		return false, fmt.Errorf("mark processing: %w", err)
	}

	result := p.ProcessDocument(ctx, path)
	if !result.Success {
		return false, errors.New(result.Error)
	}
	return true, nil
}

// ProcessDocumentDeletion removes the record for the file, if one exists.
func (p *Processor) ProcessDocumentDeletion(ctx context.Context, path string) error {
	fileName := filepath.Base(path)
	doc, err := p.repo.GetDocumentByFileName(ctx, fileName)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("look up document: %w", err)
	}
	if err := p.repo.DeleteDocument(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if p.index != nil {
		if err := p.index.Delete(ctx, doc.ID); err != nil {
			p.logf("index delete failed", zap.String("id", doc.ID), zap.Error(err))
		}
	}
	p.logf("document removed", zap.String("file", fileName), zap.String("id", doc.ID))
	return nil
}

// ProcessDocument runs the full pipeline for one file. Each step is a hard
// failure point that short-circuits the rest, except the final similarity
// analysis and indexing, which are best-effort.
func (p *Processor) ProcessDocument(ctx context.Context, path string) *Result {
	start := time.Now()
	fileName := filepath.Base(path)

	if !p.extractor.IsPDFFile(path) {
		return failedResult(start, "", fmt.Sprintf("%s is not a PDF file", fileName))
	}
	if !p.extractor.IsPDFValid(path) {
		return failedResult(start, "", fmt.Sprintf("%s is not a readable PDF", fileName))
	}

	hash, size, err := hashFile(path)
	if err != nil {
		return failedResult(start, "", fmt.Sprintf("hash %s: %v", fileName, err))
	}

	doc, err := p.createOrUpdateDocument(ctx, fileName, hash, size)
	if err != nil {
		return failedResult(start, "", fmt.Sprintf("persist %s: %v", fileName, err))
	}

	extraction, err := p.extractor.ExtractText(path)
	if err != nil {
		p.markFailed(ctx, doc, fmt.Sprintf("text extraction: %v", err))
		return failedResult(start, doc.ID, fmt.Sprintf("extract %s: %v", fileName, err))
	}
	text := extraction.FullText

	content := &models.DocumentContent{
		DocumentID: doc.ID,
		FullText:   text,
		PageCount:  extraction.PageCount,
		WordCount:  extraction.WordCount,
	}
	if data, err := json.Marshal(p.vectorizer.TermFrequency(text)); err == nil {
		content.VectorData = string(data)
	}

	doc.Protocol = string(DetectProtocol(text))
	doc.Version = DetectVersion(text)
	doc.Manufacturer = DetectManufacturer(text)
	doc.DeviceName = DetectDeviceName(text)

	var sections []*models.DocumentSection
	if parser := protocol.SelectParser(p.parsers, text); parser != nil {
		parseResult := parser.Parse(text)
		if parseResult.Success {
			doc.Protocol = string(parser.Protocol())
			if parseResult.Version != "" && parseResult.Version != "Unknown" {
				doc.Version = parseResult.Version
			}
			content.Keywords = strings.Join(parsedKeywords(parseResult), ",")
			content.Summary = parseSummary(fileName, parseResult)
		} else {
			p.logf("parse failed", zap.String("file", fileName), zap.String("error", parseResult.Error))
		}
		sections = parser.ExtractSections(text, doc.ID)
	}
	if content.Keywords == "" {
		content.Keywords = strings.Join(pageKeywords(extraction), ",")
	}

	if err := p.repo.SaveContent(ctx, content); err != nil {
		p.markFailed(ctx, doc, fmt.Sprintf("save content: %v", err))
		return failedResult(start, doc.ID, fmt.Sprintf("save content for %s: %v", fileName, err))
	}
	if err := p.repo.ReplaceSections(ctx, doc.ID, sections); err != nil {
		p.markFailed(ctx, doc, fmt.Sprintf("save sections: %v", err))
		return failedResult(start, doc.ID, fmt.Sprintf("save sections for %s: %v", fileName, err))
	}

	now := time.Now()
	doc.Status = models.StatusProcessed
	doc.ProcessedAt = &now
	doc.ProcessingError = ""
	if err := p.repo.UpdateDocument(ctx, doc); err != nil {
		return failedResult(start, doc.ID, fmt.Sprintf("mark processed: %v", err))
	}

	doc.Content = content
	doc.Sections = sections
	p.analyzeSimilarity(ctx, doc)
	p.indexDocument(ctx, doc)

	return &Result{
		Success:    true,
		DocumentID: doc.ID,
		Duration:   time.Since(start),
		Metadata: map[string]any{
			"pages":    extraction.PageCount,
			"words":    extraction.WordCount,
			"protocol": doc.Protocol,
			"sections": len(sections),
		},
	}
}

// createOrUpdateDocument upserts the document record for a file and leaves it
// in Processing state.
func (p *Processor) createOrUpdateDocument(ctx context.Context, fileName, hash string, size int64) (*models.Document, error) {
	doc, err := p.repo.GetDocumentByFileName(ctx, fileName)
	if errors.Is(err, storage.ErrNotFound) {
		doc = &models.Document{
			ID:          uuid.NewString(),
			FileName:    fileName,
			ContentHash: hash,
			FileSize:    size,
			Status:      models.StatusProcessing,
			UploadedAt:  time.Now(),
		}
		if err := p.repo.CreateDocument(ctx, doc); err != nil {
			return nil, err
		}
		return doc, nil
	}
	if err != nil {
		return nil, err
	}
	doc.ContentHash = hash
	doc.FileSize = size
	doc.Status = models.StatusProcessing
	if err := p.repo.UpdateDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (p *Processor) markFailed(ctx context.Context, doc *models.Document, message string) {
	doc.Status = models.StatusFailed
	doc.ProcessingError = message
	if err := p.repo.UpdateDocument(ctx, doc); err != nil {
		p.logf("failed to record failure", zap.String("id", doc.ID), zap.Error(err))
	}
}

// analyzeSimilarity compares the document against every other processed
// document and stores the results. Failures are logged, never fatal.
func (p *Processor) analyzeSimilarity(ctx context.Context, doc *models.Document) {
	candidates, err := p.repo.ListProcessedWithContent(ctx)
	if err != nil {
		p.logf("similarity candidate scan failed", zap.String("id", doc.ID), zap.Error(err))
		return
	}
	results, err := p.engine.FindSimilarDocuments(doc, candidates, similarity.DefaultThreshold)
	if err != nil {
		p.logf("similarity analysis failed", zap.String("id", doc.ID), zap.Error(err))
		return
	}
	for _, res := range results {
		res.ID = uuid.NewString()
		if err := p.repo.SaveSimilarityResult(ctx, res); err != nil {
			p.logf("saving similarity result failed",
				zap.String("source", res.SourceDocumentID),
				zap.String("target", res.TargetDocumentID),
				zap.Error(err))
		}
	}
	p.logf("similarity analysis done", zap.String("id", doc.ID), zap.Int("matches", len(results)))
}

func (p *Processor) indexDocument(ctx context.Context, doc *models.Document) {
	if p.index == nil {
		return
	}
	err := p.index.Index(ctx, doc.ID, &keyword.IndexedDocument{
		FileName:     doc.FileName,
		Manufacturer: doc.Manufacturer,
		DeviceName:   doc.DeviceName,
		Protocol:     doc.Protocol,
		Keywords:     doc.Content.Keywords,
		Content:      doc.Content.FullText,
	})
	if err != nil {
		p.logf("keyword indexing failed", zap.String("id", doc.ID), zap.Error(err))
	}
}

// parsedKeywords derives keywords from parsed message and field names,
// deduplicated and capped.
func parsedKeywords(result *protocol.ParseResult) []string {
	seen := make(map[string]struct{})
	var keywords []string
	add := func(term string) {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" || len(keywords) >= maxKeywords {
			return
		}
		if _, dup := seen[term]; dup {
			return
		}
		seen[term] = struct{}{}
		keywords = append(keywords, term)
	}
	add(string(result.Protocol))
	for _, mf := range result.MessageFormats {
		add(mf.Name)
	}
	for _, df := range result.DataFields {
		add(df.Name)
	}
	return keywords
}

// pageKeywords collapses the per-page keyword lists from extraction into one
// deduplicated list, capped like parsedKeywords.
func pageKeywords(extraction *extract.Extraction) []string {
	seen := make(map[string]struct{})
	var keywords []string
	for _, page := range extraction.Pages {
		for _, kw := range page.Keywords {
			if len(keywords) >= maxKeywords {
				return keywords
			}
			if _, dup := seen[kw]; dup {
				continue
			}
			seen[kw] = struct{}{}
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

func parseSummary(fileName string, result *protocol.ParseResult) string {
	return fmt.Sprintf("%s: %s %s specification with %d message formats, %d data fields",
		fileName, result.Protocol, result.Version, len(result.MessageFormats), len(result.DataFields))
}

func failedResult(start time.Time, documentID, message string) *Result {
	return &Result{
		Success:    false,
		DocumentID: documentID,
		Error:      message,
		Duration:   time.Since(start),
	}
}

func (p *Processor) logf(msg string, fields ...zap.Field) {
	if p.logger != nil {
		p.logger.Info(msg, fields...)
	}
}

// hashFile returns the hex SHA-256 of the file contents and its size.
func hashFile(path string) (string, int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), int64(len(data)), nil
}
