package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/labdriver/specsim/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens or creates a SQLite database at dbPath and
// initializes the schema. Parent directories are created if they do not exist.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		file_name TEXT NOT NULL UNIQUE,
		content_hash TEXT NOT NULL DEFAULT '',
		file_size INTEGER NOT NULL DEFAULT 0,
		manufacturer TEXT NOT NULL DEFAULT '',
		device_name TEXT NOT NULL DEFAULT '',
		protocol TEXT NOT NULL DEFAULT '',
		version TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		processing_error TEXT NOT NULL DEFAULT '',
		uploaded_at TIMESTAMP NOT NULL,
		processed_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents(content_hash);
	CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
	CREATE INDEX IF NOT EXISTS idx_documents_uploaded_at ON documents(uploaded_at);

	CREATE TABLE IF NOT EXISTS document_contents (
		document_id TEXT PRIMARY KEY,
		full_text TEXT NOT NULL,
		page_count INTEGER NOT NULL DEFAULT 0,
		word_count INTEGER NOT NULL DEFAULT 0,
		keywords TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		vector_data TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS document_sections (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		position INTEGER NOT NULL,
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_sections_document_id ON document_sections(document_id);

	CREATE TABLE IF NOT EXISTS similarity_results (
		id TEXT PRIMARY KEY,
		source_document_id TEXT NOT NULL,
		target_document_id TEXT NOT NULL,
		overall_score REAL NOT NULL,
		keyword_score REAL NOT NULL,
		structural_score REAL NOT NULL,
		semantic_score REAL NOT NULL,
		method TEXT NOT NULL DEFAULT '',
		matched_sections TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		computed_at TIMESTAMP NOT NULL,
		UNIQUE (source_document_id, target_document_id),
		FOREIGN KEY (source_document_id) REFERENCES documents(id) ON DELETE CASCADE,
		FOREIGN KEY (target_document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_similarity_source ON similarity_results(source_document_id);
	`
	_, err := db.Exec(schema)
	return err
}

const documentColumns = `id, file_name, content_hash, file_size, manufacturer, device_name,
	 protocol, version, status, processing_error, uploaded_at, processed_at`

// CreateDocument inserts a document. UploadedAt is set if zero.
func (r *SQLiteRepository) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO documents (`+documentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.FileName, doc.ContentHash, doc.FileSize, doc.Manufacturer, doc.DeviceName,
		doc.Protocol, doc.Version, doc.Status, doc.ProcessingError, doc.UploadedAt, doc.ProcessedAt,
	)
	return err
}

func (r *SQLiteRepository) getDocumentWhere(ctx context.Context, where string, arg any) (*models.Document, error) {
	var doc models.Document
	err := r.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE `+where, arg,
	).Scan(&doc.ID, &doc.FileName, &doc.ContentHash, &doc.FileSize, &doc.Manufacturer, &doc.DeviceName,
		&doc.Protocol, &doc.Version, &doc.Status, &doc.ProcessingError, &doc.UploadedAt, &doc.ProcessedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document %s=%v: %w", where, arg, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetDocument returns a document by ID.
func (r *SQLiteRepository) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	return r.getDocumentWhere(ctx, "id = ?", id)
}

// GetDocumentByFileName returns the document for a file name.
func (r *SQLiteRepository) GetDocumentByFileName(ctx context.Context, fileName string) (*models.Document, error) {
	return r.getDocumentWhere(ctx, "file_name = ?", fileName)
}

// GetDocumentByHash returns the first document with the given content hash.
func (r *SQLiteRepository) GetDocumentByHash(ctx context.Context, contentHash string) (*models.Document, error) {
	return r.getDocumentWhere(ctx, "content_hash = ?", contentHash)
}

// UpdateDocument updates an existing document by ID.
func (r *SQLiteRepository) UpdateDocument(ctx context.Context, doc *models.Document) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE documents SET file_name = ?, content_hash = ?, file_size = ?, manufacturer = ?,
		 device_name = ?, protocol = ?, version = ?, status = ?, processing_error = ?,
		 uploaded_at = ?, processed_at = ? WHERE id = ?`,
		doc.FileName, doc.ContentHash, doc.FileSize, doc.Manufacturer, doc.DeviceName,
		doc.Protocol, doc.Version, doc.Status, doc.ProcessingError, doc.UploadedAt, doc.ProcessedAt,
		doc.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document %s: %w", doc.ID, ErrNotFound)
	}
	return nil
}

// DeleteDocument removes a document and, via cascade, its content, sections,
// and similarity results.
func (r *SQLiteRepository) DeleteDocument(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	return err
}

func (r *SQLiteRepository) existsWhere(ctx context.Context, where string, arg any) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM documents WHERE `+where+` LIMIT 1`, arg,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ExistsByFileName reports whether a document with the file name exists.
func (r *SQLiteRepository) ExistsByFileName(ctx context.Context, fileName string) (bool, error) {
	return r.existsWhere(ctx, "file_name = ?", fileName)
}

// ExistsByHash reports whether a document with the content hash exists.
func (r *SQLiteRepository) ExistsByHash(ctx context.Context, contentHash string) (bool, error) {
	return r.existsWhere(ctx, "content_hash = ?", contentHash)
}

// ListDocuments returns documents matching the filter, newest first.
func (r *SQLiteRepository) ListDocuments(ctx context.Context, filter DocumentFilter) ([]*models.Document, error) {
	var conds []string
	var args []any
	if filter.Protocol != "" {
		conds = append(conds, "protocol = ?")
		args = append(args, filter.Protocol)
	}
	if filter.Manufacturer != "" {
		conds = append(conds, "manufacturer = ?")
		args = append(args, filter.Manufacturer)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.SearchTerm != "" {
		conds = append(conds, "(file_name LIKE ? OR manufacturer LIKE ? OR device_name LIKE ?)")
		like := "%" + filter.SearchTerm + "%"
		args = append(args, like, like, like)
	}

	query := `SELECT ` + documentColumns + ` FROM documents`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY uploaded_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// RecentDocuments returns the n most recently uploaded documents.
func (r *SQLiteRepository) RecentDocuments(ctx context.Context, n int) ([]*models.Document, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents ORDER BY uploaded_at DESC LIMIT ?`, n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func scanDocuments(rows *sql.Rows) ([]*models.Document, error) {
	var docs []*models.Document
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(&doc.ID, &doc.FileName, &doc.ContentHash, &doc.FileSize,
			&doc.Manufacturer, &doc.DeviceName, &doc.Protocol, &doc.Version,
			&doc.Status, &doc.ProcessingError, &doc.UploadedAt, &doc.ProcessedAt); err != nil {
			return nil, err
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// CountByStatus returns document counts keyed by lifecycle status.
func (r *SQLiteRepository) CountByStatus(ctx context.Context) (map[models.DocumentStatus]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM documents GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.DocumentStatus]int64)
	for rows.Next() {
		var status models.DocumentStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// SaveContent stores extracted content for a document, replacing any prior row.
func (r *SQLiteRepository) SaveContent(ctx context.Context, content *models.DocumentContent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO document_contents (document_id, full_text, page_count, word_count, keywords, summary, vector_data)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(document_id) DO UPDATE SET
		 full_text = excluded.full_text, page_count = excluded.page_count,
		 word_count = excluded.word_count, keywords = excluded.keywords,
		 summary = excluded.summary, vector_data = excluded.vector_data`,
		content.DocumentID, content.FullText, content.PageCount, content.WordCount,
		content.Keywords, content.Summary, content.VectorData,
	)
	return err
}

// GetContent returns the extracted content for a document.
func (r *SQLiteRepository) GetContent(ctx context.Context, documentID string) (*models.DocumentContent, error) {
	var content models.DocumentContent
	err := r.db.QueryRowContext(ctx,
		`SELECT document_id, full_text, page_count, word_count, keywords, summary, vector_data
		 FROM document_contents WHERE document_id = ?`, documentID,
	).Scan(&content.DocumentID, &content.FullText, &content.PageCount, &content.WordCount,
		&content.Keywords, &content.Summary, &content.VectorData)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("content for document %s: %w", documentID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &content, nil
}

// ListProcessedWithContent returns all Processed documents with their content
// attached, for similarity scans.
func (r *SQLiteRepository) ListProcessedWithContent(ctx context.Context) ([]*models.Document, error) {
	docs, err := r.ListDocuments(ctx, DocumentFilter{Status: models.StatusProcessed})
	if err != nil {
		return nil, err
	}
	var out []*models.Document
	for _, doc := range docs {
		content, err := r.GetContent(ctx, doc.ID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		doc.Content = content
		out = append(out, doc)
	}
	return out, nil
}

// ReplaceSections deletes a document's prior sections and inserts the new set
// in one transaction.
func (r *SQLiteRepository) ReplaceSections(ctx context.Context, documentID string, sections []*models.DocumentSection) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_sections WHERE document_id = ?`, documentID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO document_sections (id, document_id, type, title, content, position)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, sec := range sections {
		if _, err := stmt.ExecContext(ctx, sec.ID, documentID, sec.Type, sec.Title, sec.Content, sec.Position); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetSections returns a document's sections ordered by position.
func (r *SQLiteRepository) GetSections(ctx context.Context, documentID string) ([]*models.DocumentSection, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, document_id, type, title, content, position
		 FROM document_sections WHERE document_id = ? ORDER BY position`, documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []*models.DocumentSection
	for rows.Next() {
		var sec models.DocumentSection
		if err := rows.Scan(&sec.ID, &sec.DocumentID, &sec.Type, &sec.Title, &sec.Content, &sec.Position); err != nil {
			return nil, err
		}
		sections = append(sections, &sec)
	}
	return sections, rows.Err()
}

// SaveSimilarityResult upserts the result for its ordered (source, target) pair.
func (r *SQLiteRepository) SaveSimilarityResult(ctx context.Context, result *models.SimilarityResult) error {
	if result.ComputedAt.IsZero() {
		result.ComputedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO similarity_results (id, source_document_id, target_document_id,
		 overall_score, keyword_score, structural_score, semantic_score, method,
		 matched_sections, notes, computed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source_document_id, target_document_id) DO UPDATE SET
		 overall_score = excluded.overall_score, keyword_score = excluded.keyword_score,
		 structural_score = excluded.structural_score, semantic_score = excluded.semantic_score,
		 method = excluded.method, matched_sections = excluded.matched_sections,
		 notes = excluded.notes, computed_at = excluded.computed_at`,
		result.ID, result.SourceDocumentID, result.TargetDocumentID,
		result.OverallScore, result.KeywordScore, result.StructuralScore, result.SemanticScore,
		result.Method, strings.Join(result.MatchedSections, ","), result.Notes, result.ComputedAt,
	)
	return err
}

// ListSimilarityResults returns stored results for a source document, best first.
func (r *SQLiteRepository) ListSimilarityResults(ctx context.Context, sourceDocumentID string) ([]*models.SimilarityResult, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, source_document_id, target_document_id, overall_score, keyword_score,
		 structural_score, semantic_score, method, matched_sections, notes, computed_at
		 FROM similarity_results WHERE source_document_id = ? ORDER BY overall_score DESC`,
		sourceDocumentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*models.SimilarityResult
	for rows.Next() {
		var res models.SimilarityResult
		var matched string
		if err := rows.Scan(&res.ID, &res.SourceDocumentID, &res.TargetDocumentID,
			&res.OverallScore, &res.KeywordScore, &res.StructuralScore, &res.SemanticScore,
			&res.Method, &matched, &res.Notes, &res.ComputedAt); err != nil {
			return nil, err
		}
		if matched != "" {
			res.MatchedSections = strings.Split(matched, ",")
		}
		results = append(results, &res)
	}
	return results, rows.Err()
}

// Close closes the database connection.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
