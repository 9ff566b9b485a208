package processor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/labdriver/specsim/internal/extract"
	"github.com/labdriver/specsim/internal/models"
	"github.com/labdriver/specsim/internal/similarity"
	"github.com/labdriver/specsim/internal/storage"
	"github.com/labdriver/specsim/internal/tfidf"
)

// fakeExtractor serves canned extractions so pipeline tests do not need real
// PDF bytes.
type fakeExtractor struct {
	invalid bool
	err     error
	text    string
	pages   []extract.PageText
}

func (f *fakeExtractor) IsPDFFile(path string) bool  { return !f.invalid }
func (f *fakeExtractor) IsPDFValid(path string) bool { return !f.invalid }

func (f *fakeExtractor) ExtractText(path string) (*extract.Extraction, error) {
	if f.err != nil {
		return &extract.Extraction{Success: false, Error: f.err.Error()}, f.err
	}
	return &extract.Extraction{
		FullText:  f.text,
		PageCount: 3,
		WordCount: len(f.text) / 6,
		Pages:     f.pages,
		Success:   true,
	}, nil
}

const astmSpecLike = `ASTM E1394 Laboratory Interface Specification Version 1.2
This standard defines the message format for result transmission.
The header record identifies the sender. Each result record carries one value.
The Specimen ID field identifies the sample. Communication uses RS-232 serial lines.
Built for the Architect analyzer by Abbott.`

func newTestProcessor(t *testing.T, extractor TextExtractor) (*Processor, storage.Repository) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	engine := similarity.NewEngine(tfidf.NewVectorizer())
	return NewProcessor(repo, extractor, engine), repo
}

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestProcessNewDocument(t *testing.T) {
	proc, repo := newTestProcessor(t, &fakeExtractor{text: astmSpecLike})
	ctx := context.Background()
	path := writeTestFile(t, "astm-spec.pdf", "file body v1")

	ok, err := proc.ProcessNewDocument(ctx, path)
	if err != nil {
		t.Fatalf("ProcessNewDocument: %v", err)
	}
	if !ok {
		t.Fatal("expected processing to run for a new file")
	}

	doc, err := repo.GetDocumentByFileName(ctx, "astm-spec.pdf")
	if err != nil {
		t.Fatalf("GetDocumentByFileName: %v", err)
	}
	if doc.Status != models.StatusProcessed {
		t.Errorf("Status = %s, want Processed", doc.Status)
	}
	if doc.ProcessedAt == nil {
		t.Error("ProcessedAt not set")
	}
	if doc.Protocol != string(models.ProtocolASTM) {
		t.Errorf("Protocol = %s, want ASTM", doc.Protocol)
	}
	if doc.Manufacturer != "Abbott" {
		t.Errorf("Manufacturer = %s, want Abbott", doc.Manufacturer)
	}
	if doc.ContentHash == "" || doc.FileSize == 0 {
		t.Errorf("hash/size not recorded: %q %d", doc.ContentHash, doc.FileSize)
	}

	content, err := repo.GetContent(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetContent: %v", err)
	}
	if content.FullText != astmSpecLike {
		t.Error("full text not persisted")
	}
	if content.Keywords == "" {
		t.Error("keywords not derived")
	}
}

func TestProcessNewDocumentDedup(t *testing.T) {
	proc, _ := newTestProcessor(t, &fakeExtractor{text: astmSpecLike})
	ctx := context.Background()
	path := writeTestFile(t, "astm-spec.pdf", "file body v1")

	if ok, err := proc.ProcessNewDocument(ctx, path); err != nil || !ok {
		t.Fatalf("first run: ok=%v err=%v", ok, err)
	}

	// Same file name again.
	ok, err := proc.ProcessNewDocument(ctx, path)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if ok {
		t.Error("same file name should be a no-op")
	}

	// Same content under a different name.
	other := writeTestFile(t, "renamed-copy.pdf", "file body v1")
	ok, err = proc.ProcessNewDocument(ctx, other)
	if err != nil {
		t.Fatalf("duplicate content run: %v", err)
	}
	if ok {
		t.Error("same content hash should be a no-op")
	}
}

func TestProcessDocumentUpdateUnchanged(t *testing.T) {
	proc, repo := newTestProcessor(t, &fakeExtractor{text: astmSpecLike})
	ctx := context.Background()
	path := writeTestFile(t, "astm-spec.pdf", "file body v1")

	if ok, err := proc.ProcessNewDocument(ctx, path); err != nil || !ok {
		t.Fatalf("initial processing: ok=%v err=%v", ok, err)
	}
	before, err := repo.GetDocumentByFileName(ctx, "astm-spec.pdf")
	if err != nil {
		t.Fatalf("GetDocumentByFileName: %v", err)
	}

	ok, err := proc.ProcessDocumentUpdate(ctx, path)
	if err != nil {
		t.Fatalf("ProcessDocumentUpdate: %v", err)
	}
	if !ok {
		t.Error("unchanged update should report success")
	}

	after, err := repo.GetDocumentByFileName(ctx, "astm-spec.pdf")
	if err != nil {
		t.Fatalf("GetDocumentByFileName: %v", err)
	}
	if after.Status != models.StatusProcessed || after.ContentHash != before.ContentHash {
		t.Errorf("unchanged file mutated: status=%s hash=%s", after.Status, after.ContentHash)
	}
}

func TestProcessDocumentUpdateChanged(t *testing.T) {
	extractor := &fakeExtractor{text: astmSpecLike}
	proc, repo := newTestProcessor(t, extractor)
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "astm-spec.pdf")
	if err := os.WriteFile(path, []byte("file body v1"), 0644); err != nil {
		t.Fatal(err)
	}
	if ok, err := proc.ProcessNewDocument(ctx, path); err != nil || !ok {
		t.Fatalf("initial processing: ok=%v err=%v", ok, err)
	}
	before, _ := repo.GetDocumentByFileName(ctx, "astm-spec.pdf")

	if err := os.WriteFile(path, []byte("file body v2"), 0644); err != nil {
		t.Fatal(err)
	}
	extractor.text = astmSpecLike + "\nAmended with a new section."

	ok, err := proc.ProcessDocumentUpdate(ctx, path)
	if err != nil {
		t.Fatalf("ProcessDocumentUpdate: %v", err)
	}
	if !ok {
		t.Fatal("changed update should succeed")
	}

	after, err := repo.GetDocumentByFileName(ctx, "astm-spec.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if after.ID != before.ID {
		t.Error("update must keep the same document id")
	}
	if after.ContentHash == before.ContentHash {
		t.Error("content hash not re-derived")
	}
	content, err := repo.GetContent(ctx, after.ID)
	if err != nil {
		t.Fatal(err)
	}
	if content.FullText != extractor.text {
		t.Error("content not replaced on update")
	}
}

func TestProcessDocumentUpdateMissingRecord(t *testing.T) {
	proc, repo := newTestProcessor(t, &fakeExtractor{text: astmSpecLike})
	ctx := context.Background()
	path := writeTestFile(t, "fresh.pdf", "never seen")

	ok, err := proc.ProcessDocumentUpdate(ctx, path)
	if err != nil {
		t.Fatalf("ProcessDocumentUpdate: %v", err)
	}
	if !ok {
		t.Error("update of an unknown file should process it as new")
	}
	if _, err := repo.GetDocumentByFileName(ctx, "fresh.pdf"); err != nil {
		t.Errorf("document not created: %v", err)
	}
}

func TestProcessDocumentExtractionFailure(t *testing.T) {
	proc, repo := newTestProcessor(t, &fakeExtractor{err: errors.New("corrupt xref table")})
	ctx := context.Background()
	path := writeTestFile(t, "broken.pdf", "binary junk")

	result := proc.ProcessDocument(ctx, path)
	if result.Success {
		t.Fatal("extraction failure must fail the run")
	}

	doc, err := repo.GetDocumentByFileName(ctx, "broken.pdf")
	if err != nil {
		t.Fatalf("GetDocumentByFileName: %v", err)
	}
	if doc.Status != models.StatusFailed {
		t.Errorf("Status = %s, want Failed", doc.Status)
	}
	if doc.ProcessingError == "" {
		t.Error("ProcessingError not recorded")
	}
}

func TestProcessDocumentRejectsNonPDF(t *testing.T) {
	proc, repo := newTestProcessor(t, &fakeExtractor{invalid: true})
	ctx := context.Background()
	path := writeTestFile(t, "notes.txt", "plain text")

	result := proc.ProcessDocument(ctx, path)
	if result.Success {
		t.Fatal("non-PDF must be rejected")
	}
	if _, err := repo.GetDocumentByFileName(ctx, "notes.txt"); !errors.Is(err, storage.ErrNotFound) {
		t.Error("rejected file should not leave a document record")
	}
}

func TestProcessDocumentDeletion(t *testing.T) {
	proc, repo := newTestProcessor(t, &fakeExtractor{text: astmSpecLike})
	ctx := context.Background()
	path := writeTestFile(t, "astm-spec.pdf", "file body v1")

	if ok, err := proc.ProcessNewDocument(ctx, path); err != nil || !ok {
		t.Fatalf("initial processing: ok=%v err=%v", ok, err)
	}
	if err := proc.ProcessDocumentDeletion(ctx, path); err != nil {
		t.Fatalf("ProcessDocumentDeletion: %v", err)
	}
	if _, err := repo.GetDocumentByFileName(ctx, "astm-spec.pdf"); !errors.Is(err, storage.ErrNotFound) {
		t.Error("document record not removed")
	}

	// Deleting an unknown path is a no-op.
	if err := proc.ProcessDocumentDeletion(ctx, filepath.Join(t.TempDir(), "ghost.pdf")); err != nil {
		t.Errorf("deleting unknown path: %v", err)
	}
}

func TestPageKeywordFallback(t *testing.T) {
	extractor := &fakeExtractor{
		text: "General maintenance manual with no protocol vocabulary at all.",
		pages: []extract.PageText{
			{Number: 1, Keywords: []string{"maintenance", "cleaning"}},
			{Number: 2, Keywords: []string{"cleaning", "calibration"}},
		},
	}
	proc, repo := newTestProcessor(t, extractor)
	ctx := context.Background()
	path := writeTestFile(t, "manual.pdf", "manual body")

	result := proc.ProcessDocument(ctx, path)
	if !result.Success {
		t.Fatalf("ProcessDocument: %s", result.Error)
	}
	content, err := repo.GetContent(ctx, result.DocumentID)
	if err != nil {
		t.Fatal(err)
	}
	if content.Keywords != "maintenance,cleaning,calibration" {
		t.Errorf("Keywords = %q, want deduplicated page keywords", content.Keywords)
	}
}

func TestSimilarityResultsStored(t *testing.T) {
	extractor := &fakeExtractor{text: astmSpecLike}
	proc, repo := newTestProcessor(t, extractor)
	ctx := context.Background()

	first := writeTestFile(t, "astm-a.pdf", "body a")
	if ok, err := proc.ProcessNewDocument(ctx, first); err != nil || !ok {
		t.Fatalf("first document: ok=%v err=%v", ok, err)
	}

	extractor.text = astmSpecLike + "\nSecond edition with minor wording changes."
	second := writeTestFile(t, "astm-b.pdf", "body b")
	if ok, err := proc.ProcessNewDocument(ctx, second); err != nil || !ok {
		t.Fatalf("second document: ok=%v err=%v", ok, err)
	}

	doc, err := repo.GetDocumentByFileName(ctx, "astm-b.pdf")
	if err != nil {
		t.Fatal(err)
	}
	results, err := repo.ListSimilarityResults(ctx, doc.ID)
	if err != nil {
		t.Fatalf("ListSimilarityResults: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d similarity results, want 1", len(results))
	}
	if results[0].OverallScore <= 0.1 {
		t.Errorf("near-identical texts scored %v", results[0].OverallScore)
	}
	if results[0].SourceDocumentID != doc.ID {
		t.Errorf("source = %s, want %s", results[0].SourceDocumentID, doc.ID)
	}
}
