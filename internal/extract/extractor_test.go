package extract

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsPDFFile(t *testing.T) {
	dir := t.TempDir()

	pdfPath := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(pdfPath, []byte("%PDF-1.4\nnot a real body"), 0600); err != nil {
		t.Fatal(err)
	}
	txtPath := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(txtPath, []byte("plain text"), 0600); err != nil {
		t.Fatal(err)
	}

	e := NewExtractor()
	if !e.IsPDFFile(pdfPath) {
		t.Error("magic bytes not recognized")
	}
	if e.IsPDFFile(txtPath) {
		t.Error("plain text reported as PDF")
	}
	if e.IsPDFFile(filepath.Join(dir, "missing.pdf")) {
		t.Error("missing file reported as PDF")
	}
}

func TestIsPDFValidTruncated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.pdf")
	// Correct magic bytes but no xref table: must fail validation.
	if err := os.WriteFile(path, []byte("%PDF-1.7\ngarbage"), 0600); err != nil {
		t.Fatal(err)
	}
	e := NewExtractor()
	if e.IsPDFValid(path) {
		t.Error("truncated PDF reported valid")
	}
}

func TestExtractTextMissingFile(t *testing.T) {
	e := NewExtractor()
	res, err := e.ExtractText(filepath.Join(t.TempDir(), "nope.pdf"))
	if err == nil {
		t.Fatal("expected error")
	}
	if res == nil || res.Success || res.Error == "" {
		t.Errorf("failure result not populated: %+v", res)
	}
}

func TestTopKeywords(t *testing.T) {
	text := "glucose glucose glucose analyzer analyzer the the the observation"
	got := TopKeywords(text, 2)
	if len(got) != 2 || got[0] != "glucose" || got[1] != "analyzer" {
		t.Errorf("TopKeywords = %v", got)
	}
	if kws := TopKeywords("", 5); len(kws) != 0 {
		t.Errorf("empty text keywords = %v", kws)
	}
}
