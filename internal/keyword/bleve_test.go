package keyword

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "index.bleve"))
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestIndexAndSearch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	docs := map[string]*IndexedDocument{
		"doc-1": {
			FileName: "roche-accu-chek.pdf",
			Protocol: "POCT1A",
			Keywords: "glucose, observation, poct1a",
			Content:  "The device sends OBS.R01 observation messages over TCP.",
		},
		"doc-2": {
			FileName: "abbott-architect.pdf",
			Protocol: "ASTM",
			Keywords: "astm, result, record",
			Content:  "Result records follow the ASTM E1394 frame structure.",
		},
	}
	for id, doc := range docs {
		if err := idx.Index(ctx, id, doc); err != nil {
			t.Fatalf("Index(%s): %v", id, err)
		}
	}

	hits, err := idx.Search(ctx, "observation", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "doc-1" {
		t.Errorf("search for observation returned %v, want doc-1", hits)
	}

	hits, err = idx.Search(ctx, "E1394", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "doc-2" {
		t.Errorf("search for E1394 returned %v, want doc-2", hits)
	}

	count, err := idx.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Errorf("Count = %d, want 2", count)
	}
}

func TestDelete(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	doc := &IndexedDocument{FileName: "spec.pdf", Content: "handshake sequence"}
	if err := idx.Index(ctx, "doc-1", doc); err != nil {
		t.Fatalf("Index: %v", err)
	}
	if err := idx.Delete(ctx, "doc-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	hits, err := idx.Search(ctx, "handshake", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("deleted document still returned: %v", hits)
	}
}
