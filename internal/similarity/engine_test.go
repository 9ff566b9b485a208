package similarity

import (
	"math"
	"testing"

	"github.com/labdriver/specsim/internal/models"
	"github.com/labdriver/specsim/internal/tfidf"
)

func newTestDoc(id, text, keywords, protocol, manufacturer string, pages int) *models.Document {
	return &models.Document{
		ID:           id,
		FileName:     id + ".pdf",
		Protocol:     protocol,
		Manufacturer: manufacturer,
		Status:       models.StatusProcessed,
		Content: &models.DocumentContent{
			DocumentID: id,
			FullText:   text,
			Keywords:   keywords,
			PageCount:  pages,
		},
	}
}

func TestJaccardKeywords(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "glucose,meter,obs", "Glucose, Meter, OBS", 1.0},
		{"disjoint", "glucose,meter", "astm,record", 0.0},
		{"half overlap", "a1,b2,c3", "a1,b2,d4", 0.5},
		{"empty left", "", "glucose", 0.0},
		{"empty right", "glucose", "", 0.0},
		{"both empty", "", "", 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JaccardKeywords(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Jaccard(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			// Symmetry and range hold for every pair.
			if rev := JaccardKeywords(tt.b, tt.a); math.Abs(rev-got) > 1e-9 {
				t.Errorf("not symmetric: %v vs %v", got, rev)
			}
			if got < 0 || got > 1 {
				t.Errorf("out of range: %v", got)
			}
		})
	}
}

func TestStructuralScore(t *testing.T) {
	src := newTestDoc("a", "", "", "POCT1A", "Roche", 10)
	tgt := newTestDoc("b", "", "", "POCT1A", "Roche", 10)
	// Same protocol, manufacturer, identical page counts: 0.5 + 0.3 + 0.2*1.0
	if got := structuralScore(src, tgt); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("full match = %v", got)
	}
	tgt2 := newTestDoc("c", "", "", "ASTM", "", 30)
	// No protocol/manufacturer match, page diff > 5: 0.2 * 0.5
	if got := structuralScore(src, tgt2); math.Abs(got-0.1) > 1e-9 {
		t.Errorf("mismatch = %v", got)
	}
	tgt3 := newTestDoc("d", "", "", "", "", 12)
	// Page diff 2 within window: 0.2 * (1 - 2/20)
	if got := structuralScore(src, tgt3); math.Abs(got-0.2*0.9) > 1e-9 {
		t.Errorf("page window = %v", got)
	}
}

func TestSemanticScore(t *testing.T) {
	a := "The protocol defines each message and field on the device interface"
	b := "Device interface: message framing and field encoding per protocol"
	got := semanticScore(a, b)
	// Shared terms: message, field, protocol, device, interface = 5 of 8.
	if math.Abs(got-5.0/8.0) > 1e-9 {
		t.Errorf("semanticScore = %v", got)
	}
	if s := semanticScore("", b); s != 0 {
		t.Errorf("empty text score = %v", s)
	}
}

func TestCompareDocuments(t *testing.T) {
	e := NewEngine(tfidf.NewVectorizer())
	src := newTestDoc("a", "glucose observation message format", "glucose,observation", "POCT1A", "Roche", 10)
	tgt := newTestDoc("b", "glucose observation message format", "glucose,observation", "POCT1A", "Roche", 10)
	res, err := e.CompareDocuments(src, tgt)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(res.OverallScore-1.0) > 1e-9 {
		t.Errorf("identical texts overall = %v", res.OverallScore)
	}
	if res.KeywordScore != 1.0 {
		t.Errorf("keyword = %v", res.KeywordScore)
	}
	if res.SourceDocumentID != "a" || res.TargetDocumentID != "b" {
		t.Errorf("pair = (%s, %s)", res.SourceDocumentID, res.TargetDocumentID)
	}
	if res.Notes == "" || res.Method != "tfidf-cosine" {
		t.Errorf("notes=%q method=%q", res.Notes, res.Method)
	}

	if _, err := e.CompareDocuments(src, src); err == nil {
		t.Error("self comparison must fail")
	}
	noContent := &models.Document{ID: "c"}
	if _, err := e.CompareDocuments(src, noContent); err == nil {
		t.Error("nil content comparison must fail")
	}
}

func TestMatchedSectionTypes(t *testing.T) {
	src := newTestDoc("a", "t", "", "", "", 1)
	tgt := newTestDoc("b", "t", "", "", "", 1)
	src.Sections = []*models.DocumentSection{
		{Type: models.SectionMessageFormat},
		{Type: models.SectionDataFields},
		{Type: models.SectionMessageFormat},
	}
	tgt.Sections = []*models.DocumentSection{
		{Type: models.SectionMessageFormat},
		{Type: models.SectionExamples},
	}
	got := matchedSectionTypes(src, tgt)
	if len(got) != 1 || got[0] != "MessageFormat" {
		t.Errorf("matched = %v", got)
	}
}

func TestFindSimilarDocuments(t *testing.T) {
	e := NewEngine(tfidf.NewVectorizer())
	src := newTestDoc("src", "glucose observation message format table", "glucose", "POCT1A", "", 10)
	near := newTestDoc("near", "glucose observation message format table", "glucose", "POCT1A", "", 10)
	far := newTestDoc("far", "completely unrelated cooking recipe pasta", "pasta", "", "", 2)
	noContent := &models.Document{ID: "empty", Status: models.StatusProcessed}

	results, err := e.FindSimilarDocuments(src, []*models.Document{far, noContent, near, src}, DefaultThreshold)
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range results {
		if r.TargetDocumentID == "src" {
			t.Error("source returned as its own match")
		}
		if r.TargetDocumentID == "empty" {
			t.Error("document without content returned")
		}
		if r.OverallScore < DefaultThreshold {
			t.Errorf("score below threshold: %v", r.OverallScore)
		}
		if i > 0 && results[i-1].OverallScore < r.OverallScore {
			t.Error("results not sorted non-increasing")
		}
	}
	if len(results) == 0 || results[0].TargetDocumentID != "near" {
		t.Errorf("best match = %+v", results)
	}
}
