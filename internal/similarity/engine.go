// Package similarity computes multi-signal similarity between processed documents.
package similarity

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labdriver/specsim/internal/models"
	"github.com/labdriver/specsim/internal/tfidf"
	"go.uber.org/zap"
)

// DefaultThreshold is the minimum overall score a result must reach to be
// returned by FindSimilarDocuments.
const DefaultThreshold = 0.1

const comparisonMethod = "tfidf-cosine"

// semanticVocabulary is the fixed term set for the semantic co-occurrence
// signal. The semantic score is the fraction of these terms present in both
// texts.
var semanticVocabulary = []string{
	"message", "field", "record", "data",
	"protocol", "communication", "device", "interface",
}

// Engine composes vectorizer output and document metadata into similarity scores.
type Engine struct {
	vectorizer *tfidf.Vectorizer
	logger     *zap.Logger // optional; when set, logs skipped comparisons
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger for comparison diagnostics.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine returns an Engine using the given vectorizer.
func NewEngine(vectorizer *tfidf.Vectorizer, opts ...EngineOption) *Engine {
	e := &Engine{vectorizer: vectorizer}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CompareDocuments computes all similarity signals for the ordered pair
// (source, target). Both documents must carry content.
func (e *Engine) CompareDocuments(source, target *models.Document) (*models.SimilarityResult, error) {
	if source == nil || target == nil {
		return nil, fmt.Errorf("nil document")
	}
	if source.ID == target.ID {
		return nil, fmt.Errorf("cannot compare document %s with itself", source.ID)
	}
	if source.Content == nil || target.Content == nil {
		return nil, fmt.Errorf("document content missing (source=%s target=%s)", source.ID, target.ID)
	}

	srcTF := e.vectorizer.TermFrequency(source.Content.FullText)
	tgtTF := e.vectorizer.TermFrequency(target.Content.FullText)
	overall := tfidf.CosineSimilarity(srcTF, tgtTF)

	keyword := JaccardKeywords(source.Content.Keywords, target.Content.Keywords)
	structural := structuralScore(source, target)
	semantic := semanticScore(source.Content.FullText, target.Content.FullText)

	result := &models.SimilarityResult{
		ID:               uuid.New().String(),
		SourceDocumentID: source.ID,
		TargetDocumentID: target.ID,
		OverallScore:     overall,
		KeywordScore:     keyword,
		StructuralScore:  structural,
		SemanticScore:    semantic,
		Method:           comparisonMethod,
		MatchedSections:  matchedSectionTypes(source, target),
		Notes:            buildNotes(overall, keyword, source, target),
		ComputedAt:       time.Now(),
	}
	return result, nil
}

// FindSimilarDocuments compares source against every candidate with content
// and a different id, keeps results whose overall score is at least threshold,
// and returns them ordered by descending overall score. Failures against
// individual candidates are logged and skipped.
func (e *Engine) FindSimilarDocuments(source *models.Document, candidates []*models.Document, threshold float64) ([]*models.SimilarityResult, error) {
	if source == nil {
		return nil, fmt.Errorf("nil source document")
	}
	var results []*models.SimilarityResult
	for _, candidate := range candidates {
		if candidate == nil || candidate.ID == source.ID || candidate.Content == nil {
			continue
		}
		result, err := e.CompareDocuments(source, candidate)
		if err != nil {
			if e.logger != nil {
				e.logger.Warn("comparison skipped",
					zap.String("source", source.ID),
					zap.String("target", candidate.ID),
					zap.Error(err))
			}
			continue
		}
		if result.OverallScore >= threshold {
			results = append(results, result)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].OverallScore > results[j].OverallScore
	})
	return results, nil
}

// matchedSectionTypes returns the section types present in both documents,
// sorted for deterministic output.
func matchedSectionTypes(source, target *models.Document) []string {
	targetTypes := make(map[models.SectionType]struct{})
	for _, s := range target.Sections {
		targetTypes[s.Type] = struct{}{}
	}
	seen := make(map[models.SectionType]struct{})
	var matched []string
	for _, s := range source.Sections {
		if _, ok := targetTypes[s.Type]; !ok {
			continue
		}
		if _, dup := seen[s.Type]; dup {
			continue
		}
		seen[s.Type] = struct{}{}
		matched = append(matched, string(s.Type))
	}
	sort.Strings(matched)
	return matched
}

// JaccardKeywords returns the Jaccard index of two comma-separated keyword
// strings, compared lower-cased. Returns 0 if either set is empty.
func JaccardKeywords(keywords1, keywords2 string) float64 {
	set1 := keywordSet(keywords1)
	set2 := keywordSet(keywords2)
	if len(set1) == 0 || len(set2) == 0 {
		return 0.0
	}
	intersection := 0
	for k := range set1 {
		if _, ok := set2[k]; ok {
			intersection++
		}
	}
	union := len(set1) + len(set2) - intersection
	return float64(intersection) / float64(union)
}

func keywordSet(keywords string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, k := range strings.Split(keywords, ",") {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}

// structuralScore weighs protocol equality (0.5), manufacturer equality (0.3)
// and page-count closeness (0.2). Page score degrades linearly up to a
// difference of 5 pages; beyond that a flat 0.5 is used.
func structuralScore(source, target *models.Document) float64 {
	score := 0.0
	if source.Protocol != "" && strings.EqualFold(source.Protocol, target.Protocol) {
		score += 0.5
	}
	if source.Manufacturer != "" && strings.EqualFold(source.Manufacturer, target.Manufacturer) {
		score += 0.3
	}
	pageDiff := math.Abs(float64(source.Content.PageCount - target.Content.PageCount))
	pageScore := 0.5
	if pageDiff <= 5 {
		pageScore = 1.0 - pageDiff/20.0
	}
	return score + 0.2*pageScore
}

// semanticScore is the fraction of the fixed technical vocabulary present in
// both texts (case-insensitive substring match).
func semanticScore(text1, text2 string) float64 {
	lower1 := strings.ToLower(text1)
	lower2 := strings.ToLower(text2)
	shared := 0
	for _, term := range semanticVocabulary {
		if strings.Contains(lower1, term) && strings.Contains(lower2, term) {
			shared++
		}
	}
	return float64(shared) / float64(len(semanticVocabulary))
}

func buildNotes(overall, keyword float64, source, target *models.Document) string {
	var parts []string
	switch {
	case overall > 0.8:
		parts = append(parts, "Very high content similarity")
	case overall > 0.6:
		parts = append(parts, "High content similarity")
	case overall > 0.3:
		parts = append(parts, "Moderate content similarity")
	default:
		parts = append(parts, "Low content similarity")
	}
	if source.Protocol != "" && strings.EqualFold(source.Protocol, target.Protocol) {
		parts = append(parts, fmt.Sprintf("same protocol (%s)", source.Protocol))
	}
	if source.Manufacturer != "" && strings.EqualFold(source.Manufacturer, target.Manufacturer) {
		parts = append(parts, fmt.Sprintf("same manufacturer (%s)", source.Manufacturer))
	}
	if keyword > 0.5 {
		parts = append(parts, "significant keyword overlap")
	}
	return strings.Join(parts, "; ")
}
