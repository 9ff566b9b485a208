// Package tfidf turns free text into sparse term-weight vectors over a derived vocabulary.
package tfidf

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/labdriver/specsim/internal/models"
	"github.com/labdriver/specsim/pkg/utils"
)

const (
	// Document-frequency window for vocabulary admission: terms present in
	// fewer than 5% or more than 80% of the corpus are excluded.
	minDocFreqRatio = 0.05
	maxDocFreqRatio = 0.8

	minTermLength       = 3
	sourceTextStoredLen = 200
)

var termRe = regexp.MustCompile(`\w+`)

// technicalTerms maps lower-cased protocol jargon to its canonical casing.
// These terms always enter the vocabulary regardless of document frequency.
var technicalTerms = map[string]string{
	"astm":   "ASTM",
	"hl7":    "HL7",
	"poct1":  "POCT1",
	"poct1a": "POCT1A",
	"lis":    "LIS",
	"lis1":   "LIS1",
	"lis2":   "LIS2",
	"tcp":    "TCP",
	"rs232":  "RS232",
	"xml":    "XML",
	"crc":    "CRC",
	"ack":    "ACK",
	"nak":    "NAK",
	"enq":    "ENQ",
	"eot":    "EOT",
	"stx":    "STX",
	"etx":    "ETX",
	"obx":    "OBX",
	"msh":    "MSH",
	"qc":     "QC",
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "has": {}, "have": {}, "in": {},
	"is": {}, "it": {}, "its": {}, "of": {}, "on": {}, "or": {}, "that": {},
	"the": {}, "this": {}, "to": {}, "was": {}, "were": {}, "will": {},
	"with": {}, "not": {}, "can": {}, "may": {}, "shall": {}, "must": {},
	"should": {}, "which": {}, "each": {}, "all": {}, "any": {}, "these": {},
	"those": {}, "such": {}, "when": {}, "where": {}, "than": {}, "then": {},
	"there": {}, "their": {}, "been": {}, "other": {}, "into": {}, "also": {},
}

// Vectorizer tokenizes text and builds term-frequency and tf-idf vectors.
// The zero value is not usable; use NewVectorizer.
type Vectorizer struct{}

// NewVectorizer returns a Vectorizer with the fixed stop-word and
// technical-term sets.
func NewVectorizer() *Vectorizer {
	return &Vectorizer{}
}

// Tokenize splits text into word-character terms, lower-cases them, drops
// stop words and purely numeric tokens, and canonicalizes recognized
// technical terms (e.g. "astm" -> "ASTM").
func (v *Vectorizer) Tokenize(text string) []string {
	raw := termRe.FindAllString(text, -1)
	terms := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToLower(t)
		if _, stop := stopWords[t]; stop {
			continue
		}
		if isNumeric(t) {
			continue
		}
		if canonical, ok := technicalTerms[t]; ok {
			t = canonical
		}
		terms = append(terms, t)
	}
	return terms
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// ExtractVocabulary derives a vocabulary from a corpus. A term is admitted if
// it is a whitelisted technical term, or its document-frequency ratio lies in
// [0.05, 0.8] and it is at least three characters long. The result is sorted,
// so the vocabulary is deterministic and independent of document order.
func (v *Vectorizer) ExtractVocabulary(texts []string) []string {
	if len(texts) == 0 {
		return nil
	}
	docFreq := make(map[string]int)
	for _, text := range texts {
		seen := make(map[string]struct{})
		for _, t := range v.Tokenize(text) {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			docFreq[t]++
		}
	}
	total := float64(len(texts))
	vocab := make([]string, 0, len(docFreq))
	for term, df := range docFreq {
		if isTechnicalTerm(term) {
			vocab = append(vocab, term)
			continue
		}
		ratio := float64(df) / total
		if ratio >= minDocFreqRatio && ratio <= maxDocFreqRatio && len(term) >= minTermLength {
			vocab = append(vocab, term)
		}
	}
	sort.Strings(vocab)
	return vocab
}

func isTechnicalTerm(term string) bool {
	for _, canonical := range technicalTerms {
		if term == canonical {
			return true
		}
	}
	return false
}

// TermFrequency returns term -> raw count divided by total term count for text.
// Empty or all-stop-word text yields an empty map.
func (v *Vectorizer) TermFrequency(text string) map[string]float64 {
	terms := v.Tokenize(text)
	tf := make(map[string]float64)
	if len(terms) == 0 {
		return tf
	}
	total := float64(len(terms))
	for _, t := range terms {
		tf[t] += 1.0 / total
	}
	return tf
}

// Vector builds a term-frequency vector for text restricted to vocabulary.
// Vocabulary terms absent from the text get weight 0.0.
func (v *Vectorizer) Vector(text string, vocabulary []string) *models.TfIdfVector {
	tf := v.TermFrequency(text)
	weights := make(map[string]float64, len(vocabulary))
	nonZero := 0
	for _, term := range vocabulary {
		w := tf[term]
		weights[term] = w
		if w > 0 {
			nonZero++
		}
	}
	return &models.TfIdfVector{
		Weights:    weights,
		Magnitude:  Magnitude(weights),
		TermCount:  nonZero,
		SourceText: utils.Truncate(text, sourceTextStoredLen),
	}
}

// TfIdf scores a single text against a corpus: term frequency multiplied by
// ln(documentCount / documentFrequency), where the document count includes
// the query text itself. Zero-weight terms are dropped.
func (v *Vectorizer) TfIdf(text string, corpus []string) map[string]float64 {
	tf := v.TermFrequency(text)
	docCount := float64(len(corpus) + 1)
	weights := make(map[string]float64)
	for term, freq := range tf {
		df := 1.0 // the query text contains the term
		for _, doc := range corpus {
			if containsTerm(v.Tokenize(doc), term) {
				df++
			}
		}
		w := freq * math.Log(docCount/df)
		if w != 0 {
			weights[term] = w
		}
	}
	return weights
}

func containsTerm(terms []string, term string) bool {
	for _, t := range terms {
		if t == term {
			return true
		}
	}
	return false
}

// Magnitude returns the Euclidean (L2) magnitude of a weight map.
func Magnitude(weights map[string]float64) float64 {
	var sum float64
	for _, w := range weights {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// CosineSimilarity returns the cosine of two term-weight maps: dot product
// over the union of keys divided by the product of magnitudes. Returns 0.0
// when either magnitude is zero.
func CosineSimilarity(a, b map[string]float64) float64 {
	magA := Magnitude(a)
	magB := Magnitude(b)
	if magA == 0 || magB == 0 {
		return 0.0
	}
	var dot float64
	for term, wa := range a {
		dot += wa * b[term] // missing key yields weight 0
	}
	return dot / (magA * magB)
}
