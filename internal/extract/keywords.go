package extract

import (
	"regexp"
	"sort"
	"strings"
)

const pageKeywordLimit = 10

var wordRe = regexp.MustCompile(`[A-Za-z][A-Za-z0-9]{2,}`)

// keywordStopWords are common words excluded from per-page keyword statistics.
var keywordStopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "with": {}, "that": {},
	"this": {}, "from": {}, "have": {}, "has": {}, "will": {}, "shall": {},
	"can": {}, "not": {}, "all": {}, "any": {}, "its": {}, "may": {},
	"was": {}, "were": {}, "been": {}, "which": {}, "when": {}, "where": {},
	"there": {}, "their": {}, "each": {}, "other": {}, "than": {}, "then": {},
	"these": {}, "those": {}, "such": {}, "used": {}, "use": {}, "into": {},
	"also": {}, "must": {}, "should": {}, "page": {}, "section": {},
}

// TopKeywords returns the n most frequent non-stop-word terms in text,
// lower-cased, ordered by descending frequency with alphabetical tie-break.
func TopKeywords(text string, n int) []string {
	counts := make(map[string]int)
	for _, w := range wordRe.FindAllString(text, -1) {
		w = strings.ToLower(w)
		if _, stop := keywordStopWords[w]; stop {
			continue
		}
		counts[w]++
	}
	terms := make([]string, 0, len(counts))
	for t := range counts {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > n {
		terms = terms[:n]
	}
	return terms
}
