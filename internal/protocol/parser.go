// Package protocol provides best-effort parsers that extract structured
// message, field, and section data from protocol specification text.
// Parsers are pattern-matching extractors over human-authored prose, not
// conformance validators.
package protocol

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/labdriver/specsim/internal/models"
)

// Parser extracts structured content from specification text for one protocol.
type Parser interface {
	// Name returns a short parser name for logging.
	Name() string
	// Protocol returns the protocol this parser handles.
	Protocol() models.Protocol
	// CanParse reports whether the text looks like this parser's protocol.
	// Both a protocol-name match and a message/field-format keyword match are
	// required, so incidental protocol-name mentions do not trigger a parse.
	CanParse(text string) bool
	// Parse extracts version, message formats, data fields, communication
	// details, examples, and a key-section index. It never panics outward:
	// internal faults are returned as a failed result.
	Parse(text string) *ParseResult
	// ExtractSections re-scans the text with section-type-specific patterns
	// and returns ordered document sections. Excerpts shorter than the
	// minimum section length are discarded as noise.
	ExtractSections(text, documentID string) []*models.DocumentSection
}

// ParseResult is the outcome of a full parse.
type ParseResult struct {
	Success              bool              `json:"success"`
	Error                string            `json:"error,omitempty"`
	Protocol             models.Protocol   `json:"protocol"`
	Version              string            `json:"version"`
	MessageFormats       []MessageFormat   `json:"message_formats,omitempty"`
	DataFields           []DataField       `json:"data_fields,omitempty"`
	CommunicationDetails []string          `json:"communication_details,omitempty"`
	Examples             []string          `json:"examples,omitempty"`
	KeySections          map[string]string `json:"key_sections,omitempty"`
}

// MessageFormat is one named message format found in the text.
type MessageFormat struct {
	Name        string `json:"name"`
	Structure   string `json:"structure"`
	Description string `json:"description,omitempty"`
}

// DataField is one data field definition found in the text.
type DataField struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// DefaultParsers returns the parsers in registration order. Selection is
// first-match over this order, not confidence-based.
func DefaultParsers() []Parser {
	return []Parser{
		NewPOCT1AParser(),
		NewASTMParser(),
		NewHL7Parser(),
	}
}

// SelectParser returns the first parser whose CanParse is true, or nil.
func SelectParser(parsers []Parser, text string) Parser {
	for _, p := range parsers {
		if p.CanParse(text) {
			return p
		}
	}
	return nil
}

const (
	// minSectionLength is the minimum excerpt length for an extracted section.
	minSectionLength = 50

	minExampleLength = 50
	maxExampleLength = 2000

	unknownVersion = "Unknown"
)

// formatKeywordRe matches generic message/field-format vocabulary. Used by
// CanParse to confirm the text actually describes a message grammar.
var formatKeywordRe = regexp.MustCompile(`(?i)message\s+(?:format|structure|type)|field\s+(?:definition|description|format)|record\s+(?:type|format|layout)|segment\s+(?:definition|structure)|data\s+field`)

// outlineRe matches numbered outline headings like "4.2.1 Observation Message".
var outlineRe = regexp.MustCompile(`(?m)^\s*(\d+(?:\.\d+)+)\s+(\S[^\n]{2,79})$`)

// keySectionIndex builds an outline-number -> heading map from the text.
func keySectionIndex(text string) map[string]string {
	matches := outlineRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	sections := make(map[string]string, len(matches))
	for _, m := range matches {
		sections[m[1]] = strings.TrimSpace(m[2])
	}
	return sections
}

// boundedExamples filters candidate example excerpts by length heuristics:
// too-short matches are noise, too-long ones are whole chapters.
func boundedExamples(candidates []string) []string {
	var examples []string
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if len(c) < minExampleLength || len(c) > maxExampleLength {
			continue
		}
		examples = append(examples, c)
	}
	return examples
}

// sectionRule ties a section type to the pattern that locates its excerpt.
type sectionRule struct {
	Type models.SectionType
	Re   *regexp.Regexp
}

// extractTypedSections applies each rule to the text and emits sections
// ordered by their offset in the document. Candidates below the minimum
// length are discarded.
func extractTypedSections(text, documentID string, rules []sectionRule) []*models.DocumentSection {
	type candidate struct {
		offset  int
		section *models.DocumentSection
	}
	var candidates []candidate
	for _, rule := range rules {
		for _, loc := range rule.Re.FindAllStringIndex(text, -1) {
			excerpt := strings.TrimSpace(text[loc[0]:loc[1]])
			if len(excerpt) < minSectionLength {
				continue
			}
			title := excerpt
			if nl := strings.IndexByte(title, '\n'); nl >= 0 {
				title = title[:nl]
			}
			title = strings.TrimSpace(title)
			candidates = append(candidates, candidate{
				offset: loc[0],
				section: &models.DocumentSection{
					ID:         fmt.Sprintf("%s-%s-%d", documentID, strings.ToLower(string(rule.Type)), loc[0]),
					DocumentID: documentID,
					Type:       rule.Type,
					Title:      title,
					Content:    excerpt,
				},
			})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].offset < candidates[j].offset })
	sections := make([]*models.DocumentSection, len(candidates))
	for i, c := range candidates {
		c.section.Position = i
		sections[i] = c.section
	}
	return sections
}

// failedParse wraps an internal fault as a parse failure.
func failedParse(protocol models.Protocol, cause any) *ParseResult {
	return &ParseResult{
		Success:  false,
		Error:    fmt.Sprintf("parse failed: %v", cause),
		Protocol: protocol,
		Version:  unknownVersion,
	}
}

// firstCapture returns the first capture group of the first regex that
// matches, or fallback.
func firstCapture(text string, fallback string, regexes ...*regexp.Regexp) string {
	for _, re := range regexes {
		if m := re.FindStringSubmatch(text); len(m) > 1 && m[1] != "" {
			return strings.TrimSpace(m[1])
		}
	}
	return fallback
}

// surroundingLine returns the full line of text containing offset.
func surroundingLine(text string, offset int) string {
	start := strings.LastIndexByte(text[:offset], '\n') + 1
	end := strings.IndexByte(text[offset:], '\n')
	if end < 0 {
		end = len(text)
	} else {
		end += offset
	}
	return strings.TrimSpace(text[start:end])
}
