package protocol

import (
	"regexp"
	"strings"

	"github.com/labdriver/specsim/internal/models"
)

// ASTMParser extracts structure from ASTM E1381/E1394 (LIS1-A/LIS2-A)
// laboratory interface specifications. ASTM messages are pipe-delimited
// records identified by a single-letter record type.
type ASTMParser struct{}

// NewASTMParser returns an ASTM parser.
func NewASTMParser() *ASTMParser {
	return &ASTMParser{}
}

var (
	astmNameRe    = regexp.MustCompile(`(?i)\bASTM\b|\bE\s?138[14]\b|\bE\s?1394\b|\bLIS[12]-A\b`)
	astmVersionRe = regexp.MustCompile(`(?i)\bE\s?13(?:81|94)[-\s]?(\d{2})\b`)
	astmLISRe     = regexp.MustCompile(`(?i)\b(LIS[12]-A\d*)\b`)

	// Record-name phrases like "Patient Information Record" or "result record".
	astmRecordPhraseRe = regexp.MustCompile(`(?i)\b(header|patient|test order|order|result|comment|request information|query|scientific|manufacturer information|terminator)\s+(?:information\s+)?record\b`)

	// Pipe-delimited example blocks: header record through terminator record.
	astmExampleRe = regexp.MustCompile(`(?s)H\|\\\^&.*?L\|\d+\|[A-Z]`)

	// Field-definition phrases like "Sequence Number field".
	astmFieldPhraseRe = regexp.MustCompile(`(?m)\b([A-Z][a-z]+(?:[ /][A-Z]?[a-z]+){0,3})\s+[Ff]ield\b`)
)

// astmRecordTypes maps record names to their single-character record type.
var astmRecordTypes = map[string]string{
	"header":                   "H",
	"patient":                  "P",
	"test order":               "O",
	"order":                    "O",
	"result":                   "R",
	"comment":                  "C",
	"request information":      "Q",
	"query":                    "Q",
	"scientific":               "S",
	"manufacturer information": "M",
	"terminator":               "L",
}

func (p *ASTMParser) Name() string              { return "astm" }
func (p *ASTMParser) Protocol() models.Protocol { return models.ProtocolASTM }

// CanParse requires both an ASTM/LIS name mention and format vocabulary.
func (p *ASTMParser) CanParse(text string) bool {
	return astmNameRe.MatchString(text) && formatKeywordRe.MatchString(text)
}

// Parse extracts ASTM structure from the text.
func (p *ASTMParser) Parse(text string) (result *ParseResult) {
	defer func() {
		if r := recover(); r != nil {
			result = failedParse(models.ProtocolASTM, r)
		}
	}()

	result = &ParseResult{
		Success:              true,
		Protocol:             models.ProtocolASTM,
		Version:              p.version(text),
		MessageFormats:       p.messageFormats(text),
		DataFields:           p.dataFields(text),
		CommunicationDetails: communicationDetails(text),
		Examples:             boundedExamples(astmExampleRe.FindAllString(text, -1)),
		KeySections:          keySectionIndex(text),
	}
	return result
}

func (p *ASTMParser) version(text string) string {
	if m := astmVersionRe.FindStringSubmatch(text); len(m) > 1 {
		return "E1394-" + m[1]
	}
	return firstCapture(text, unknownVersion, astmLISRe, genericVerRe)
}

func (p *ASTMParser) messageFormats(text string) []MessageFormat {
	seen := make(map[string]struct{})
	var formats []MessageFormat
	for _, loc := range astmRecordPhraseRe.FindAllStringSubmatchIndex(text, -1) {
		kind := strings.ToLower(text[loc[2]:loc[3]])
		recordType, ok := astmRecordTypes[kind]
		if !ok {
			continue
		}
		if _, dup := seen[recordType]; dup {
			continue
		}
		seen[recordType] = struct{}{}
		formats = append(formats, MessageFormat{
			Name:        titleCase(kind) + " Record",
			Structure:   recordType,
			Description: surroundingLine(text, loc[0]),
		})
	}
	return formats
}

func (p *ASTMParser) dataFields(text string) []DataField {
	seen := make(map[string]struct{})
	var fields []DataField
	for _, m := range astmFieldPhraseRe.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		// The capture is leftmost-greedy and can swallow a leading article.
		for _, article := range []string{"The ", "Each ", "A ", "This "} {
			name = strings.TrimPrefix(name, article)
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		fields = append(fields, DataField{
			Name:        name,
			Type:        inferFieldType(name),
			Description: "ASTM record field",
		})
	}
	return fields
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// inferFieldType guesses a field type from its name; defaults to String.
func inferFieldType(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "date") || strings.Contains(lower, "time"):
		return "DateTime"
	case strings.Contains(lower, "number") || strings.Contains(lower, "count") ||
		strings.Contains(lower, "sequence"):
		return "Numeric"
	default:
		return "String"
	}
}

var astmSectionRules = []sectionRule{
	{models.SectionMessageFormat, regexp.MustCompile(`(?is)(?:record\s+(?:format|layout|type)s?|message\s+formats?)[^\n]*\n.{0,1000}?(?:\n\s*\n|\z)`)},
	{models.SectionDataFields, regexp.MustCompile(`(?is)(?:data\s+fields?|field\s+(?:definition|description)s?)[^\n]*\n.{0,1000}?(?:\n\s*\n|\z)`)},
	{models.SectionCommunication, regexp.MustCompile(`(?is)(?:communication|transmission|data\s+link)\s+[^\n]*\n.{0,1000}?(?:\n\s*\n|\z)`)},
	{models.SectionExamples, regexp.MustCompile(`(?is)examples?[^\n]*\n.{0,1000}?(?:\n\s*\n|\z)`)},
}

// ExtractSections re-scans the text with ASTM section patterns.
func (p *ASTMParser) ExtractSections(text, documentID string) []*models.DocumentSection {
	return extractTypedSections(text, documentID, astmSectionRules)
}
