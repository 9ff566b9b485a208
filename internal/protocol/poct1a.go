package protocol

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/labdriver/specsim/internal/models"
)

// POCT1AParser extracts structure from POCT1-A connectivity specifications.
// POCT1-A messages are XML topics named like "OBS.R01".
type POCT1AParser struct{}

// NewPOCT1AParser returns a POCT1-A parser.
func NewPOCT1AParser() *POCT1AParser {
	return &POCT1AParser{}
}

var (
	poct1aNameRe    = regexp.MustCompile(`(?i)\bPOCT\s?1-?A?\b|point[- ]of[- ]care\s+connectivity`)
	poct1aVersionRe = regexp.MustCompile(`(?i)POCT\s?1-?A?\s*(?:version|ver\.?|v)?\s*(\d+(?:\.\d+)+)`)
	genericVerRe    = regexp.MustCompile(`(?i)\bversion\s*:?\s*(\d+(?:\.\d+)+)`)

	// Topic names: three upper-case letters, a dot, R and two digits.
	poct1aTopicRe = regexp.MustCompile(`\b([A-Z]{3})\.R(\d{2})\b`)

	// POCT1-A field naming convention: snake_case with a type suffix.
	poct1aFieldRe = regexp.MustCompile(`\b([a-z][a-z0-9]*(?:_[a-z0-9]+)*_(cd|id|dttm|qty|txt|nbr))\b`)

	// XML message example blocks. Closing tag is matched by shape, not by
	// backreference; good enough for excerpting examples from prose.
	poct1aExampleRe = regexp.MustCompile(`(?s)<([A-Z]{3}\.R\d{2})[^>]*>.*?</[A-Z]{3}\.R\d{2}>`)

	serialRe  = regexp.MustCompile(`(?i)\b(RS-?232|serial\s+(?:port|line|interface|communication))\b`)
	tcpPortRe = regexp.MustCompile(`(?i)\bTCP(?:/IP)?\b[^\n]{0,60}?port\s*(\d{2,5})`)
	tcpRe     = regexp.MustCompile(`(?i)\bTCP(?:/IP)?\b`)
)

// poct1aFieldTypes maps POCT1-A field-name suffixes to inferred types.
var poct1aFieldTypes = map[string]string{
	"dttm": "DateTime",
	"qty":  "Numeric",
	"nbr":  "Numeric",
	"cd":   "String",
	"id":   "String",
	"txt":  "String",
}

func (p *POCT1AParser) Name() string              { return "poct1a" }
func (p *POCT1AParser) Protocol() models.Protocol { return models.ProtocolPOCT1A }

// CanParse requires both a POCT1-A name mention and format vocabulary.
func (p *POCT1AParser) CanParse(text string) bool {
	return poct1aNameRe.MatchString(text) && formatKeywordRe.MatchString(text)
}

// Parse extracts POCT1-A structure from the text.
func (p *POCT1AParser) Parse(text string) (result *ParseResult) {
	defer func() {
		if r := recover(); r != nil {
			result = failedParse(models.ProtocolPOCT1A, r)
		}
	}()

	result = &ParseResult{
		Success:              true,
		Protocol:             models.ProtocolPOCT1A,
		Version:              firstCapture(text, unknownVersion, poct1aVersionRe, genericVerRe),
		MessageFormats:       p.messageFormats(text),
		DataFields:           p.dataFields(text),
		CommunicationDetails: communicationDetails(text),
		Examples:             boundedExamples(poct1aExampleRe.FindAllString(text, -1)),
		KeySections:          keySectionIndex(text),
	}
	return result
}

// messageFormats collects distinct topic names with the line they first
// appear on as description.
func (p *POCT1AParser) messageFormats(text string) []MessageFormat {
	seen := make(map[string]struct{})
	var formats []MessageFormat
	for _, loc := range poct1aTopicRe.FindAllStringIndex(text, -1) {
		name := text[loc[0]:loc[1]]
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		formats = append(formats, MessageFormat{
			Name:        name,
			Structure:   "XML",
			Description: surroundingLine(text, loc[0]),
		})
	}
	return formats
}

func (p *POCT1AParser) dataFields(text string) []DataField {
	seen := make(map[string]struct{})
	var fields []DataField
	for _, m := range poct1aFieldRe.FindAllStringSubmatch(text, -1) {
		name, suffix := m[1], m[2]
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		fieldType := poct1aFieldTypes[suffix]
		if fieldType == "" {
			fieldType = "String"
		}
		fields = append(fields, DataField{
			Name:        name,
			Type:        fieldType,
			Description: fmt.Sprintf("POCT1-A field (%s suffix)", suffix),
		})
	}
	return fields
}

// communicationDetails detects transport mentions. Shared with the ASTM parser.
func communicationDetails(text string) []string {
	var details []string
	if m := serialRe.FindString(text); m != "" {
		if strings.Contains(strings.ToUpper(m), "232") {
			details = append(details, "Serial (RS-232)")
		} else {
			details = append(details, "Serial")
		}
	}
	if m := tcpPortRe.FindStringSubmatch(text); len(m) > 1 {
		details = append(details, "TCP port "+m[1])
	} else if tcpRe.MatchString(text) {
		details = append(details, "TCP")
	}
	return details
}

var poct1aSectionRules = []sectionRule{
	{models.SectionMessageFormat, regexp.MustCompile(`(?is)message\s+(?:format|structure|topic)s?[^\n]*\n.{0,1000}?(?:\n\s*\n|\z)`)},
	{models.SectionDataFields, regexp.MustCompile(`(?is)(?:data\s+fields?|field\s+definitions?)[^\n]*\n.{0,1000}?(?:\n\s*\n|\z)`)},
	{models.SectionCommunication, regexp.MustCompile(`(?is)(?:communication|transport|connection)\s+[^\n]*\n.{0,1000}?(?:\n\s*\n|\z)`)},
	{models.SectionExamples, regexp.MustCompile(`(?is)examples?[^\n]*\n.{0,1000}?(?:\n\s*\n|\z)`)},
}

// ExtractSections re-scans the text with POCT1-A section patterns.
func (p *POCT1AParser) ExtractSections(text, documentID string) []*models.DocumentSection {
	return extractTypedSections(text, documentID, poct1aSectionRules)
}
