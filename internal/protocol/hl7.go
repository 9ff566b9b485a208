package protocol

import (
	"regexp"

	"github.com/labdriver/specsim/internal/models"
)

// HL7Parser extracts structure from HL7 v2.x interface specifications.
// HL7 messages are pipe-delimited segments (MSH, PID, OBX, ...) grouped into
// typed messages like ORU^R01.
type HL7Parser struct{}

// NewHL7Parser returns an HL7 parser.
func NewHL7Parser() *HL7Parser {
	return &HL7Parser{}
}

var (
	hl7NameRe    = regexp.MustCompile(`(?i)\bHL7\b|health\s+level\s+(?:seven|7)`)
	hl7VersionRe = regexp.MustCompile(`(?i)\bHL7\s*(?:version|ver\.?|v)?\s*(\d+\.\d+(?:\.\d+)?)`)

	// Message types like ORU^R01 or a bare trigger mention "ORU message".
	hl7MessageTypeRe = regexp.MustCompile(`\b(ORU|ORM|ORL|OUL|ACK|ADT|QRY|QBP|RSP|MDM)\^([A-Z]\d{2})\b`)
	hl7BareTypeRe    = regexp.MustCompile(`\b(ORU|ORM|ORL|OUL|ACK|ADT|QRY|QBP|RSP|MDM)\s+message`)

	// Known segment identifiers, either at line start in examples or in prose.
	hl7SegmentRe = regexp.MustCompile(`\b(MSH|PID|PV1|OBR|OBX|NTE|MSA|ORC|QRD|SPM|SAC)\b`)

	// Field references like OBX-5 or PID-3.
	hl7FieldRefRe = regexp.MustCompile(`\b(MSH|PID|PV1|OBR|OBX|NTE|MSA|ORC|QRD|SPM|SAC)-(\d{1,2})\b`)

	// Example blocks: an MSH segment followed by more segment lines.
	hl7ExampleRe = regexp.MustCompile(`(?m)^MSH\|[^\n]*(?:\n(?:[A-Z][A-Z0-9]{2})\|[^\n]*)*`)
)

// hl7SegmentNames describes the known segments.
var hl7SegmentNames = map[string]string{
	"MSH": "Message Header",
	"PID": "Patient Identification",
	"PV1": "Patient Visit",
	"OBR": "Observation Request",
	"OBX": "Observation Result",
	"NTE": "Notes and Comments",
	"MSA": "Message Acknowledgment",
	"ORC": "Common Order",
	"QRD": "Query Definition",
	"SPM": "Specimen",
	"SAC": "Specimen Container",
}

func (p *HL7Parser) Name() string              { return "hl7" }
func (p *HL7Parser) Protocol() models.Protocol { return models.ProtocolHL7 }

// CanParse requires both an HL7 name mention and format vocabulary.
func (p *HL7Parser) CanParse(text string) bool {
	return hl7NameRe.MatchString(text) && formatKeywordRe.MatchString(text)
}

// Parse extracts HL7 structure from the text.
func (p *HL7Parser) Parse(text string) (result *ParseResult) {
	defer func() {
		if r := recover(); r != nil {
			result = failedParse(models.ProtocolHL7, r)
		}
	}()

	result = &ParseResult{
		Success:              true,
		Protocol:             models.ProtocolHL7,
		Version:              firstCapture(text, unknownVersion, hl7VersionRe, genericVerRe),
		MessageFormats:       p.messageFormats(text),
		DataFields:           p.dataFields(text),
		CommunicationDetails: communicationDetails(text),
		Examples:             boundedExamples(hl7ExampleRe.FindAllString(text, -1)),
		KeySections:          keySectionIndex(text),
	}
	return result
}

// messageFormats collects typed messages (ORU^R01) and bare trigger mentions.
func (p *HL7Parser) messageFormats(text string) []MessageFormat {
	seen := make(map[string]struct{})
	var formats []MessageFormat
	for _, loc := range hl7MessageTypeRe.FindAllStringIndex(text, -1) {
		name := text[loc[0]:loc[1]]
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		formats = append(formats, MessageFormat{
			Name:        name,
			Structure:   "Segments",
			Description: surroundingLine(text, loc[0]),
		})
	}
	for _, m := range hl7BareTypeRe.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		formats = append(formats, MessageFormat{
			Name:      name,
			Structure: "Segments",
		})
	}
	return formats
}

// dataFields collects segment-field references (e.g. OBX-5) with the segment
// name as context.
func (p *HL7Parser) dataFields(text string) []DataField {
	seen := make(map[string]struct{})
	var fields []DataField
	for _, m := range hl7FieldRefRe.FindAllStringSubmatch(text, -1) {
		ref := m[1] + "-" + m[2]
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		fields = append(fields, DataField{
			Name:        ref,
			Type:        "String",
			Description: hl7SegmentNames[m[1]] + " field " + m[2],
		})
	}
	return fields
}

var hl7SectionRules = []sectionRule{
	{models.SectionMessageFormat, regexp.MustCompile(`(?is)\b(?:ORU|ORM|ACK|ADT|OUL)\^?[A-Z]?\d*\s+message[^\n]*\n.{0,1000}?(?:\n\s*\n|\z)`)},
	{models.SectionDataFields, regexp.MustCompile(`(?is)\b(?:MSH|PID|OBR|OBX|MSA|ORC)\s+segment[^\n]*\n.{0,1000}?(?:\n\s*\n|\z)`)},
	{models.SectionCommunication, regexp.MustCompile(`(?is)(?:MLLP|lower\s+layer\s+protocol|communication)\s*[^\n]*\n.{0,1000}?(?:\n\s*\n|\z)`)},
	{models.SectionExamples, regexp.MustCompile(`(?is)examples?[^\n]*\n.{0,1000}?(?:\n\s*\n|\z)`)},
}

// ExtractSections re-scans the text with HL7 segment- and message-type
// specific patterns.
func (p *HL7Parser) ExtractSections(text, documentID string) []*models.DocumentSection {
	return extractTypedSections(text, documentID, hl7SectionRules)
}
