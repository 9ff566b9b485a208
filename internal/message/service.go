// Package message parses embedded protocol message instances out of document
// text and classifies documents as specifications or trace logs.
package message

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/labdriver/specsim/internal/models"
	"go.uber.org/zap"
)

var (
	// XML-like blocks whose root tag follows the POCT1-A topic pattern
	// (three letters, dot, R, two digits). The closing tag is matched by
	// shape rather than backreference.
	poct1aBlockRe = regexp.MustCompile(`(?s)<([A-Z]{3}\.R\d{2})[^>]*>.*?</[A-Z]{3}\.R\d{2}>`)

	// Pipe-delimited ASTM blocks: an H|\^& header through the L|n|x
	// terminator record.
	astmBlockRe = regexp.MustCompile(`(?s)H\|\\\^&.*?L\|\d+\|[A-Z]`)

	poct1aRootRe = regexp.MustCompile(`^<(?:\?xml[^>]*\?>\s*<)?[A-Z]{3}\.R\d{2}`)

	poct1aTypeRe = regexp.MustCompile(`\b[A-Z]{3}\.R\d{2}\b`)
)

// Service parses message instances and classifies document text.
type Service struct {
	logger *zap.Logger // optional
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets a logger for parse diagnostics.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService returns a message parsing service.
func NewService(opts ...ServiceOption) *Service {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ParseDocumentMessages scans text for embedded message instances of any
// supported protocol and parses each one. Results are sorted by raw-content
// length ascending as a stable display order.
func (s *Service) ParseDocumentMessages(text string) []*models.ParsedMessage {
	var messages []*models.ParsedMessage
	for _, raw := range poct1aBlockRe.FindAllString(text, -1) {
		messages = append(messages, s.ParseMessage(raw, models.ProtocolUnknown))
	}
	for _, raw := range astmBlockRe.FindAllString(text, -1) {
		messages = append(messages, s.ParseMessage(raw, models.ProtocolUnknown))
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return len(messages[i].RawContent) < len(messages[j].RawContent)
	})
	return messages
}

// ParseMessage parses one raw message instance. When forced is
// ProtocolUnknown, the protocol is auto-detected from the content.
func (s *Service) ParseMessage(raw string, forced models.Protocol) *models.ParsedMessage {
	protocol := forced
	if protocol == models.ProtocolUnknown || protocol == "" {
		protocol = detectProtocol(raw)
	}
	switch protocol {
	case models.ProtocolPOCT1A:
		return s.parsePOCT1A(raw)
	case models.ProtocolASTM:
		return s.parseASTM(raw)
	default:
		return &models.ParsedMessage{
			Protocol:   models.ProtocolUnknown,
			RawContent: raw,
			IsValid:    false,
			Errors:     []string{"unrecognized message protocol"},
		}
	}
}

// detectProtocol inspects raw content: an XML declaration or topic-pattern
// root tag means POCT1-A, an H| header containing the \^& delimiter
// definition means ASTM.
func detectProtocol(raw string) models.Protocol {
	trimmed := strings.TrimSpace(raw)
	if poct1aRootRe.MatchString(trimmed) || strings.HasPrefix(trimmed, "<?xml") {
		return models.ProtocolPOCT1A
	}
	if strings.HasPrefix(trimmed, "H|") && strings.Contains(trimmed, `\^&`) {
		return models.ProtocolASTM
	}
	return models.ProtocolUnknown
}

// xmlNode is a generic XML tree node for flattening POCT1-A messages.
type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []xmlNode  `xml:",any"`
}

// parsePOCT1A decodes the XML tree and flattens it into dotted field paths.
// The attribute V is preferred over element text as a field value. The root
// tag is looked up in the static message-profile catalog; unknown types are
// marked invalid.
func (s *Service) parsePOCT1A(raw string) *models.ParsedMessage {
	msg := &models.ParsedMessage{
		Protocol:   models.ProtocolPOCT1A,
		RawContent: raw,
		Fields:     make(map[string]string),
	}
	var root xmlNode
	if err := xml.Unmarshal([]byte(strings.TrimSpace(raw)), &root); err != nil {
		msg.IsValid = false
		msg.Errors = append(msg.Errors, fmt.Sprintf("xml parse: %v", err))
		return msg
	}
	msg.MessageType = root.XMLName.Local

	for _, child := range root.Children {
		segment := &models.MessageSegment{Name: child.XMLName.Local}
		flattenNode(child, child.XMLName.Local, msg.Fields, segment)
		msg.Segments = append(msg.Segments, segment)
	}

	profile := ProfileFor(msg.MessageType)
	if profile == nil {
		msg.IsValid = false
		msg.Errors = append(msg.Errors, fmt.Sprintf("unknown POCT1-A message type: %s", msg.MessageType))
		return msg
	}
	msg.Profile = profile
	msg.IsValid = true
	return msg
}

// flattenNode records leaf values under their dotted path and collects
// fields for the enclosing segment.
func flattenNode(node xmlNode, path string, fields map[string]string, segment *models.MessageSegment) {
	if len(node.Children) == 0 {
		value := nodeValue(node)
		fields[path] = value
		segment.Fields = append(segment.Fields, &models.MessageField{
			ID:    path,
			Name:  node.XMLName.Local,
			Value: value,
		})
		return
	}
	for _, child := range node.Children {
		flattenNode(child, joinPath(path, child.XMLName.Local), fields, segment)
	}
}

// joinPath appends a child element name to a dotted path. POCT1-A field
// elements carry their enclosing element's prefix (OBS.observation_id inside
// OBS), so a name that repeats the last path component is merged rather than
// appended.
func joinPath(parent, name string) string {
	last := parent
	if i := strings.LastIndexByte(parent, '.'); i >= 0 {
		last = parent[i+1:]
	}
	if strings.HasPrefix(name, last+".") {
		return parent + name[len(last):]
	}
	return parent + "." + name
}

func nodeValue(node xmlNode) string {
	for _, attr := range node.Attrs {
		if attr.Name.Local == "V" {
			return attr.Value
		}
	}
	return strings.TrimSpace(node.Text)
}

// parseASTM splits the raw content into lines and maps each to a segment by
// its leading record-type character. Fields are split on | and zipped
// against the static per-segment field definitions. The message is valid iff
// at least one recognized segment was produced.
func (s *Service) parseASTM(raw string) *models.ParsedMessage {
	msg := &models.ParsedMessage{
		Protocol:    models.ProtocolASTM,
		MessageType: "ASTM",
		RawContent:  raw,
		Fields:      make(map[string]string),
	}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		recordType := strings.ToUpper(line[:1])
		name, known := astmSegmentNames[recordType]
		if !known || (len(line) > 1 && line[1] != '|') {
			msg.Errors = append(msg.Errors, fmt.Sprintf("unrecognized record: %q", truncateLine(line)))
			continue
		}
		segment := &models.MessageSegment{Name: recordType, Description: name}
		defs := astmFieldDefs[recordType]
		for i, value := range strings.Split(line, "|") {
			field := &models.MessageField{
				ID:    fmt.Sprintf("%s.%d", recordType, i+1),
				Name:  fmt.Sprintf("Field %d", i+1),
				Value: value,
			}
			if i < len(defs) {
				field.Name = defs[i].Name
				field.Required = defs[i].Required
			}
			segment.Fields = append(segment.Fields, field)
			if field.Value != "" {
				msg.Fields[field.ID] = field.Value
			}
		}
		msg.Segments = append(msg.Segments, segment)
	}
	msg.IsValid = len(msg.Segments) > 0
	if !msg.IsValid {
		msg.Errors = append(msg.Errors, "no recognized ASTM segments")
	}
	// Sender name from the header record makes a more useful display type.
	if sender := msg.Fields["H.5"]; sender != "" {
		msg.MessageType = "ASTM " + strings.SplitN(sender, "^", 2)[0]
	}
	return msg
}

func truncateLine(line string) string {
	if len(line) > 40 {
		return line[:40] + "..."
	}
	return line
}
