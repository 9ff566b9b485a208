package message

import (
	"fmt"
	"strings"

	"github.com/labdriver/specsim/internal/models"
	"go.uber.org/zap"
)

// DocumentType is the outcome of document classification.
type DocumentType string

const (
	DocTypeUnknown       DocumentType = "Unknown"
	DocTypeSpecification DocumentType = "Specification"
	DocTypeTraceLog      DocumentType = "TraceLog"
	DocTypeMixed         DocumentType = "Mixed"
)

// Classification holds the classification verdict with the scores that
// produced it.
type Classification struct {
	Type          DocumentType
	SpecScore     int
	TraceScore    int
	DistinctTypes int
	InstanceCount int
	Density       float64
}

// Keyword lists for the classification heuristic. Matching is
// case-insensitive substring counting, not word-boundary matching.
var (
	specKeywords = []string{
		"specification", "shall", "must", "interface", "message format",
		"field description", "table", "section", "chapter", "appendix",
		"conformance", "definition",
	}
	traceKeywords = []string{
		"timestamp", "session", "sequence number", "received", "sent",
		"log", "trace", "connected", "disconnected", "bytes",
	}
)

// ClassifyDocumentType scores text against specification and trace-log
// keyword lists plus message-instance statistics. Ties lean toward
// Specification.
func (s *Service) ClassifyDocumentType(text string) *Classification {
	lower := strings.ToLower(text)

	c := &Classification{}
	for _, kw := range specKeywords {
		c.SpecScore += strings.Count(lower, kw)
	}
	for _, kw := range traceKeywords {
		c.TraceScore += strings.Count(lower, kw)
	}

	types := make(map[string]struct{})
	for _, t := range poct1aTypeRe.FindAllString(text, -1) {
		types[t] = struct{}{}
		c.InstanceCount++
	}
	c.DistinctTypes = len(types)
	if len(text) > 0 {
		c.Density = float64(c.InstanceCount) / float64(len(text)) * 1000
	}

	if c.DistinctTypes >= 5 {
		c.SpecScore += 3
	} else if c.DistinctTypes >= 3 {
		c.SpecScore += 2
	}
	if c.DistinctTypes <= 2 && c.InstanceCount > 50 {
		c.TraceScore += 2
	}
	if c.Density > 1.0 {
		c.TraceScore += 3
	} else if c.Density > 0.5 {
		c.TraceScore += 2
	} else if c.Density < 0.1 {
		c.SpecScore += 2
	}

	switch {
	case c.SpecScore > c.TraceScore && c.SpecScore > 3:
		c.Type = DocTypeSpecification
	case c.TraceScore > c.SpecScore && c.TraceScore > 3:
		c.Type = DocTypeTraceLog
	case c.SpecScore > c.TraceScore:
		c.Type = DocTypeSpecification
	case c.TraceScore > c.SpecScore:
		c.Type = DocTypeTraceLog
	case c.SpecScore > 0 || c.TraceScore > 0:
		c.Type = DocTypeMixed
	default:
		c.Type = DocTypeUnknown
	}
	return c
}

// AnalysisResult is the output of advanced parsing: classified document
// type, parsed messages (grouped for specifications), and a summary line.
type AnalysisResult struct {
	Classification *Classification
	Messages       []*models.ParsedMessage
	Summary        string
}

// ParseDocumentMessagesAdvanced classifies the text, then arranges parsed
// messages accordingly. Specification documents get one representative per
// message type with its siblings attached as Examples; trace logs keep every
// instance as a primary entry.
func (s *Service) ParseDocumentMessagesAdvanced(text string) *AnalysisResult {
	classification := s.ClassifyDocumentType(text)
	parsed := s.ParseDocumentMessages(text)

	result := &AnalysisResult{Classification: classification}
	if classification.Type == DocTypeSpecification {
		result.Messages = groupByType(parsed)
	} else {
		result.Messages = parsed
	}
	result.Summary = fmt.Sprintf("classified as %s: %d message types, %d instances (%d parsed)",
		classification.Type, classification.DistinctTypes, classification.InstanceCount, len(parsed))

	if s.logger != nil {
		s.logger.Debug("document analysis",
			zap.String("type", string(classification.Type)),
			zap.Int("specScore", classification.SpecScore),
			zap.Int("traceScore", classification.TraceScore),
			zap.Int("messages", len(parsed)))
	}
	return result
}

// groupByType keeps the first valid instance of each message type as the
// representative and attaches later instances of the same type as Examples.
// Invalid messages pass through ungrouped.
func groupByType(parsed []*models.ParsedMessage) []*models.ParsedMessage {
	var out []*models.ParsedMessage
	reps := make(map[string]*models.ParsedMessage)
	for _, m := range parsed {
		if !m.IsValid {
			out = append(out, m)
			continue
		}
		rep, seen := reps[m.MessageType]
		if !seen {
			reps[m.MessageType] = m
			out = append(out, m)
			continue
		}
		m.IsSpecExample = true
		rep.Examples = append(rep.Examples, m)
	}
	return out
}
