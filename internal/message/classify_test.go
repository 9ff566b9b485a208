package message

import (
	"fmt"
	"strings"
	"testing"
)

// filler is keyword-free padding used to keep message density low in
// specification fixtures.
const filler = "lorem ipsum dolor amet consectetur adipiscing elit vivamus blandit mauris "

func TestClassifySpecification(t *testing.T) {
	text := "This specification defines the device interface. Each message format " +
		"shall include a field description table. See section 4 and appendix A " +
		"for the conformance definition.\n" +
		"Supported topics: HEL.R01, ACK.R01, OBS.R01, OBS.R02, DST.R01, EVS.R01.\n" +
		strings.Repeat(filler, 200)

	svc := NewService()
	c := svc.ClassifyDocumentType(text)

	if c.Type != DocTypeSpecification {
		t.Fatalf("Type = %s (spec=%d trace=%d density=%.2f), want Specification",
			c.Type, c.SpecScore, c.TraceScore, c.Density)
	}
	if c.DistinctTypes != 6 {
		t.Errorf("DistinctTypes = %d, want 6", c.DistinctTypes)
	}
	if c.TraceScore >= c.SpecScore {
		t.Errorf("trace score %d should be below spec score %d", c.TraceScore, c.SpecScore)
	}
}

func TestClassifyTraceLog(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 80; i++ {
		fmt.Fprintf(&b, "2024-01-15 10:30:%02d session 1 received OBS.R01 sequence number %d\n", i%60, i)
	}
	svc := NewService()
	c := svc.ClassifyDocumentType(b.String())

	if c.Type != DocTypeTraceLog {
		t.Fatalf("Type = %s (spec=%d trace=%d density=%.2f), want TraceLog",
			c.Type, c.SpecScore, c.TraceScore, c.Density)
	}
	if c.DistinctTypes != 1 {
		t.Errorf("DistinctTypes = %d, want 1", c.DistinctTypes)
	}
	if c.InstanceCount != 80 {
		t.Errorf("InstanceCount = %d, want 80", c.InstanceCount)
	}
}

func TestClassifyDistinctTypeBonus(t *testing.T) {
	// Three distinct types with low density and no keywords of either list:
	// the distinct-type bonus alone decides.
	text := "HEL.R01 ACK.R01 OBS.R01 " + strings.Repeat(filler, 100)

	svc := NewService()
	c := svc.ClassifyDocumentType(text)

	if c.Type != DocTypeSpecification {
		t.Errorf("Type = %s, want Specification from distinct-type bonus", c.Type)
	}
}

func TestParseDocumentMessagesAdvancedGrouping(t *testing.T) {
	short := `<OBS.R01><HDR><HDR.control_id V="1"/></HDR></OBS.R01>`
	long := `<OBS.R01><HDR><HDR.control_id V="2"/><HDR.version_id V="POCT1"/></HDR></OBS.R01>`
	ack := `<ACK.R01><ACK><ACK.type_cd V="AA"/></ACK></ACK.R01>`

	text := "This specification defines the device interface. Each message format " +
		"shall include a field description table. See section 4 and appendix A " +
		"for the conformance definition.\n" +
		short + "\n" + long + "\n" + ack + "\n" +
		strings.Repeat(filler, 300)

	svc := NewService()
	result := svc.ParseDocumentMessagesAdvanced(text)

	if result.Classification.Type != DocTypeSpecification {
		t.Fatalf("classified as %s, want Specification", result.Classification.Type)
	}
	if len(result.Messages) != 2 {
		t.Fatalf("got %d primary messages, want 2 (one per type)", len(result.Messages))
	}

	byType := make(map[string]int)
	for _, m := range result.Messages {
		byType[m.MessageType]++
		if m.IsSpecExample {
			t.Errorf("primary message %s flagged as example", m.MessageType)
		}
	}
	if byType["OBS.R01"] != 1 || byType["ACK.R01"] != 1 {
		t.Fatalf("primary types = %v, want one OBS.R01 and one ACK.R01", byType)
	}

	for _, m := range result.Messages {
		if m.MessageType != "OBS.R01" {
			continue
		}
		if len(m.Examples) != 1 {
			t.Fatalf("OBS.R01 representative has %d examples, want 1", len(m.Examples))
		}
		if !m.Examples[0].IsSpecExample {
			t.Error("grouped sibling not flagged as specification example")
		}
		// Length-ascending sort makes the shorter instance the representative.
		if len(m.RawContent) >= len(m.Examples[0].RawContent) {
			t.Error("representative should be the shortest instance of its type")
		}
	}

	if !strings.Contains(result.Summary, "Specification") {
		t.Errorf("summary %q does not name the document type", result.Summary)
	}
}

func TestParseDocumentMessagesAdvancedTraceKeepsAll(t *testing.T) {
	var b strings.Builder
	b.WriteString("connection log: received, sent, session, timestamp, bytes\n")
	for i := 0; i < 60; i++ {
		b.WriteString(`<ACK.R01><ACK><ACK.type_cd V="AA"/></ACK></ACK.R01>` + "\n")
	}

	svc := NewService()
	result := svc.ParseDocumentMessagesAdvanced(b.String())

	if result.Classification.Type != DocTypeTraceLog {
		t.Fatalf("classified as %s, want TraceLog", result.Classification.Type)
	}
	if len(result.Messages) != 60 {
		t.Fatalf("got %d messages, want 60 ungrouped instances", len(result.Messages))
	}
	for _, m := range result.Messages {
		if len(m.Examples) != 0 || m.IsSpecExample {
			t.Fatal("trace-log messages must not be grouped")
		}
	}
}
