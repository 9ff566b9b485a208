package models

// MessageDirection describes which side of the device/system link originates a message.
type MessageDirection string

const (
	DirectionDeviceToSystem MessageDirection = "DeviceToSystem"
	DirectionSystemToDevice MessageDirection = "SystemToDevice"
	DirectionBidirectional  MessageDirection = "Bidirectional"
)

// MessageProfile is static reference data describing a known POCT1-A message type.
// Profiles are loaded once at process start and never mutated.
type MessageProfile struct {
	MessageType        string           `json:"message_type"`
	Name               string           `json:"name"`
	Direction          MessageDirection `json:"direction"`
	Category           string           `json:"category"`
	Purpose            string           `json:"purpose"`
	KeyFields          []string         `json:"key_fields,omitempty"`
	StartsConversation bool             `json:"starts_conversation"`
	RequiresAck        bool             `json:"requires_ack"`
	RelatedMessages    []string         `json:"related_messages,omitempty"`
}

// MessageField is a single field within a message segment.
type MessageField struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Value       string `json:"value,omitempty"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// MessageSegment is a named sub-structure of a parsed message: an XML element path
// for POCT1-A or a pipe-delimited record for ASTM.
type MessageSegment struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Fields      []*MessageField `json:"fields,omitempty"`
}

// ParsedMessage is one protocol message instance found in document text.
// Transient: produced per analysis run, never persisted.
type ParsedMessage struct {
	MessageType string            `json:"message_type"`
	Protocol    Protocol          `json:"protocol"`
	Segments    []*MessageSegment `json:"segments,omitempty"`
	RawContent  string            `json:"raw_content"`
	IsValid     bool              `json:"is_valid"`
	Errors      []string          `json:"errors,omitempty"`
	Profile     *MessageProfile   `json:"profile,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`

	// Examples holds sibling instances of the same message type when the
	// document was classified as a specification.
	Examples []*ParsedMessage `json:"examples,omitempty"`
	// IsSpecExample marks an instance that was folded into another message's
	// Examples list rather than kept as a primary entry.
	IsSpecExample bool `json:"is_spec_example,omitempty"`
}
