package message

import "github.com/labdriver/specsim/internal/models"

// poct1aProfiles is the static POCT1-A message-type catalog, keyed by topic
// name. Loaded once, read-only reference data.
var poct1aProfiles = map[string]*models.MessageProfile{
	"HEL.R01": {
		MessageType:        "HEL.R01",
		Name:               "Hello",
		Direction:          models.DirectionDeviceToSystem,
		Category:           "Conversation",
		Purpose:            "Device announces itself and opens a conversation",
		KeyFields:          []string{"device_id", "vendor_id", "device_name"},
		StartsConversation: true,
		RequiresAck:        true,
		RelatedMessages:    []string{"ACK.R01"},
	},
	"ACK.R01": {
		MessageType:     "ACK.R01",
		Name:            "Acknowledgment",
		Direction:       models.DirectionBidirectional,
		Category:        "Conversation",
		Purpose:         "Acknowledges receipt of a message",
		KeyFields:       []string{"ack_control_id", "ack_type_cd"},
		RelatedMessages: []string{"HEL.R01", "OBS.R01"},
	},
	"DST.R01": {
		MessageType: "DST.R01",
		Name:        "Device Status",
		Direction:   models.DirectionDeviceToSystem,
		Category:    "Status",
		Purpose:     "Reports device condition and readiness",
		KeyFields:   []string{"status_dttm", "condition_cd"},
		RequiresAck: true,
	},
	"OBS.R01": {
		MessageType: "OBS.R01",
		Name:        "Patient Observations",
		Direction:   models.DirectionDeviceToSystem,
		Category:    "Observations",
		Purpose:     "Delivers patient test results",
		KeyFields:   []string{"patient_id", "observation_dttm", "observation_id", "value"},
		RequiresAck: true,
		RelatedMessages: []string{
			"ACK.R01", "OBS.R02",
		},
	},
	"OBS.R02": {
		MessageType: "OBS.R02",
		Name:        "QC Observations",
		Direction:   models.DirectionDeviceToSystem,
		Category:    "Observations",
		Purpose:     "Delivers quality-control test results",
		KeyFields:   []string{"control_id", "observation_dttm", "value"},
		RequiresAck: true,
	},
	"RGT.R01": {
		MessageType: "RGT.R01",
		Name:        "Reagent Status",
		Direction:   models.DirectionDeviceToSystem,
		Category:    "Status",
		Purpose:     "Reports reagent and consumable inventory",
		KeyFields:   []string{"reagent_lot_id", "expiration_dttm"},
	},
	"OPL.R01": {
		MessageType: "OPL.R01",
		Name:        "Operator List",
		Direction:   models.DirectionSystemToDevice,
		Category:    "Directive",
		Purpose:     "Transfers the certified operator list to the device",
		KeyFields:   []string{"operator_id", "certification_dttm"},
		RequiresAck: true,
	},
	"EVS.R01": {
		MessageType: "EVS.R01",
		Name:        "Events",
		Direction:   models.DirectionDeviceToSystem,
		Category:    "Status",
		Purpose:     "Reports noteworthy device events",
		KeyFields:   []string{"event_cd", "event_dttm"},
	},
	"DTV.R01": {
		MessageType:        "DTV.R01",
		Name:               "Directive",
		Direction:          models.DirectionSystemToDevice,
		Category:           "Directive",
		Purpose:            "Instructs the device to perform an action",
		KeyFields:          []string{"directive_cd"},
		StartsConversation: true,
		RequiresAck:        true,
	},
	"END.R01": {
		MessageType: "END.R01",
		Name:        "End of Topic",
		Direction:   models.DirectionBidirectional,
		Category:    "Conversation",
		Purpose:     "Marks the end of a topic exchange",
	},
	"ESC.R01": {
		MessageType: "ESC.R01",
		Name:        "Escape",
		Direction:   models.DirectionBidirectional,
		Category:    "Conversation",
		Purpose:     "Carries vendor-specific content outside the standard schema",
	},
	"KPA.R01": {
		MessageType: "KPA.R01",
		Name:        "Keep Alive",
		Direction:   models.DirectionBidirectional,
		Category:    "Conversation",
		Purpose:     "Keeps an idle conversation open",
	},
}

// ProfileFor returns the static profile for a POCT1-A message type, or nil.
func ProfileFor(messageType string) *models.MessageProfile {
	return poct1aProfiles[messageType]
}
