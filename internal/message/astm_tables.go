package message

// astmSegmentNames maps the single-character ASTM record type to its name.
// Static reference data from ASTM E1394.
var astmSegmentNames = map[string]string{
	"H": "Message Header",
	"P": "Patient Information",
	"O": "Test Order",
	"R": "Result",
	"C": "Comment",
	"Q": "Request Information",
	"S": "Scientific",
	"M": "Manufacturer Information",
	"L": "Message Terminator",
}

// astmFieldDef is one positional field definition within a record.
type astmFieldDef struct {
	Name     string
	Required bool
}

// astmFieldDefs lists the positional fields per record type, in wire order
// starting at the record-type field itself.
var astmFieldDefs = map[string][]astmFieldDef{
	"H": {
		{"Record Type", true},
		{"Delimiter Definition", true},
		{"Message Control ID", false},
		{"Access Password", false},
		{"Sender Name", false},
		{"Sender Address", false},
		{"Reserved", false},
		{"Sender Telephone", false},
		{"Sender Characteristics", false},
		{"Receiver ID", false},
		{"Comment", false},
		{"Processing ID", false},
		{"Version Number", false},
		{"Message Date/Time", false},
	},
	"P": {
		{"Record Type", true},
		{"Sequence Number", true},
		{"Practice Patient ID", false},
		{"Laboratory Patient ID", false},
		{"Patient ID 3", false},
		{"Patient Name", false},
		{"Mother's Maiden Name", false},
		{"Birthdate", false},
		{"Patient Sex", false},
	},
	"O": {
		{"Record Type", true},
		{"Sequence Number", true},
		{"Specimen ID", false},
		{"Instrument Specimen ID", false},
		{"Universal Test ID", false},
		{"Priority", false},
		{"Requested Date/Time", false},
		{"Collection Date/Time", false},
	},
	"R": {
		{"Record Type", true},
		{"Sequence Number", true},
		{"Universal Test ID", false},
		{"Data Value", false},
		{"Units", false},
		{"Reference Ranges", false},
		{"Result Abnormal Flags", false},
		{"Nature of Abnormality", false},
		{"Result Status", false},
		{"Date of Change", false},
		{"Operator Identification", false},
		{"Test Started Date/Time", false},
		{"Test Completed Date/Time", false},
		{"Instrument Identification", false},
	},
	"C": {
		{"Record Type", true},
		{"Sequence Number", true},
		{"Comment Source", false},
		{"Comment Text", false},
		{"Comment Type", false},
	},
	"Q": {
		{"Record Type", true},
		{"Sequence Number", true},
		{"Starting Range ID", false},
		{"Ending Range ID", false},
		{"Universal Test ID", false},
	},
	"M": {
		{"Record Type", true},
		{"Sequence Number", true},
	},
	"S": {
		{"Record Type", true},
		{"Sequence Number", true},
	},
	"L": {
		{"Record Type", true},
		{"Sequence Number", true},
		{"Termination Code", false},
	},
}
