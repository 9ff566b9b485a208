package processor

import (
	"regexp"
	"strings"

	"github.com/labdriver/specsim/internal/models"
)

// protocolKeywords maps each protocol to the phrases that identify it.
// Detection walks the list in order and the first protocol with any matching
// phrase wins.
var protocolKeywords = []struct {
	protocol models.Protocol
	phrases  []string
}{
	{models.ProtocolPOCT1A, []string{"poct1-a", "poct1a", "poct-1a", "poct 1-a", "point-of-care connectivity", "point of care connectivity"}},
	{models.ProtocolASTM, []string{"astm e1394", "astm e1381", "lis1-a", "lis2-a", "astm"}},
	{models.ProtocolHL7, []string{"hl7", "health level seven", "health level 7"}},
}

var versionRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bversion\s+(\d+(?:\.\d+)*)`),
	regexp.MustCompile(`(?i)\brevision\s+(\d+(?:\.\d+)*)`),
	regexp.MustCompile(`(?i)\bv(\d+\.\d+(?:\.\d+)*)\b`),
}

// manufacturers is the fixed vendor list checked by DetectManufacturer, in
// priority order.
var manufacturers = []string{
	"Roche",
	"Abbott",
	"Siemens",
	"Nova Biomedical",
	"Radiometer",
	"Beckman Coulter",
	"Instrumentation Laboratory",
	"HemoCue",
	"Mindray",
	"Bayer",
	"Ortho Clinical",
	"Sysmex",
}

var deviceNameRe = regexp.MustCompile(`\b([A-Z][A-Za-z0-9]+(?:[ -][A-Z][A-Za-z0-9]+){0,3})\s+(?:[Aa]nalyzer|[Mm]eter|[Ss]ystem|[Ii]nstrument)\b`)

// DetectProtocol returns the first protocol whose keyword set matches the
// text, or Unknown.
func DetectProtocol(text string) models.Protocol {
	lower := strings.ToLower(text)
	for _, entry := range protocolKeywords {
		for _, phrase := range entry.phrases {
			if strings.Contains(lower, phrase) {
				return entry.protocol
			}
		}
	}
	return models.ProtocolUnknown
}

// DetectVersion returns the first version-pattern capture in the text, or
// "Unknown".
func DetectVersion(text string) string {
	for _, re := range versionRes {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return "Unknown"
}

// DetectManufacturer returns the first known vendor mentioned in the text,
// or the empty string.
func DetectManufacturer(text string) string {
	lower := strings.ToLower(text)
	for _, m := range manufacturers {
		if strings.Contains(lower, strings.ToLower(m)) {
			return m
		}
	}
	return ""
}

// DetectDeviceName returns a product name appearing before an
// analyzer/meter/system/instrument word, or the empty string.
func DetectDeviceName(text string) string {
	m := deviceNameRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	name := m[1]
	for _, article := range []string{"The ", "A ", "This ", "Each "} {
		name = strings.TrimPrefix(name, article)
	}
	return strings.TrimSpace(name)
}
