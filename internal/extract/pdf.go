package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

func openPDF(content []byte) (*pdf.Reader, error) {
	return pdf.NewReader(bytes.NewReader(content), int64(len(content)))
}

// extractPDFPages returns the plain text of each page. Pages whose object is
// null (e.g. damaged xref entries) are skipped rather than failing the document.
func extractPDFPages(content []byte) ([]PageText, error) {
	r, err := openPDF(content)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	numPages := r.NumPage()
	pages := make([]PageText, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		pages = append(pages, PageText{Number: i, Text: text})
	}
	return pages, nil
}
