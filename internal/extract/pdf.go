package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF reads the document page by page. Unreadable pages contribute an
// empty string; only a document that cannot be opened is an error.
func extractPDF(data []byte) (string, error) {
	r, err := openPDF(data)
	if err != nil {
		return "", err
	}

	total, err := pageCount(r)
	if err != nil {
		return "", err
	}

	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		pages = append(pages, pageText(r, i))
	}

	return strings.Join(pages, "\n"), nil
}

// The pdf package panics on some malformed inputs.
func openPDF(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r, err = nil, fmt.Errorf("malformed pdf: %v", rec)
		}
	}()

	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

func pageCount(r *pdf.Reader) (n int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			n, err = 0, fmt.Errorf("reading page tree: %v", rec)
		}
	}()

	return r.NumPage(), nil
}

func pageText(r *pdf.Reader, n int) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()

	page := r.Page(n)
	if page.V.IsNull() {
		return ""
	}

	text, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}

	return text
}
