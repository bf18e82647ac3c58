package extract

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// PDF extracts the plain text of a PDF document. PDFs carry no reliable
// title, so Title is always sourceURL.
func PDF(data []byte, sourceURL string) (Page, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Page{}, fmt.Errorf("open pdf: %w", err)
	}
	text, err := r.GetPlainText()
	if err != nil {
		return Page{}, fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, text); err != nil {
		return Page{}, fmt.Errorf("read pdf text: %w", err)
	}
	return Page{Text: collapse(buf.String()), Title: sourceURL}, nil
}
