package document

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/priyamehta/docintel/internal/rag"
)

// ErrNoText marks a document that parsed but produced no usable text, such
// as a scanned PDF without an OCR layer. It is an input error, not a
// transient one: retrying will not help.
var ErrNoText = errors.New("document contains no extractable text")

// ExtractPDF parses PDF bytes into per-page text so downstream chunks can
// carry page numbers in their citations. Pages that fail to render are
// skipped; the document fails only if nothing at all comes out.
func ExtractPDF(data []byte) ([]rag.Page, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	var pages []rag.Page
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, rag.Page{Number: i, Text: text})
	}

	if len(pages) == 0 {
		return nil, ErrNoText
	}
	return pages, nil
}

// FromText wraps plain text input in the same page shape PDF extraction
// produces. Page number 0 means "not paginated".
func FromText(text string) ([]rag.Page, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoText
	}
	return []rag.Page{{Number: 0, Text: text}}, nil
}

// Flatten joins page texts for prompt assembly and length accounting.
func Flatten(pages []rag.Page) string {
	var sb strings.Builder
	for i, p := range pages {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}
