package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ExtractPages returns the plain text of every page of a PDF file, in page
// order. Pages that carry no extractable text come back as empty strings
// and are dropped by the chunker. The file is validated before parsing so
// a truncated upload fails here instead of deep inside text extraction.
func ExtractPages(path string) ([]string, error) {
	if err := api.ValidateFile(path, nil); err != nil {
		return nil, fmt.Errorf("invalid pdf %s: %w", path, err)
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d of %s: %w", i, path, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// TitleFromPath derives a human-readable document title from a file name:
// "Visitor_dress-code.pdf" becomes "Visitor dress code".
func TitleFromPath(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return strings.TrimSpace(name)
}
