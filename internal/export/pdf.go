package export

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mandolyte/mdtopdf"

	"github.com/at-ishikawa/popdict/internal/history"
)

// PDF renders entries as Markdown and converts it to a PDF file at pdfPath.
// It returns the absolute path of the written file.
func PDF(pdfPath string, entries []history.Entry) (string, error) {
	if !strings.HasSuffix(pdfPath, ".pdf") {
		return "", fmt.Errorf("output file must have .pdf extension: %s", pdfPath)
	}

	var content bytes.Buffer
	if err := Markdown(&content, entries); err != nil {
		return "", fmt.Errorf("Markdown() > %w", err)
	}

	renderer := mdtopdf.NewPdfRenderer("P", "A4", pdfPath, "", nil, mdtopdf.LIGHT)
	if err := renderer.Process(content.Bytes()); err != nil {
		return "", fmt.Errorf("renderer.Process() > %w", err)
	}

	absPath, err := filepath.Abs(pdfPath)
	if err != nil {
		return pdfPath, nil
	}
	return absPath, nil
}
