// Package transcript reads exported chat transcripts from plain text or PDF.
package transcript

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ReadFile returns the transcript text in path. Files ending in .pdf are
// run through the PDF text extractor; anything else is read as UTF-8 text.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading transcript: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return FromPDF(data)
	}
	return Normalize(string(data)), nil
}

// FromPDF extracts the plain text of every page. The parser panics on some
// malformed files; that is reported as an error.
func FromPDF(data []byte) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			text, err = "", fmt.Errorf("parsing pdf: %v", p)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}
	return Normalize(string(b)), nil
}

// Normalize unifies line endings and drops blank lines and surrounding
// whitespace, leaving one utterance per line.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
