package sources

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// maxLinerNotesPages caps extraction cost the same way the teacher's
// ExtractPDFText bounds its own page count.
const maxLinerNotesPages = 100

// LinerNotesFromPDF extracts plain text from an accompanying liner-
// notes PDF and returns it ready to inject into a record under the
// "liner_notes" key before extraction, adapted from the teacher's
// internal/utils.ExtractPDFText with the preview/word-count fields it
// doesn't need trimmed away.
func LinerNotesFromPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("sources: open pdf: %w", err)
	}

	totalPages := pdfReader.NumPage()
	if totalPages == 0 {
		return "", fmt.Errorf("sources: pdf has no pages")
	}
	if totalPages > maxLinerNotesPages {
		return "", fmt.Errorf("sources: pdf has too many pages (%d), max allowed is %d", totalPages, maxLinerNotesPages)
	}

	var text strings.Builder
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := pdfReader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if cleaned := cleanPDFText(pageText); cleaned != "" {
			if text.Len() > 0 {
				text.WriteString("\n")
			}
			text.WriteString(cleaned)
		}
	}

	return text.String(), nil
}

// WithLinerNotes returns a copy of record with "liner_notes" set to
// text, leaving the caller's map untouched.
func WithLinerNotes(record map[string]any, text string) map[string]any {
	out := make(map[string]any, len(record)+1)
	for k, v := range record {
		out[k] = v
	}
	out["liner_notes"] = text
	return out
}

func cleanPDFText(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	text = normalizeWhitespace(text)
	return strings.TrimSpace(text)
}

func normalizeWhitespace(text string) string {
	var result strings.Builder
	lastWasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				if r == '\n' {
					result.WriteRune('\n')
				} else {
					result.WriteRune(' ')
				}
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}
	return result.String()
}
