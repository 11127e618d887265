// Package ocr extracts visible text (inscriptions, labels) from artifact
// images. Tesseract support is compiled in with the "ocr" build tag.
package ocr

import (
	"context"
	"errors"
	"strings"
)

// ErrUnavailable is returned by ReadText when no OCR engine is compiled in
var ErrUnavailable = errors.New("ocr engine not available")

// Reader reads text from encoded image bytes
type Reader interface {
	ReadText(ctx context.Context, image []byte) (string, error)
	Available() bool
}

// normalize collapses whitespace runs and drops empty lines
func normalize(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
