//go:build ocr

package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

type tesseractReader struct {
	languages []string
}

// NewReader returns a tesseract backed reader. Languages default to "eng".
func NewReader(languages ...string) Reader {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &tesseractReader{languages: languages}
}

func (r *tesseractReader) Available() bool { return true }

// ReadText runs tesseract over the image. A client is created per call since
// gosseract clients are not safe for concurrent use.
func (r *tesseractReader) ReadText(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(r.languages...); err != nil {
		return "", fmt.Errorf("set ocr language: %w", err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("load image for ocr: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr failed: %w", err)
	}
	return normalize(text), nil
}
