//go:build !ocr

package ocr

import "context"

type unavailableReader struct{}

// NewReader returns a reader that reports ErrUnavailable. Build with -tags ocr
// for tesseract support.
func NewReader(languages ...string) Reader {
	return unavailableReader{}
}

func (unavailableReader) Available() bool { return false }

func (unavailableReader) ReadText(ctx context.Context, image []byte) (string, error) {
	return "", ErrUnavailable
}
