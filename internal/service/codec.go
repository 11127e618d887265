package service

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"strings"
	"time"

	apperrors "heri-science-api/internal/errors"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// jpegQuality is the quality processed images are published at
const jpegQuality = 90

// decodeImage decodes an upload. Formats are registered by the validation
// and storage packages (jpeg, png, gif, webp, bmp).
func decodeImage(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", apperrors.NewValidationError("Unsupported or corrupt image", err)
	}
	return img, format, nil
}

// encodeJPEG renders img as a JPEG at jpegQuality
func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, apperrors.NewInternalError("Failed to encode processed image", err)
	}
	return buf.Bytes(), nil
}

// decodeBase64Image accepts raw base64 or a data URL. Anything before the
// first comma is treated as a header and dropped.
func decodeBase64Image(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, apperrors.NewValidationError("No image provided", nil)
	}
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[i+1:]
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// Some clients strip padding
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	}
	if err != nil {
		return nil, apperrors.NewValidationError("Image is not valid base64", err)
	}
	return data, nil
}

// maxFilenameIDLen bounds the request id part of a processed filename
const maxFilenameIDLen = 36

// processedFilename names a processed image for upload. The request id keeps
// concurrent requests within the same second apart; characters outside
// [A-Za-z0-9-] are dropped and an unusable id is replaced with a uuid.
func processedFilename(processType, requestID string, now time.Time) string {
	id := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return -1
	}, requestID)
	if len(id) > maxFilenameIDLen {
		id = id[:maxFilenameIDLen]
	}
	if id == "" {
		id = uuid.NewString()
	}
	return fmt.Sprintf("processed_%s_%d_%s.jpg", processType, now.Unix(), id)
}
