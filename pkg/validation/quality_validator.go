package validation

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	apperrors "heri-science-api/internal/errors"
	"heri-science-api/pkg/models"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// QualityThresholds defines the input limits and review thresholds
type QualityThresholds struct {
	// Input limits
	MaxBytes  int64
	MaxPixels int
	MinWidth  int
	MinHeight int

	// Review thresholds
	MinLaplacianVariance float64
	LowResolutionSide    int
	HeavyDamageScore     float64
}

// DefaultQualityThresholds returns the default thresholds
func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{
		MaxBytes:             16 << 20,
		MaxPixels:            40_000_000,
		MinWidth:             1,
		MinHeight:            1,
		MinLaplacianVariance: 100.0,
		LowResolutionSide:    512,
		HeavyDamageScore:     70.0,
	}
}

// QualityValidator checks uploads before decoding and reviews inspections
type QualityValidator struct {
	thresholds QualityThresholds
}

// NewQualityValidator creates a new quality validator with default thresholds
func NewQualityValidator() *QualityValidator {
	return &QualityValidator{
		thresholds: DefaultQualityThresholds(),
	}
}

// NewQualityValidatorWithThresholds creates a quality validator with custom thresholds
func NewQualityValidatorWithThresholds(thresholds QualityThresholds) *QualityValidator {
	return &QualityValidator{
		thresholds: thresholds,
	}
}

// QualityIssue represents a quality review finding
type QualityIssue struct {
	Type        string  `json:"type"`
	Message     string  `json:"message"`
	Severity    string  `json:"severity"` // "warning", "info"
	ActualValue float64 `json:"actual_value,omitempty"`
	Threshold   float64 `json:"threshold,omitempty"`
}

// UploadInfo is what can be learned from an upload's header alone
type UploadInfo struct {
	Width  int
	Height int
	Format string
	Mode   string
}

// Dimensions renders the size as "WxH"
func (u UploadInfo) Dimensions() string {
	return fmt.Sprintf("%dx%d", u.Width, u.Height)
}

// ValidateUpload checks size, format and pixel count from the image header
// without decoding pixel data.
func (qv *QualityValidator) ValidateUpload(data []byte) (UploadInfo, error) {
	if len(data) == 0 {
		return UploadInfo{}, apperrors.NewValidationError("No image provided", nil)
	}
	if qv.thresholds.MaxBytes > 0 && int64(len(data)) > qv.thresholds.MaxBytes {
		return UploadInfo{}, apperrors.NewValidationError(
			fmt.Sprintf("Image exceeds %d bytes", qv.thresholds.MaxBytes), nil)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return UploadInfo{}, apperrors.NewValidationError("Unsupported or corrupt image", err)
	}

	info := UploadInfo{
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: strings.ToUpper(format),
		Mode:   ColorModeName(cfg.ColorModel),
	}
	if err := qv.ValidateDimensions(info.Width, info.Height); err != nil {
		return info, err
	}
	return info, nil
}

// ValidateDimensions enforces the minimum size and the pixel budget
func (qv *QualityValidator) ValidateDimensions(width, height int) error {
	if width < qv.thresholds.MinWidth || height < qv.thresholds.MinHeight {
		return apperrors.NewValidationError(
			fmt.Sprintf("Image too small: %dx%d", width, height), nil)
	}
	if qv.thresholds.MaxPixels > 0 && width*height > qv.thresholds.MaxPixels {
		return apperrors.NewValidationError(
			fmt.Sprintf("Image too large: %dx%d exceeds %d pixels", width, height, qv.thresholds.MaxPixels), nil)
	}
	return nil
}

// ReviewInspection turns measurements into advisory findings
func (qv *QualityValidator) ReviewInspection(ins models.Inspection) []QualityIssue {
	var issues []QualityIssue

	// 1. Resolution
	if side := min(ins.Width, ins.Height); side > 0 && side < qv.thresholds.LowResolutionSide {
		issues = append(issues, QualityIssue{
			Type:        "low_resolution",
			Message:     "Low resolution image. Super-resolution will double its size.",
			Severity:    "info",
			ActualValue: float64(side),
			Threshold:   float64(qv.thresholds.LowResolutionSide),
		})
	}

	// 2. Sharpness
	if ins.Sharpness < qv.thresholds.MinLaplacianVariance {
		issues = append(issues, QualityIssue{
			Type:        "blurriness",
			Message:     "Image looks soft. Quality or Ultra mode recovers the most detail.",
			Severity:    "warning",
			ActualValue: ins.Sharpness,
			Threshold:   qv.thresholds.MinLaplacianVariance,
		})
	}

	// 3. Fading and noise
	if ins.Analysis.IsFaded {
		issues = append(issues, QualityIssue{
			Type:        "faded",
			Message:     "Image appears faded. Restoration boosts contrast and color.",
			Severity:    "warning",
			ActualValue: ins.Analysis.Brightness,
		})
	}
	if ins.Analysis.IsNoisy {
		issues = append(issues, QualityIssue{
			Type:        "noise",
			Message:     "Noise detected. Restoration applies denoising first.",
			Severity:    "warning",
			ActualValue: ins.Analysis.Variance,
		})
	}

	// 4. Wear
	if ins.Analysis.DamageScore > qv.thresholds.HeavyDamageScore {
		issues = append(issues, QualityIssue{
			Type:        "heavy_wear",
			Message:     "Surface detail is worn. Use a higher intensity for restoration.",
			Severity:    "info",
			ActualValue: ins.Analysis.DamageScore,
			Threshold:   qv.thresholds.HeavyDamageScore,
		})
	}

	return issues
}

// Messages returns the message of each issue
func Messages(issues []QualityIssue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.Message
	}
	return out
}

// ColorModeName names a color model the way imaging tools usually report modes
func ColorModeName(m color.Model) string {
	switch m {
	case color.GrayModel:
		return "L"
	case color.Gray16Model:
		return "I;16"
	case color.YCbCrModel, color.RGBAModel, color.RGBA64Model:
		// opaque truecolor PNGs decode with the premultiplied models
		return "RGB"
	case color.CMYKModel:
		return "CMYK"
	case color.NRGBAModel, color.NRGBA64Model:
		return "RGBA"
	}
	if _, ok := m.(color.Palette); ok {
		return "P"
	}
	return "RGB"
}
