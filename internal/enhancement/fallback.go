package enhancement

import (
	"image"
	"time"

	"heri-science-api/pkg/models"
)

const fallbackSharpness = 2.0

// FallbackUpscale is a plain Lanczos 2x upscale used when the
// super-resolution pipeline fails.
func FallbackUpscale(img image.Image) (*Result, error) {
	start := time.Now()
	src, err := prepareInput(img)
	if err != nil {
		return nil, err
	}

	orig := dimensions{src.Rect.Dx(), src.Rect.Dy()}
	out := resizeLanczos(src, orig.width*superResolutionScale, orig.height*superResolutionScale)

	return &Result{
		Image: out,
		Mode:  Fast,
		Metadata: models.EnhancementMetadata{
			ProcessingMode:     Fast.Label(),
			Technique:          "Lanczos upscaling",
			ProcessingTime:     FormatDuration(time.Since(start)),
			ResolutionIncrease: "2x",
			OriginalSize:       orig.String(),
			EnhancedSize:       FormatSize(out.Rect.Dx(), out.Rect.Dy()),
			AppliedStages:      []string{StageResize},
		},
	}, nil
}

// FallbackSharpen is a single sharpness pass used when the restoration
// pipeline fails.
func FallbackSharpen(img image.Image) (*Result, error) {
	start := time.Now()
	src, err := prepareInput(img)
	if err != nil {
		return nil, err
	}

	out, err := sharpness(src, fallbackSharpness)
	if err != nil {
		return nil, &ProcessingError{Stage: StageSharpen, Err: err}
	}

	return &Result{
		Image: out,
		Mode:  Fast,
		Metadata: models.EnhancementMetadata{
			ProcessingMode: Fast.Label(),
			Technique:      "Basic enhancement",
			ProcessingTime: FormatDuration(time.Since(start)),
			OriginalSize:   FormatSize(src.Rect.Dx(), src.Rect.Dy()),
			EnhancedSize:   FormatSize(out.Rect.Dx(), out.Rect.Dy()),
			AppliedStages:  []string{StageSharpen},
		},
	}, nil
}
