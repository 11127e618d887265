package enhancement

import (
	"context"
	"image"
	"time"
)

// Intermediate scales visited before the final 2x resample.
var progressiveScales = map[ProcessingMode][]float64{
	Balanced: {1.5},
	Quality:  {1.25, 1.5, 1.75},
	Ultra:    {1 + 1.0/6, 1 + 2.0/6, 1 + 3.0/6, 1 + 4.0/6, 1 + 5.0/6},
}

// Light sharpness applied after each intermediate step when histogram
// optimization is on.
var stepSharpness = map[ProcessingMode]float64{
	Balanced: 1.05,
	Quality:  1.05,
	Ultra:    1.03,
}

const (
	superResolutionScale = 2
	detailBlendWeight    = 0.4
	textureBlendWeight   = 0.3
	polishSharpness      = 1.1
)

// Enhance upscales img to exactly twice its width and height and applies the
// sharpening, edge, tone and detail stages the resolved profile enables.
func (e *Engine) Enhance(ctx context.Context, img image.Image, intensity float64, modeToken string) (*Result, error) {
	start := time.Now()

	mode, err := ResolveMode(modeToken, intensity)
	if err != nil {
		return nil, err
	}
	src, err := prepareInput(img)
	if err != nil {
		return nil, err
	}

	p := e.profile(mode, intensity)
	orig := dimensions{src.Rect.Dx(), src.Rect.Dy()}
	target := dimensions{orig.width * superResolutionScale, orig.height * superResolutionScale}
	r := newRun(ctx, src)

	if err := r.apply(StageResize, func(img *image.NRGBA) (*image.NRGBA, error) {
		return progressiveResize(img, target, scalesFor(p), stepSharpnessFor(p))
	}); err != nil {
		return nil, err
	}

	switch {
	case mode == Fast:
		if intensity > fastTierMinIntensity {
			if err := r.apply(StageSharpen, func(img *image.NRGBA) (*image.NRGBA, error) {
				return sharpness(img, p.UnsharpStrength)
			}); err != nil {
				return nil, err
			}
		}
	case p.UnsharpStrength > 1.0:
		if err := r.apply(StageSharpen, infallible(func(img *image.NRGBA) *image.NRGBA {
			return unsharpMask(img, p.UnsharpRadius, p.UnsharpPercent, p.UnsharpThreshold)
		})); err != nil {
			return nil, err
		}
	}

	if p.EdgePreserve {
		if err := r.apply(StageEdgeEnhance, infallible(func(img *image.NRGBA) *image.NRGBA {
			return convolve(img, edgeEnhanceKernel)
		})); err != nil {
			return nil, err
		}
	}

	if p.ContrastFactor > 1.0 && (mode != Fast || intensity > fastTierMinIntensity) {
		if err := r.apply(StageContrast, func(img *image.NRGBA) (*image.NRGBA, error) {
			return contrast(img, p.ContrastFactor)
		}); err != nil {
			return nil, err
		}
	}

	if p.ColorFactor > 1.0 {
		if err := r.apply(StageColor, func(img *image.NRGBA) (*image.NRGBA, error) {
			return saturation(img, p.ColorFactor)
		}); err != nil {
			return nil, err
		}
	}

	if p.DetailRecovery {
		if err := r.apply(StageDetailRecovery, infallible(func(img *image.NRGBA) *image.NRGBA {
			return blend(img, convolve(img, detailKernel), detailBlendWeight)
		})); err != nil {
			return nil, err
		}
	}

	if p.TextureEnhance {
		if err := r.apply(StageTexture, infallible(func(img *image.NRGBA) *image.NRGBA {
			return blend(img, convolve(img, sharpenKernel), textureBlendWeight)
		})); err != nil {
			return nil, err
		}
	}

	if mode == Ultra {
		if err := r.apply(StagePolish, func(img *image.NRGBA) (*image.NRGBA, error) {
			return sharpness(img, polishSharpness)
		}); err != nil {
			return nil, err
		}
	}

	out := dimensions{r.img.Rect.Dx(), r.img.Rect.Dy()}
	return &Result{
		Image:    r.img,
		Mode:     mode,
		Profile:  p,
		Metadata: superResolutionMetadata(p, intensity, time.Since(start), orig, out, r.stages),
	}, nil
}

func scalesFor(p EnhancementProfile) []float64 {
	if !p.MultiScale {
		return nil
	}
	return progressiveScales[p.Mode]
}

func stepSharpnessFor(p EnhancementProfile) float64 {
	if !p.HistogramEnhance {
		return 1.0
	}
	if f, ok := stepSharpness[p.Mode]; ok {
		return f
	}
	return 1.0
}

// progressiveResize resamples through each intermediate scale that strictly
// grows the image and stays below target, then lands exactly on target.
func progressiveResize(src *image.NRGBA, target dimensions, scales []float64, stepFactor float64) (*image.NRGBA, error) {
	origW, origH := src.Rect.Dx(), src.Rect.Dy()
	cur := src

	for _, s := range scales {
		w, h := int(float64(origW)*s), int(float64(origH)*s)
		if w <= cur.Rect.Dx() || h <= cur.Rect.Dy() || w >= target.width || h >= target.height {
			continue
		}
		cur = resizeLanczos(cur, w, h)
		if stepFactor > 1.0 {
			var err error
			if cur, err = sharpness(cur, stepFactor); err != nil {
				return nil, err
			}
		}
	}

	return resizeLanczos(cur, target.width, target.height), nil
}
