package enhancement

import (
	"context"
	"errors"
	"image"
	"time"

	"heri-science-api/pkg/models"
)

const (
	denoiseIntensity       = 0.6
	colorIntensity         = 0.45
	polishIntensity        = 0.75
	heavyDamageScore       = 70
	moderateDamageScore    = 50
	heavyDamageBoost       = 1.1
	restoreUnsharpThresh   = 2
	darkBrightness         = 100
	brightBrightness       = 200
	darkBrightnessFactor   = 1.15
	brightBrightnessFactor = 0.95
)

var (
	fadedContrastBoost = [...]float64{Fast: 1.15, Balanced: 1.15, Quality: 1.2, Ultra: 1.3}
	fadedColorBoost    = [...]float64{Fast: 1.1, Balanced: 1.1, Quality: 1.15, Ultra: 1.25}
)

// Restore repairs noise, fading and softness in img without changing its size.
// Which stages run depends on the resolved profile and on the image analysis.
func (e *Engine) Restore(ctx context.Context, img image.Image, intensity float64, modeToken string) (*Result, error) {
	start := time.Now()

	mode, err := ResolveMode(modeToken, intensity)
	if err != nil {
		return nil, err
	}
	src, err := prepareInput(img)
	if err != nil {
		return nil, err
	}
	if e.analyzer == nil {
		return nil, &ProcessingError{Stage: "analysis", Err: errors.New("no analyzer configured")}
	}

	p := e.profile(mode, intensity)
	a := e.analyzer.Analyze(src)
	r := newRun(ctx, src)

	if a.IsNoisy || intensity > denoiseIntensity {
		if err := r.apply(StageDenoise, infallible(func(img *image.NRGBA) *image.NRGBA {
			if !a.IsNoisy {
				return convolve(img, smoothKernel)
			}
			out := medianFilter(img)
			if mode == Ultra {
				out = convolve(out, smoothKernel)
			}
			return out
		})); err != nil {
			return nil, err
		}
		if a.IsNoisy {
			r.label("Adaptive denoising applied")
		} else {
			r.label("Light noise smoothing")
		}
	}

	if p.DetailRecovery {
		if err := r.apply(StageEdgeSmooth, infallible(edgePreservingSmooth)); err != nil {
			return nil, err
		}
		r.label("Edge-preserving smoothing")
	}

	if err := restoreSharpen(r, p, a); err != nil {
		return nil, err
	}

	if p.ContrastFactor > 1.0 && (mode != Fast || intensity > fastTierMinIntensity || a.IsFaded) {
		factor := p.ContrastFactor
		if a.IsFaded {
			factor *= fadedContrastBoost[mode]
		}
		if err := r.apply(StageContrast, func(img *image.NRGBA) (*image.NRGBA, error) {
			return contrast(img, factor)
		}); err != nil {
			return nil, err
		}
		r.label("Contrast enhanced (%.2fx)", factor)
	}

	if a.IsFaded || intensity > colorIntensity {
		factor := p.ColorFactor
		if a.IsFaded {
			factor *= fadedColorBoost[mode]
		}
		if factor > 1.0 {
			if err := r.apply(StageColor, func(img *image.NRGBA) (*image.NRGBA, error) {
				return saturation(img, factor)
			}); err != nil {
				return nil, err
			}
			r.label("Color restored (%.2fx)", factor)
		}
	}

	if mode == Ultra && (a.Brightness < darkBrightness || a.Brightness > brightBrightness) {
		factor := darkBrightnessFactor
		if a.Brightness > brightBrightness {
			factor = brightBrightnessFactor
		}
		if err := r.apply(StageBrightness, func(img *image.NRGBA) (*image.NRGBA, error) {
			return brightness(img, factor)
		}); err != nil {
			return nil, err
		}
		r.label("Brightness corrected (%.2fx)", factor)
	}

	if err := restoreDetail(r, p); err != nil {
		return nil, err
	}

	if intensity > polishIntensity {
		if err := r.apply(StagePolish, func(img *image.NRGBA) (*image.NRGBA, error) {
			out, err := sharpness(img, polishSharpness)
			if err != nil || mode != Ultra {
				return out, err
			}
			return convolve(out, smoothKernel), nil
		}); err != nil {
			return nil, err
		}
		r.label("Final polish")
	}

	return &Result{
		Image:    r.img,
		Mode:     mode,
		Profile:  p,
		Metadata: restorationMetadata(p, intensity, time.Since(start), a, r.labels, r.stages),
	}, nil
}

func restoreSharpen(r *run, p EnhancementProfile, a models.ImageAnalysis) error {
	strength := p.UnsharpStrength
	if a.DamageScore > heavyDamageScore {
		strength *= heavyDamageBoost
	}

	if p.Mode == Fast {
		if err := r.apply(StageSharpen, func(img *image.NRGBA) (*image.NRGBA, error) {
			return sharpness(img, strength)
		}); err != nil {
			return err
		}
		r.label("Sharpness enhanced (%.2fx)", strength)
		return nil
	}

	radius := 1.5
	if a.DamageScore > moderateDamageScore {
		radius = 2.0
		if p.Mode == Ultra {
			radius = 2.5
		}
	}
	percent := int((strength - 1.0) * 150)
	if p.Mode == Ultra {
		percent = int((strength - 1.0) * 200)
	}
	if percent <= 0 {
		return nil
	}

	if err := r.apply(StageSharpen, infallible(func(img *image.NRGBA) *image.NRGBA {
		return unsharpMask(img, radius, percent, restoreUnsharpThresh)
	})); err != nil {
		return err
	}
	r.label("Adaptive unsharp mask (radius %.1f, %d%%)", radius, percent)
	return nil
}

func restoreDetail(r *run, p EnhancementProfile) error {
	detailWeight, textureWeight := detailBlendWeight, textureBlendWeight
	if p.Mode == Ultra {
		detailWeight, textureWeight = 0.5, 0.4
	}

	if p.EdgePreserve {
		if err := r.apply(StageEdgeEnhance, infallible(func(img *image.NRGBA) *image.NRGBA {
			return blend(img, convolve(img, edgeEnhanceKernel), 0.5)
		})); err != nil {
			return err
		}
		r.label("Edge enhancement")
	}

	if p.DetailRecovery {
		if err := r.apply(StageDetailRecovery, infallible(func(img *image.NRGBA) *image.NRGBA {
			return blend(img, convolve(img, detailKernel), detailWeight)
		})); err != nil {
			return err
		}
		r.label("Detail recovery")
	}

	if p.TextureEnhance {
		if err := r.apply(StageTexture, infallible(func(img *image.NRGBA) *image.NRGBA {
			return blend(img, convolve(img, sharpenKernel), textureWeight)
		})); err != nil {
			return err
		}
		r.label("Texture enhancement")
	}
	return nil
}
