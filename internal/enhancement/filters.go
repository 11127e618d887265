package enhancement

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/gift"
	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/stat"
)

// 3x3 and 5x5 kernels; each is normalized by its sum when applied.
var (
	smoothKernel = []float32{
		1, 1, 1,
		1, 5, 1,
		1, 1, 1,
	}
	smoothMoreKernel = []float32{
		1, 1, 1, 1, 1,
		1, 5, 5, 5, 1,
		1, 5, 44, 5, 1,
		1, 5, 5, 5, 1,
		1, 1, 1, 1, 1,
	}
	detailKernel = []float32{
		0, -1, 0,
		-1, 10, -1,
		0, -1, 0,
	}
	sharpenKernel = []float32{
		-2, -2, -2,
		-2, 32, -2,
		-2, -2, -2,
	}
	edgeEnhanceKernel = []float32{
		-1, -1, -1,
		-1, 10, -1,
		-1, -1, -1,
	}
)

// toNRGBA returns img as an *image.NRGBA anchored at the origin.
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(img)
}

func applyFilters(src *image.NRGBA, filters ...gift.Filter) *image.NRGBA {
	g := gift.New(filters...)
	dst := image.NewNRGBA(g.Bounds(src.Bounds()))
	g.Draw(dst, src)
	return dst
}

func convolve(src *image.NRGBA, kernel []float32) *image.NRGBA {
	return applyFilters(src, gift.Convolution(kernel, true, false, false, 0))
}

func resizeLanczos(src *image.NRGBA, width, height int) *image.NRGBA {
	return imaging.Resize(src, width, height, imaging.Lanczos)
}

func medianFilter(src *image.NRGBA) *image.NRGBA {
	return applyFilters(src, gift.Median(3, false))
}

// unsharpMask takes radius in pixels, percent as a whole-number amount and
// threshold on the 0-255 scale.
func unsharpMask(src *image.NRGBA, radius float64, percent, threshold int) *image.NRGBA {
	return applyFilters(src, gift.UnsharpMask(float32(radius), float32(percent)/100, float32(threshold)/255))
}

// sharpness interpolates between a smoothed copy (factor 0) and the source
// (factor 1). Factors above 1 extrapolate away from the smoothed copy. The
// blend is linear, so it folds into a single kernel:
// factor*identity + (1-factor)*smooth.
func sharpness(src *image.NRGBA, factor float64) (*image.NRGBA, error) {
	var sum float32
	for _, v := range smoothKernel {
		sum += v
	}
	kernel := make([]float32, len(smoothKernel))
	for i, v := range smoothKernel {
		kernel[i] = float32(1-factor) * v / sum
	}
	kernel[len(kernel)/2] += float32(factor)
	return applyFilters(src, gift.Convolution(kernel, false, false, false, 0)), nil
}

// contrast scales each channel's distance from the mean luminance.
func contrast(src *image.NRGBA, factor float64) (*image.NRGBA, error) {
	mean := float64(uint8(meanLuminance(src) + 0.5))
	return imaging.AdjustFunc(src, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: clampChannel(mean + factor*(float64(c.R)-mean)),
			G: clampChannel(mean + factor*(float64(c.G)-mean)),
			B: clampChannel(mean + factor*(float64(c.B)-mean)),
			A: c.A,
		}
	}), nil
}

// saturation scales colorfulness relative to the pixel's luminance.
func saturation(src *image.NRGBA, factor float64) (*image.NRGBA, error) {
	return imaging.AdjustFunc(src, func(c color.NRGBA) color.NRGBA {
		l := float64(uint8(luminance(c) + 0.5))
		return color.NRGBA{
			R: clampChannel(l + factor*(float64(c.R)-l)),
			G: clampChannel(l + factor*(float64(c.G)-l)),
			B: clampChannel(l + factor*(float64(c.B)-l)),
			A: c.A,
		}
	}), nil
}

// brightness multiplies every channel by factor.
func brightness(src *image.NRGBA, factor float64) (*image.NRGBA, error) {
	return imaging.AdjustFunc(src, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: clampChannel(factor * float64(c.R)),
			G: clampChannel(factor * float64(c.G)),
			B: clampChannel(factor * float64(c.B)),
			A: c.A,
		}
	}), nil
}

// blend mixes overlay into base at weight in [0,1].
func blend(base, overlay *image.NRGBA, weight float64) *image.NRGBA {
	return imaging.Overlay(base, overlay, image.Pt(0, 0), weight)
}

// edgePreservingSmooth smooths flat regions while keeping original pixels
// where the Sobel magnitude is high.
func edgePreservingSmooth(src *image.NRGBA) *image.NRGBA {
	smoothed := convolve(src, smoothMoreKernel)
	edges := applyFilters(src, gift.Grayscale(), gift.Sobel())

	mask := image.NewAlpha(edges.Rect)
	for i, j := 0, 0; i < len(edges.Pix); i, j = i+4, j+1 {
		mask.Pix[j] = edges.Pix[i]
	}

	draw.DrawMask(smoothed, smoothed.Rect, src, image.Point{}, mask, image.Point{}, draw.Over)
	return smoothed
}

// luminance uses the ITU-R 601 weights.
func luminance(c color.NRGBA) float64 {
	return 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
}

func meanLuminance(src *image.NRGBA) float64 {
	n := len(src.Pix) / 4
	if n == 0 {
		return 0
	}
	lum := make([]float64, 0, n)
	for i := 0; i < len(src.Pix); i += 4 {
		lum = append(lum, luminance(color.NRGBA{R: src.Pix[i], G: src.Pix[i+1], B: src.Pix[i+2]}))
	}
	return stat.Mean(lum, nil)
}

func clampChannel(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
