package analyzer

import (
	"fmt"
	"hash/fnv"
	"image"
	"image/draw"
	"math"
	"sync"

	"heri-science-api/internal/enhancement"
	"heri-science-api/pkg/models"
)

// coreAnalyzer implements ImageAnalyzer interface and orchestrates all components
type coreAnalyzer struct {
	options           AnalysisOptions
	metricsCalculator MetricsCalculator
	grayPool          sync.Pool
}

// NewImageAnalyzer creates a new image analyzer with all components
func NewImageAnalyzer(options AnalysisOptions) (ImageAnalyzer, error) {
	if err := options.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis options: %w", err)
	}

	return &coreAnalyzer{
		options:           options,
		metricsCalculator: NewMetricsCalculator(),
		grayPool: sync.Pool{
			New: func() interface{} {
				return &image.Gray{}
			},
		},
	}, nil
}

// Analyze computes the luminance summary of img. It never fails: nil and
// empty images yield a zero analysis.
func (ca *coreAnalyzer) Analyze(img image.Image) models.ImageAnalysis {
	if img == nil || img.Bounds().Empty() {
		return models.ImageAnalysis{}
	}

	gray := ca.acquireGray(img)
	defer ca.grayPool.Put(gray)

	return ca.analyzeGray(gray)
}

// Inspect builds the extended report used by auto-analysis
func (ca *coreAnalyzer) Inspect(img image.Image) models.Inspection {
	if img == nil || img.Bounds().Empty() {
		return models.Inspection{Culture: unknownCulture()}
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	gray := ca.acquireGray(img)
	defer ca.grayPool.Put(gray)

	analysis := ca.analyzeGray(gray)
	m := ca.metricsCalculator.CalculateBasicMetrics(img)

	inspection := models.Inspection{
		Width:        width,
		Height:       height,
		Dimensions:   fmt.Sprintf("%dx%d", width, height),
		AspectRatio:  round2(float64(width) / float64(height)),
		AverageColor: [3]float64{round2(m.avgR * 255), round2(m.avgG * 255), round2(m.avgB * 255)},
		Sharpness:    round2(ca.metricsCalculator.CalculateLaplacianVariance(gray)),
		Colorfulness: round2(m.avgSaturation),
		Analysis:     analysis,
	}

	if !ca.options.SkipEdgeDensity {
		inspection.EdgeDensity = round2(ca.metricsCalculator.CalculateEdgeDensity(gray))
	}

	inspection.Culture = detectCulture(float64(width)/float64(height), inspection.AverageColor)
	inspection.SuggestedIntensity = suggestIntensity(analysis)
	inspection.SuggestedMode = enhancement.SelectMode(inspection.SuggestedIntensity).String()

	return inspection
}

// analyzeGray derives the faded/noisy flags and damage score, consulting the
// cache when one is configured
func (ca *coreAnalyzer) analyzeGray(gray *image.Gray) models.ImageAnalysis {
	bounds := gray.Bounds()

	var key AnalysisKey
	if ca.options.Cache != nil {
		key = AnalysisKey{Width: bounds.Dx(), Height: bounds.Dy(), Digest: digest(gray)}
		if cached, ok := ca.options.Cache.Get(key); ok {
			return cached
		}
	}

	mean, variance := ca.metricsCalculator.CalculateLuminanceStats(gray)

	analysis := models.ImageAnalysis{
		Variance:    variance,
		Brightness:  mean,
		IsFaded:     mean < ca.options.FadedLow || mean > ca.options.FadedHigh,
		IsNoisy:     variance > ca.options.NoiseThreshold,
		DamageScore: math.Max(0, math.Min(100, 100-variance/ca.options.DamageDivisor)),
	}

	if ca.options.Cache != nil {
		ca.options.Cache.Put(key, analysis)
	}
	return analysis
}

// acquireGray converts img to an 8-bit luminance image drawn from the pool
func (ca *coreAnalyzer) acquireGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := ca.grayPool.Get().(*image.Gray)

	n := bounds.Dx() * bounds.Dy()
	if cap(gray.Pix) < n {
		gray.Pix = make([]uint8, n)
	}
	gray.Pix = gray.Pix[:n]
	gray.Stride = bounds.Dx()
	gray.Rect = bounds

	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}

// digest hashes the luminance rows of gray
func digest(gray *image.Gray) uint64 {
	h := fnv.New64a()
	bounds := gray.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		h.Write(gray.Pix[gray.PixOffset(bounds.Min.X, y):gray.PixOffset(bounds.Max.X, y)])
	}
	return h.Sum64()
}

// suggestIntensity maps damage to an intensity in [0.3, 0.9]
func suggestIntensity(a models.ImageAnalysis) float64 {
	i := 0.3 + a.DamageScore/100*0.6
	if a.IsNoisy {
		i += 0.1
	}
	return round2(math.Max(0.3, math.Min(0.9, i)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
