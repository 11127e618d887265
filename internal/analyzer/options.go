package analyzer

import (
	"fmt"

	"heri-science-api/internal/cache"
	"heri-science-api/pkg/models"
)

// AnalysisKey identifies an image by size and pixel digest.
type AnalysisKey struct {
	Width, Height int
	Digest        uint64
}

// AnalysisCache memoizes analyses for identical images within one process.
type AnalysisCache = cache.Cache[AnalysisKey, models.ImageAnalysis]

// NewAnalysisCache creates an empty analysis cache.
func NewAnalysisCache() *AnalysisCache {
	return cache.New[AnalysisKey, models.ImageAnalysis]()
}

// AnalysisOptions provides flexible configuration for image analysis
type AnalysisOptions struct {
	// Luminance variance above which an image counts as noisy
	NoiseThreshold float64

	// Mean luminance outside [FadedLow, FadedHigh] counts as faded
	FadedLow  float64
	FadedHigh float64

	// damage = 100 - variance/DamageDivisor, clamped to [0,100]
	DamageDivisor float64

	// Inspection toggles
	SkipEdgeDensity bool

	// Optional shared cache; nil disables memoization
	Cache *AnalysisCache
}

// DefaultOptions returns default analysis options
func DefaultOptions() AnalysisOptions {
	return AnalysisOptions{
		NoiseThreshold: 1800,
		FadedLow:       100,
		FadedHigh:      200,
		DamageDivisor:  30,
	}
}

// SensitiveOptions flags noise earlier, for scans of fragile material
func SensitiveOptions() AnalysisOptions {
	opts := DefaultOptions()
	opts.NoiseThreshold = 1500
	return opts
}

// TolerantOptions flags noise later, for heavily textured subjects
func TolerantOptions() AnalysisOptions {
	opts := DefaultOptions()
	opts.NoiseThreshold = 2500
	return opts
}

// WithNoiseThreshold returns options with a custom noise threshold
func (opts AnalysisOptions) WithNoiseThreshold(threshold float64) AnalysisOptions {
	opts.NoiseThreshold = threshold
	return opts
}

// WithFadedRange returns options with a custom faded brightness range
func (opts AnalysisOptions) WithFadedRange(low, high float64) AnalysisOptions {
	opts.FadedLow = low
	opts.FadedHigh = high
	return opts
}

// WithCache returns options that memoize analyses in c
func (opts AnalysisOptions) WithCache(c *AnalysisCache) AnalysisOptions {
	opts.Cache = c
	return opts
}

// WithoutEdgeDensity skips the Sobel pass during inspection
func (opts AnalysisOptions) WithoutEdgeDensity() AnalysisOptions {
	opts.SkipEdgeDensity = true
	return opts
}

// Validate checks that thresholds are usable
func (opts AnalysisOptions) Validate() error {
	if opts.NoiseThreshold <= 0 {
		return fmt.Errorf("noise threshold must be > 0 (got %v)", opts.NoiseThreshold)
	}
	if opts.FadedLow < 0 || opts.FadedHigh > 255 || opts.FadedLow >= opts.FadedHigh {
		return fmt.Errorf("invalid faded range [%v, %v]", opts.FadedLow, opts.FadedHigh)
	}
	if opts.DamageDivisor <= 0 {
		return fmt.Errorf("damage divisor must be > 0 (got %v)", opts.DamageDivisor)
	}
	return nil
}
