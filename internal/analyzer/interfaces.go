package analyzer

import (
	"image"

	"heri-science-api/pkg/models"
)

// ImageAnalyzer defines the main interface for image analysis
type ImageAnalyzer interface {
	// Analyze computes the luminance summary used to gate restoration stages.
	Analyze(img image.Image) models.ImageAnalysis

	// Inspect builds the extended report behind auto-analysis.
	Inspect(img image.Image) models.Inspection
}

// MetricsCalculator handles image metrics computation
type MetricsCalculator interface {
	CalculateBasicMetrics(img image.Image) metrics
	CalculateLuminanceStats(gray *image.Gray) (mean, variance float64)
	CalculateLaplacianVariance(gray *image.Gray) float64
	CalculateEdgeDensity(gray *image.Gray) float64
}
