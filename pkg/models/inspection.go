package models

// CultureDetection is a heuristic guess at an artifact's origin. The guess
// comes from image shape and color only; confidence is a fixed per-class value.
type CultureDetection struct {
	DetectedCulture       string   `json:"detected_culture"`
	Confidence            float64  `json:"confidence"`
	Characteristics       []string `json:"characteristics"`
	BackgroundTheme       string   `json:"background_theme"`
	SuggestedEnhancements []string `json:"suggested_enhancements"`
}

// Inspection is the full image report used by auto-analysis.
type Inspection struct {
	Width              int              `json:"width"`
	Height             int              `json:"height"`
	Dimensions         string           `json:"dimensions"`
	AspectRatio        float64          `json:"aspect_ratio"`
	AverageColor       [3]float64       `json:"average_color"`
	Sharpness          float64          `json:"sharpness"`
	Colorfulness       float64          `json:"colorfulness"`
	EdgeDensity        float64          `json:"edge_density"`
	Analysis           ImageAnalysis    `json:"analysis"`
	Culture            CultureDetection `json:"culture"`
	SuggestedMode      string           `json:"suggested_mode"`
	SuggestedIntensity float64          `json:"suggested_intensity"`
}
