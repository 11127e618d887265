package models

import "time"

// ImageAnalysis is the luminance summary the restoration pipeline gates its stages on.
type ImageAnalysis struct {
	Variance    float64 `json:"variance"`
	Brightness  float64 `json:"brightness"`
	IsFaded     bool    `json:"is_faded"`
	IsNoisy     bool    `json:"is_noisy"`
	DamageScore float64 `json:"damage_score"`
}

// EnhancementMetadata is the flat record returned alongside a processed image.
// PSNR, SSIM and QualityScore are estimates derived from mode and intensity,
// not measurements.
type EnhancementMetadata struct {
	ProcessingMode     string   `json:"processing_mode"`
	ModeDescription    string   `json:"mode_description,omitempty"`
	Intensity          string   `json:"intensity,omitempty"`
	ProcessingTime     string   `json:"processing_time"`
	Algorithm          string   `json:"algorithm,omitempty"`
	Technique          string   `json:"technique,omitempty"`
	ResolutionIncrease string   `json:"resolution_increase,omitempty"`
	OriginalSize       string   `json:"original_size,omitempty"`
	EnhancedSize       string   `json:"enhanced_size,omitempty"`
	PSNR               float64  `json:"psnr,omitempty"`
	SSIM               float64  `json:"ssim,omitempty"`
	QualityScore       float64  `json:"quality_score,omitempty"`
	RestorationQuality string   `json:"restoration_quality,omitempty"`
	DamageLevel        string   `json:"damage_level,omitempty"`
	Condition          string   `json:"condition,omitempty"`
	AnalysisVariance   *float64 `json:"analysis_variance,omitempty"`
	AnalysisBrightness *float64 `json:"analysis_brightness,omitempty"`
	FeaturesUsed       []string `json:"features_used,omitempty"`
	Enhancements       []string `json:"enhancements,omitempty"`
	AppliedStages      []string `json:"applied_stages"`
}

// ProcessingRecord is one row of processing history.
type ProcessingRecord struct {
	ID             string    `json:"id" db:"id"`
	ProcessType    string    `json:"process_type" db:"process_type"`
	Mode           string    `json:"mode" db:"mode"`
	Intensity      float64   `json:"intensity" db:"intensity"`
	OriginalSize   string    `json:"original_size" db:"original_size"`
	ProcessedSize  string    `json:"processed_size" db:"processed_size"`
	ProcessedURL   string    `json:"processed_url" db:"processed_url"`
	UploadBackend  string    `json:"upload_backend" db:"upload_backend"`
	Degraded       bool      `json:"degraded" db:"degraded"`
	ProcessingTime float64   `json:"processing_time_sec" db:"processing_time_sec"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
