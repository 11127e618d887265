package enhancement

import (
	"context"
	"errors"
	"fmt"
	"image"

	"heri-science-api/pkg/models"
)

// Stage identifiers recorded in metadata.applied_stages.
const (
	StageResize         = "resize"
	StageDenoise        = "denoise"
	StageEdgeSmooth     = "edge_preserving_smooth"
	StageSharpen        = "sharpen"
	StageEdgeEnhance    = "edge_enhance"
	StageContrast       = "contrast"
	StageColor          = "color"
	StageBrightness     = "brightness"
	StageDetailRecovery = "detail_recovery"
	StageTexture        = "texture"
	StagePolish         = "polish"
)

// Below this intensity the fast tier skips everything but its base sharpen.
const fastTierMinIntensity = 0.3

// Analyzer computes the luminance summary restoration gates its stages on.
type Analyzer interface {
	Analyze(img image.Image) models.ImageAnalysis
}

// Result is a processed image with its metadata.
type Result struct {
	Image    *image.NRGBA
	Mode     ProcessingMode
	Profile  EnhancementProfile
	Metadata models.EnhancementMetadata
}

// Engine runs the super-resolution and restoration pipelines.
type Engine struct {
	analyzer Analyzer
	profiles *ProfileCache
}

// Option configures an Engine.
type Option func(*Engine)

// WithProfileCache shares a profile cache across engines.
func WithProfileCache(c *ProfileCache) Option {
	return func(e *Engine) {
		e.profiles = c
	}
}

// NewEngine creates an engine. The analyzer is required for Restore.
func NewEngine(analyzer Analyzer, opts ...Option) *Engine {
	e := &Engine{analyzer: analyzer}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) profile(mode ProcessingMode, intensity float64) EnhancementProfile {
	if e.profiles != nil {
		return e.profiles.Get(mode, intensity)
	}
	return GetProcessingParams(mode, intensity)
}

// run threads one image through a sequence of stages and records which ran.
type run struct {
	ctx    context.Context
	img    *image.NRGBA
	stages []string
	labels []string
}

func newRun(ctx context.Context, img *image.NRGBA) *run {
	return &run{ctx: ctx, img: img}
}

func (r *run) apply(stage string, fn func(*image.NRGBA) (*image.NRGBA, error)) (err error) {
	if ctxErr := r.ctx.Err(); ctxErr != nil {
		return &ProcessingError{Stage: stage, Err: ctxErr}
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = &ProcessingError{Stage: stage, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()

	out, err := fn(r.img)
	if err != nil {
		return &ProcessingError{Stage: stage, Err: err}
	}
	if out == nil || out.Rect.Empty() {
		return &ProcessingError{Stage: stage, Err: errors.New("stage produced an empty image")}
	}

	r.img = out
	r.stages = append(r.stages, stage)
	return nil
}

func (r *run) label(format string, args ...interface{}) {
	r.labels = append(r.labels, fmt.Sprintf(format, args...))
}

// infallible adapts a filter that cannot fail to the stage signature.
func infallible(fn func(*image.NRGBA) *image.NRGBA) func(*image.NRGBA) (*image.NRGBA, error) {
	return func(img *image.NRGBA) (*image.NRGBA, error) {
		return fn(img), nil
	}
}

func prepareInput(img image.Image) (*image.NRGBA, error) {
	if img == nil {
		return nil, &ProcessingError{Stage: "input", Err: errors.New("image is nil")}
	}
	if img.Bounds().Empty() {
		return nil, &ProcessingError{Stage: "input", Err: errors.New("image has no pixels")}
	}
	return toNRGBA(img), nil
}
