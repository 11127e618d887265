package strategy

import (
	"context"
	"fmt"
	"image"
	"sort"

	"heri-science-api/internal/enhancement"
)

// Process type names accepted by the API
const (
	SuperResolution = "super-resolution"
	Restoration     = "restoration"
)

// ProcessStrategy runs one kind of image processing
type ProcessStrategy interface {
	Process(ctx context.Context, img image.Image, intensity float64, mode string) (*enhancement.Result, error)
	// Fallback produces a cheaper result when Process fails
	Fallback(img image.Image) (*enhancement.Result, error)
	GetStrategyName() string
}

// Enhancer is implemented by *enhancement.Engine
type Enhancer interface {
	Enhance(ctx context.Context, img image.Image, intensity float64, modeToken string) (*enhancement.Result, error)
}

// Restorer is implemented by *enhancement.Engine
type Restorer interface {
	Restore(ctx context.Context, img image.Image, intensity float64, modeToken string) (*enhancement.Result, error)
}

// SuperResolutionStrategy upscales images 2x
type SuperResolutionStrategy struct {
	engine Enhancer
}

// NewSuperResolutionStrategy creates a new super-resolution strategy
func NewSuperResolutionStrategy(engine Enhancer) ProcessStrategy {
	return &SuperResolutionStrategy{
		engine: engine,
	}
}

func (s *SuperResolutionStrategy) Process(ctx context.Context, img image.Image, intensity float64, mode string) (*enhancement.Result, error) {
	return s.engine.Enhance(ctx, img, intensity, mode)
}

func (s *SuperResolutionStrategy) Fallback(img image.Image) (*enhancement.Result, error) {
	return enhancement.FallbackUpscale(img)
}

// GetStrategyName returns the strategy name
func (s *SuperResolutionStrategy) GetStrategyName() string {
	return SuperResolution
}

// RestorationStrategy repairs faded or noisy images at their original size
type RestorationStrategy struct {
	engine Restorer
}

// NewRestorationStrategy creates a new restoration strategy
func NewRestorationStrategy(engine Restorer) ProcessStrategy {
	return &RestorationStrategy{
		engine: engine,
	}
}

func (s *RestorationStrategy) Process(ctx context.Context, img image.Image, intensity float64, mode string) (*enhancement.Result, error) {
	return s.engine.Restore(ctx, img, intensity, mode)
}

func (s *RestorationStrategy) Fallback(img image.Image) (*enhancement.Result, error) {
	return enhancement.FallbackSharpen(img)
}

// GetStrategyName returns the strategy name
func (s *RestorationStrategy) GetStrategyName() string {
	return Restoration
}

// UnknownStrategyError is returned for an unsupported process type
type UnknownStrategyError struct {
	Name string
}

func (e *UnknownStrategyError) Error() string {
	return fmt.Sprintf("unknown process type %q", e.Name)
}

// Registry looks strategies up by process type
type Registry struct {
	strategies map[string]ProcessStrategy
}

// NewRegistry registers each strategy under its name
func NewRegistry(strategies ...ProcessStrategy) *Registry {
	r := &Registry{strategies: make(map[string]ProcessStrategy, len(strategies))}
	for _, s := range strategies {
		r.strategies[s.GetStrategyName()] = s
	}
	return r
}

// NewDefaultRegistry registers super-resolution and restoration backed by engine
func NewDefaultRegistry(engine *enhancement.Engine) *Registry {
	return NewRegistry(
		NewSuperResolutionStrategy(engine),
		NewRestorationStrategy(engine),
	)
}

// Get returns the strategy for name or an *UnknownStrategyError
func (r *Registry) Get(name string) (ProcessStrategy, error) {
	s, ok := r.strategies[name]
	if !ok {
		return nil, &UnknownStrategyError{Name: name}
	}
	return s, nil
}

// Names lists registered process types in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
