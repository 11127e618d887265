package enhancement

import "heri-science-api/internal/cache"

// EnhancementProfile holds the filter strengths and feature flags for one
// (mode, intensity) pair. It is never mutated after creation.
type EnhancementProfile struct {
	Mode             ProcessingMode
	UnsharpStrength  float64
	ContrastFactor   float64
	ColorFactor      float64
	UnsharpRadius    float64
	UnsharpPercent   int
	UnsharpThreshold int
	MultiScale       bool
	EdgePreserve     bool
	HistogramEnhance bool
	DetailRecovery   bool
	TextureEnhance   bool
	Description      string
}

// GetProcessingParams returns the profile for mode at intensity. Intensity is
// not clamped; callers validate it.
func GetProcessingParams(mode ProcessingMode, intensity float64) EnhancementProfile {
	var p EnhancementProfile
	switch mode {
	case Fast:
		p = EnhancementProfile{
			UnsharpStrength: 1.0 + intensity*0.3,
			ContrastFactor:  1.0 + intensity*0.1,
			ColorFactor:     1.0,
			Description:     "Fast Mode - Lightning speed preview",
		}
	case Balanced:
		p = EnhancementProfile{
			UnsharpStrength:  1.2 + intensity*0.4,
			ContrastFactor:   1.0 + intensity*0.15,
			ColorFactor:      1.0 + intensity*0.1,
			MultiScale:       intensity > 0.5,
			HistogramEnhance: true,
			DetailRecovery:   intensity > 0.6,
			Description:      "Balanced Mode - Optimal speed/quality",
		}
	case Quality:
		p = EnhancementProfile{
			UnsharpStrength:  1.3 + intensity*0.5,
			ContrastFactor:   1.0 + intensity*0.2,
			ColorFactor:      1.0 + intensity*0.15,
			MultiScale:       true,
			EdgePreserve:     true,
			HistogramEnhance: true,
			DetailRecovery:   true,
			TextureEnhance:   intensity > 0.7,
			Description:      "Quality Mode - Professional results",
		}
	default:
		mode = Ultra
		p = EnhancementProfile{
			UnsharpStrength:  1.5 + intensity*0.7,
			ContrastFactor:   1.1 + intensity*0.3,
			ColorFactor:      1.1 + intensity*0.2,
			MultiScale:       true,
			EdgePreserve:     true,
			HistogramEnhance: true,
			DetailRecovery:   true,
			TextureEnhance:   true,
			Description:      "Ultra Mode - Maximum quality",
		}
	}

	p.Mode = mode
	p.UnsharpRadius = 1.5
	if p.DetailRecovery {
		p.UnsharpRadius = 2.0
	}
	p.UnsharpPercent = int((p.UnsharpStrength - 1.0) * 200)
	p.UnsharpThreshold = 3
	return p
}

type profileKey struct {
	mode      ProcessingMode
	intensity float64
}

// ProfileCache memoizes GetProcessingParams.
type ProfileCache struct {
	entries *cache.Cache[profileKey, EnhancementProfile]
}

// NewProfileCache creates an empty profile cache.
func NewProfileCache() *ProfileCache {
	return &ProfileCache{entries: cache.New[profileKey, EnhancementProfile]()}
}

// Get returns the cached profile or computes and stores it.
func (c *ProfileCache) Get(mode ProcessingMode, intensity float64) EnhancementProfile {
	key := profileKey{mode: mode, intensity: intensity}
	if p, ok := c.entries.Get(key); ok {
		return p
	}
	p := GetProcessingParams(mode, intensity)
	c.entries.Put(key, p)
	return p
}

// Len reports the number of cached profiles.
func (c *ProfileCache) Len() int {
	return c.entries.Len()
}
