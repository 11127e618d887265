package enhancement

import "strings"

// ProcessingMode is a named speed/quality tier.
type ProcessingMode int

const (
	Fast ProcessingMode = iota
	Balanced
	Quality
	Ultra
)

// AutoMode asks ResolveMode to pick a tier from the intensity.
const AutoMode = "auto"

var modeTokens = map[string]ProcessingMode{
	"fast":     Fast,
	"balanced": Balanced,
	"quality":  Quality,
	"ultra":    Ultra,
}

// String returns the lower-case token for the mode.
func (m ProcessingMode) String() string {
	switch m {
	case Fast:
		return "fast"
	case Balanced:
		return "balanced"
	case Quality:
		return "quality"
	case Ultra:
		return "ultra"
	default:
		return "unknown"
	}
}

// Label is the upper-case name used in metadata.
func (m ProcessingMode) Label() string {
	return strings.ToUpper(m.String())
}

// SelectMode maps intensity onto a tier. Boundary values belong to the upper tier.
func SelectMode(intensity float64) ProcessingMode {
	switch {
	case intensity < 0.3:
		return Fast
	case intensity < 0.6:
		return Balanced
	case intensity < 0.85:
		return Quality
	default:
		return Ultra
	}
}

// ParseMode parses an explicit mode token.
func ParseMode(token string) (ProcessingMode, error) {
	mode, ok := modeTokens[strings.ToLower(strings.TrimSpace(token))]
	if !ok {
		return 0, &InvalidModeError{Token: token}
	}
	return mode, nil
}

// ResolveMode selects from intensity for "auto" (or empty) and parses anything else.
func ResolveMode(token string, intensity float64) (ProcessingMode, error) {
	normalized := strings.ToLower(strings.TrimSpace(token))
	if normalized == "" || normalized == AutoMode {
		return SelectMode(intensity), nil
	}
	return ParseMode(normalized)
}
