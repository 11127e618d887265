package enhancement

import "fmt"

// InvalidModeError is returned when a mode token is not one of the known modes.
type InvalidModeError struct {
	Token string
}

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid processing mode %q (expected auto, fast, balanced, quality or ultra)", e.Token)
}

// ProcessingError reports a failed stage. No partial output accompanies it.
type ProcessingError struct {
	Stage string
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}
