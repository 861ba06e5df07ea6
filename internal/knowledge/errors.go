package knowledge

import "errors"

var (
	ErrInvalidDimensions = errors.New("grid dimensions must be positive")
	ErrOutOfBounds       = errors.New("cell out of bounds")
	ErrInvalidCount      = errors.New("invalid hazard count")
	ErrContradiction     = errors.New("fact contradicts known cells")

	// ErrPassLimit means inference stopped early. Facts derived before the
	// limit are still sound.
	ErrPassLimit = errors.New("inference pass limit reached")
)
