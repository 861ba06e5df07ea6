package mines

import "errors"

var (
	ErrInvalidParams    = errors.New("invalid game params")
	ErrGenerationFailed = errors.New("could not generate a field")
)

type AssertionError struct {
	message string
}

// [AssertionError] implements [error]
func (e AssertionError) Error() string {
	return e.message
}
