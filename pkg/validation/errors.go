package validation

import (
	"errors"
	"strings"
)

// ErrInvalidDefinition is matched by every validation failure.
var ErrInvalidDefinition = errors.New("invalid workflow definition")

// Error lists every problem found in a workflow definition.
type Error struct {
	Problems []string
}

func (e *Error) Error() string {
	if len(e.Problems) == 0 {
		return ErrInvalidDefinition.Error()
	}

	return ErrInvalidDefinition.Error() + ": " + strings.Join(e.Problems, "; ")
}

func (e *Error) Unwrap() error {
	return ErrInvalidDefinition
}

// IsValidationError checks if an error was produced by definition validation.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidDefinition)
}
