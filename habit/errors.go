package habit

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of every invalid-input error.
	ErrValidation = errors.New("validation failed")

	// ErrHabitNotFound is returned when a referenced habit doesn't exist.
	ErrHabitNotFound = errors.New("habit not found")

	// ErrInvalidCoordinate is returned for a (month, day) outside the matrix.
	ErrInvalidCoordinate = errors.New("invalid month/day coordinate")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError describes rejected user input. The operation is aborted
// and the state is left unchanged.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidCoordinate)
}

// IsNotFound returns true if the error indicates a missing habit.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrHabitNotFound)
}
