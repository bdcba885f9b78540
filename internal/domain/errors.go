package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the service. Lack of data and degraded
// replay are not errors: they are typed result variants on the responses
// themselves.
var (
	// ErrNotFound marks an unknown run, node or tick.
	ErrNotFound = errors.New("not found")
	// ErrConcurrencyConflict marks a lost optimistic-version race during
	// sibling normalization. Callers retry a bounded number of times.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	// ErrSealed marks a write against telemetry that has already been sealed.
	ErrSealed = errors.New("telemetry is sealed")
)

// ValidationError marks malformed input, e.g. a bad threshold grid or an
// unknown patch key.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a field-scoped validation error.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
