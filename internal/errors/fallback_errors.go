package errors

import (
	"fmt"
	"strings"
)

// Attempt records the outcome of one backend in a fallback chain.
type Attempt struct {
	Backend string
	Err     error
}

// FallbackError is returned when every backend in a chain failed. It keeps
// each attempt so the primary's cause is not lost behind the last error.
type FallbackError struct {
	Op       string
	Attempts []Attempt
}

func (e *FallbackError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Backend, a.Err))
	}
	return fmt.Sprintf("%s: all backends failed: %s", e.Op, strings.Join(parts, "; "))
}

// Unwrap exposes every attempt's error to Is and As.
func (e *FallbackError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// Last returns the error of the final attempt.
func (e *FallbackError) Last() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// NewFallbackError creates a FallbackError for op
func NewFallbackError(op string, attempts []Attempt) *FallbackError {
	return &FallbackError{Op: op, Attempts: attempts}
}

// IsFallbackError checks if an error is a FallbackError
func IsFallbackError(err error) bool {
	var fe *FallbackError
	return As(err, &fe)
}
