package analysis

import (
	"errors"
	"fmt"
)

// Error kinds for the forecasting engine.
// Use errors.Is to check: errors.Is(err, analysis.ErrMissingConfiguration)
var (
	ErrMissingConfiguration = errors.New("analysis: missing configuration")
	ErrInvalidInput         = errors.New("analysis: invalid input")
	ErrDataGap              = errors.New("analysis: insufficient history")
	ErrSnapshotStale        = errors.New("analysis: snapshot stale")
	ErrComputationOverflow  = errors.New("analysis: non-finite value")
	ErrSnapshotLocked       = errors.New("analysis: snapshot lock unavailable")
)

// FieldError ties an error kind to the offending field.
type FieldError struct {
	Kind  error
	Field string
	Value float64
}

func (e *FieldError) Error() string {
	if errors.Is(e.Kind, ErrMissingConfiguration) {
		return fmt.Sprintf("%v: %s", e.Kind, e.Field)
	}
	return fmt.Sprintf("%v: %s = %v", e.Kind, e.Field, e.Value)
}

func (e *FieldError) Unwrap() error {
	return e.Kind
}

func missing(field string) error {
	return &FieldError{Kind: ErrMissingConfiguration, Field: field}
}

func invalid(field string, v float64) error {
	return &FieldError{Kind: ErrInvalidInput, Field: field, Value: v}
}
