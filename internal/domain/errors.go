package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrValidation          = errors.New("validation failed")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrStoreTimeout        = errors.New("store timeout")
)

// ValidationError reports malformed or out-of-range input for a field.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConstraintKind identifies which store constraint rejected a write.
type ConstraintKind string

const (
	ConstraintUnique ConstraintKind = "unique"
	ConstraintCheck  ConstraintKind = "check"
)

// ConstraintError is returned by stores when a uniqueness or check
// constraint rejects a write.
type ConstraintError struct {
	Kind       ConstraintKind
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	msg := fmt.Sprintf("%s constraint violation", e.Kind)
	if e.Constraint != "" {
		msg += " (" + e.Constraint + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConstraintError) Is(target error) bool { return target == ErrConstraintViolation }

func (e *ConstraintError) Unwrap() error { return e.Err }
