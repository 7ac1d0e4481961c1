package models

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every layer. Storage and transport failures are
// not given a sentinel: anything that is not one of the errors below is
// treated as an infrastructure failure.
var (
	// ErrValidation is returned when caller-supplied data violates an entity invariant
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when a referenced node does not exist
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned by the identity layer for bad or missing credentials
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError describes which field failed validation and why
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NotFoundError builds a NotFound failure for the given subject
func NotFoundError(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// Kind classifies an error into the failure taxonomy
type Kind int

const (
	KindNone Kind = iota
	KindValidation
	KindNotFound
	KindUnauthorized
	KindInfrastructure
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "infrastructure"
	}
}

// KindOf walks the error chain and reports its taxonomy kind
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	default:
		return KindInfrastructure
	}
}
