// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors
var (
	ErrNotFound         = errors.New("record not found")
	ErrOverrideDemoMode = errors.New("override is not available in demo mode")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrTimeout          = errors.New("operation timed out")
)

// StorageError represents a failure in the journal database. The gate treats
// any StorageError as fatal for the evaluation: a broken store must never
// degrade into a permissive answer.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("storage error [%s]: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage error [%s]", e.Op)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a new StorageError.
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{
		Op:  op,
		Err: err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// GateLockedError is returned when an action is refused because the
// discipline gate is closed. It is an expected outcome, not a fault; callers
// surface it as a normal message rather than a stack of context.
type GateLockedError struct {
	Reasons []string
}

func (e *GateLockedError) Error() string {
	if len(e.Reasons) == 0 {
		return "trading is blocked by the discipline gate"
	}
	return fmt.Sprintf("trading is blocked by the discipline gate: %s", strings.Join(e.Reasons, ", "))
}

// NewGateLockedError creates a new GateLockedError.
func NewGateLockedError(reasons []string) *GateLockedError {
	return &GateLockedError{Reasons: reasons}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
