package model

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrNotFound           = errors.New("not found")
	ErrConfig             = errors.New("invalid model configuration")
	ErrInvariantViolation = errors.New("value outside [min, max]")
	ErrFieldNotFound      = errors.New("field not found")
	ErrInvalidValue       = errors.New("invalid value for field")
)

// ModelError provides structured error information for model operations.
type ModelError struct {
	Op      string // Operation that failed (e.g., "load", "apply")
	Entity  string // Entity type ("node" or "edge")
	ID      string // Entity ID (if applicable)
	Field   string // Field path (for writes)
	Cause   error  // Underlying error
	Context string // Additional context
}

// Error implements the error interface.
func (e *ModelError) Error() string {
	msg := e.Op
	if e.Entity != "" {
		msg += " " + e.Entity
	}
	if e.ID != "" {
		msg += " " + e.ID
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" (field %s)", e.Field)
	}
	if e.Context != "" {
		msg += fmt.Sprintf(" (%s)", e.Context)
	}
	return fmt.Sprintf("%s: %v", msg, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *ModelError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error's cause.
func (e *ModelError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// ErrorBuilder provides a fluent interface for building ModelErrors.
type ErrorBuilder struct {
	err ModelError
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: ModelError{Op: op}}
}

// Node sets the entity to "node" with the given ID.
func (b *ErrorBuilder) Node(id string) *ErrorBuilder {
	b.err.Entity = "node"
	b.err.ID = id
	return b
}

// Edge sets the entity to "edge" with the given ID.
func (b *ErrorBuilder) Edge(id string) *ErrorBuilder {
	b.err.Entity = "edge"
	b.err.ID = id
	return b
}

// Field sets the field path.
func (b *ErrorBuilder) Field(f Field) *ErrorBuilder {
	b.err.Field = f.String()
	return b
}

// Context sets additional context information.
func (b *ErrorBuilder) Context(format string, args ...any) *ErrorBuilder {
	b.err.Context = fmt.Sprintf(format, args...)
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Build returns the constructed ModelError.
func (b *ErrorBuilder) Build() *ModelError {
	return &b.err
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return &b.err
}

// NodeNotFoundError creates a node not found error.
func NodeNotFoundError(op, nodeID string) error {
	return NewError(op).Node(nodeID).Cause(ErrNotFound).Err()
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvariantViolation returns true if a batch was rejected because a value left its bounds.
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}
