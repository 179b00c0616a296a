package network

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrDuplicateEntity          = errors.New("duplicate entity")
	ErrNotFound                 = errors.New("not found")
	ErrUnknownAggregationPolicy = errors.New("unknown aggregation policy")
	ErrInvariantViolation       = errors.New("invariant violation")
	ErrUnknownAttribute         = errors.New("unknown attribute")
	ErrInvalidAttribute         = errors.New("invalid attribute value")
	ErrInvalidMerge             = errors.New("invalid merge")
	ErrInvalidID                = errors.New("invalid ID")
)

// GraphError provides structured error information for graph operations.
type GraphError struct {
	Op      string // Operation that failed (e.g., "AddNode", "MergeEdges")
	Entity  string // Entity type ("node", "edge", "policy")
	ID      string // Entity ID (if applicable)
	Field   string // Attribute name (if applicable)
	Cause   error
	Context string
}

// Error implements the error interface.
func (e *GraphError) Error() string {
	subject := e.Entity
	if e.ID != "" {
		subject = fmt.Sprintf("%s %q", e.Entity, e.ID)
	}
	if e.Field != "" {
		subject = fmt.Sprintf("%s (attribute %s)", subject, e.Field)
	}
	prefix := e.Op
	if subject != "" {
		prefix = e.Op + " " + subject
	}
	if e.Context != "" {
		return fmt.Sprintf("%s: %v: %s", prefix, e.Cause, e.Context)
	}
	return fmt.Sprintf("%s: %v", prefix, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *GraphError) Unwrap() error {
	return e.Cause
}

// ErrorBuilder provides a fluent interface for building GraphErrors.
type ErrorBuilder struct {
	err GraphError
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: GraphError{Op: op}}
}

// Node sets the entity to "node" with the given ID.
func (b *ErrorBuilder) Node(id NodeID) *ErrorBuilder {
	b.err.Entity = "node"
	b.err.ID = string(id)
	return b
}

// Edge sets the entity to "edge" with the given ID.
func (b *ErrorBuilder) Edge(id EdgeID) *ErrorBuilder {
	b.err.Entity = "edge"
	b.err.ID = string(id)
	return b
}

// Policy sets the entity to the aggregation table section.
func (b *ErrorBuilder) Policy(section string) *ErrorBuilder {
	b.err.Entity = section + " policy"
	return b
}

// Field sets the attribute name.
func (b *ErrorBuilder) Field(a Attr) *ErrorBuilder {
	b.err.Field = string(a)
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

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	e := b.err
	return &e
}

func nodeNotFound(op string, id NodeID) error {
	return NewError(op).Node(id).Cause(ErrNotFound).Err()
}

func edgeNotFound(op string, id EdgeID) error {
	return NewError(op).Edge(id).Cause(ErrNotFound).Err()
}

func invariant(op, format string, args ...any) error {
	return NewError(op).Cause(ErrInvariantViolation).Context(format, args...).Err()
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvariantViolation returns true if err signals a broken structural invariant.
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}

// IsPolicyError returns true if err signals a missing or malformed aggregation policy.
func IsPolicyError(err error) bool {
	return errors.Is(err, ErrUnknownAggregationPolicy)
}
