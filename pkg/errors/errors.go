// Package errors provides the error taxonomy for the sbommeld engine.
// Sentinel errors support programmatic checks with errors.Is; the typed
// errors carry enough context to tell the caller which source document
// or reconciliation unit failed and why.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the sbommeld engine.
var (
	// ErrNotFound indicates that a requested resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoPackages indicates that classification or merge was invoked
	// for a reconciliation unit with no stored packages.
	ErrNoPackages = errors.New("no packages stored for unit")

	// ErrEmptyResult indicates that a merge selected zero components.
	// Callers must not persist the (empty) document as a success.
	ErrEmptyResult = errors.New("merge produced no components")

	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = errors.New("operation canceled")

	// ErrReadOnly indicates an attempt to modify a read-only store.
	ErrReadOnly = errors.New("read only")
)

// NotFoundError represents an error when a resource is not found.
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ParseError represents an error when parsing a source document.
type ParseError struct {
	Format  string // "spdx", "cyclonedx", "yaml", ...
	Source  string // scanner or source name, if known
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("parse error in %s document from %s: %s", e.Format, e.Source, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *ParseError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewParseError creates a new ParseError.
func NewParseError(format, source, message string, err error) *ParseError {
	return &ParseError{Format: format, Source: source, Message: message, Err: err}
}

// SourceError represents a failure scoped to a single source document.
// Normalization failures for one source must not abort the others, so
// callers collect SourceErrors and keep going.
type SourceError struct {
	Source string
	Unit   string
	Err    error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	if e.Unit != "" {
		return fmt.Sprintf("source %s failed for unit %s: %v", e.Source, e.Unit, e.Err)
	}
	return fmt.Sprintf("source %s failed: %v", e.Source, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *SourceError) Unwrap() error {
	return e.Err
}

// NewSourceError creates a new SourceError.
func NewSourceError(source, unit string, err error) *SourceError {
	return &SourceError{Source: source, Unit: unit, Err: err}
}

// MergeError represents a failure during canonical document assembly.
type MergeError struct {
	Unit    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *MergeError) Error() string {
	return fmt.Sprintf("merge failed for unit %s: %s", e.Unit, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *MergeError) Unwrap() error {
	return e.Err
}

// NewMergeError creates a new MergeError.
func NewMergeError(unit, message string, err error) *MergeError {
	return &MergeError{Unit: unit, Message: message, Err: err}
}

// Helper functions for error checking.

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsNoPackages checks if an error is a classification precondition error.
func IsNoPackages(err error) bool {
	return errors.Is(err, ErrNoPackages)
}

// IsEmptyResult checks if an error indicates a merge with no selectable components.
func IsEmptyResult(err error) bool {
	return errors.Is(err, ErrEmptyResult)
}

// Helper wrapping functions for common patterns.

// WrapParse wraps an error as a ParseError.
func WrapParse(format, source string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, source, err.Error(), err)
}

// WrapSource wraps an error as a SourceError.
func WrapSource(source, unit string, err error) error {
	if err == nil {
		return nil
	}
	return NewSourceError(source, unit, err)
}
