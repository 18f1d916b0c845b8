package tabula

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("tabula: row not found")

	// ErrNoFilter is returned when a narrowing operation is called with an
	// empty filter. Full-table scans and deletes must go through the
	// explicit all-rows variants.
	ErrNoFilter = errors.New("tabula: operation requires at least one filter")

	// ErrReadBack is returned when a write succeeded but the mandatory
	// follow-up read found no row.
	ErrReadBack = errors.New("tabula: row not found on read-back after write")

	// ErrCompositeKey is returned when an identifier-based helper is called
	// on a table with a composite primary key. Composite keys require the
	// full-predicate lookups instead.
	ErrCompositeKey = errors.New("tabula: operation not supported for composite primary keys")
)

// DefinitionError represents a table-definition contract violation:
// unsatisfiable column combinations, missing or ambiguous primary keys,
// indexes or composite-key members referencing unknown columns. These are
// programmer errors, raised at build time and never retried.
type DefinitionError struct {
	Table   string // Table being defined (may be empty before naming)
	Column  string // Offending column, if any
	Message string
}

// Error returns the error string.
func (e *DefinitionError) Error() string {
	switch {
	case e.Table != "" && e.Column != "":
		return fmt.Sprintf("tabula: schema definition: %s.%s: %s", e.Table, e.Column, e.Message)
	case e.Table != "":
		return fmt.Sprintf("tabula: schema definition: %s: %s", e.Table, e.Message)
	default:
		return fmt.Sprintf("tabula: schema definition: %s", e.Message)
	}
}

// NewDefinitionError returns a new DefinitionError.
func NewDefinitionError(table, column, msg string) *DefinitionError {
	return &DefinitionError{Table: table, Column: column, Message: msg}
}

// IsDefinitionError returns true if the error is a DefinitionError.
func IsDefinitionError(err error) bool {
	if err == nil {
		return false
	}
	var e *DefinitionError
	return errors.As(err, &e)
}

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries the complete ordered list of field-level
// failures collected during a validation run. Validation never
// short-circuits on the first failure; callers see every problem in
// one round trip.
type ValidationError struct {
	Errors []FieldError
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "tabula: validation failed"
	}
	var sb strings.Builder
	sb.WriteString("tabula: validation failed:")
	for _, fe := range e.Errors {
		fmt.Fprintf(&sb, "\n  %s: %s", fe.Field, fe.Message)
	}
	return sb.String()
}

// NewValidationError returns a ValidationError if errs is non-empty,
// otherwise nil.
func NewValidationError(errs []FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e)
}

// ValidationErrors extracts the field-error list from a validation error,
// or nil if err is not one.
func ValidationErrors(err error) []FieldError {
	var e *ValidationError
	if errors.As(err, &e) {
		return e.Errors
	}
	return nil
}

// NotFoundError represents an error when a row is not found.
type NotFoundError struct {
	label string
	key   any // Optional: the key that was searched for
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.key != nil {
		return fmt.Sprintf("tabula: %s not found (key=%v)", e.label, e.key)
	}
	return fmt.Sprintf("tabula: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the table label.
func (e *NotFoundError) Label() string {
	return e.label
}

// Key returns the key that was searched for, if available.
func (e *NotFoundError) Key() any {
	return e.key
}

// NewNotFoundError returns a new NotFoundError for the given table label.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// NewNotFoundErrorWithKey returns a new NotFoundError with the key that
// was searched for.
func NewNotFoundErrorWithKey(label string, key any) *NotFoundError {
	return &NotFoundError{label: label, key: key}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// OperationError wraps a repository operation failure with its context.
type OperationError struct {
	Table string // Table being operated on
	Op    string // Operation (e.g., "create", "find", "ref")
	Err   error  // Underlying error
}

// Error returns the error string.
func (e *OperationError) Error() string {
	return fmt.Sprintf("tabula: %s %s: %v", e.Op, e.Table, e.Err)
}

// Unwrap returns the underlying error.
func (e *OperationError) Unwrap() error {
	return e.Err
}

// NewOperationError returns a new OperationError.
func NewOperationError(table, op string, err error) *OperationError {
	return &OperationError{Table: table, Op: op, Err: err}
}

// IsOperationError returns true if the error is an OperationError.
func IsOperationError(err error) bool {
	if err == nil {
		return false
	}
	var e *OperationError
	return errors.As(err, &e)
}
