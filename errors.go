package zxorm

import (
	"errors"
	"fmt"

	"github.com/tadejg/zxorm-sqlcipher/dialect/sql"
)

// ErrClosed is returned when an operation is attempted on a closed
// connection.
var ErrClosed = errors.New("zxorm: connection is closed")

// ValidationError reports a schema or query shape problem: duplicate
// columns, unknown foreign-key targets, tables not registered with the
// connection. These are always detected before any SQL reaches the engine.
type ValidationError struct {
	Name string // table or query the problem belongs to
	Err  error
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("zxorm: invalid %s: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidation reports whether the error is a ValidationError.
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// NotFoundError is returned by operations that require a row to exist, such
// as Query.Only. Plain lookups (Find, First, Last, One) report a missing
// row as an empty result instead.
type NotFoundError struct {
	Table string
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	return "zxorm: " + e.Table + " not found"
}

// IsNotFound reports whether the error is a NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// ConstraintError reports a constraint violation surfaced by the engine.
type ConstraintError struct {
	Table string
	Err   error
}

// Error returns the error string.
func (e *ConstraintError) Error() string {
	return fmt.Sprintf("zxorm: constraint failed on %s: %v", e.Table, e.Err)
}

// Unwrap returns the underlying engine error.
func (e *ConstraintError) Unwrap() error { return e.Err }

// IsConstraint reports whether the error is a constraint violation, either
// wrapped or raw from the driver.
func IsConstraint(err error) bool {
	if err == nil {
		return false
	}
	var e *ConstraintError
	return errors.As(err, &e) || sql.IsConstraintError(err)
}

// QueryError wraps a failure of a row-returning operation.
type QueryError struct {
	Table string
	Op    string // "select", "find", "count", ...
	Err   error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	return fmt.Sprintf("zxorm: querying %s (%s): %v", e.Table, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error { return e.Err }

// MutationError wraps a failure of an insert, update or delete.
type MutationError struct {
	Table string
	Op    string // "insert", "update", "delete", ...
	Err   error
}

// Error returns the error string.
func (e *MutationError) Error() string {
	return fmt.Sprintf("zxorm: %s %s: %v", e.Op, e.Table, e.Err)
}

// Unwrap returns the underlying error.
func (e *MutationError) Unwrap() error { return e.Err }

// queryErr wraps err as a QueryError unless it is nil.
func queryErr(table, op string, err error) error {
	if err == nil {
		return nil
	}
	return &QueryError{Table: table, Op: op, Err: err}
}

// mutationErr wraps err as a MutationError, classifying engine constraint
// violations on the way.
func mutationErr(table, op string, err error) error {
	if err == nil {
		return nil
	}
	if sql.IsConstraintError(err) {
		err = &ConstraintError{Table: table, Err: err}
	}
	return &MutationError{Table: table, Op: op, Err: err}
}
