package sql

import (
	"errors"
	"strings"
)

// errorCoder is implemented by driver errors that expose a numeric result
// code (modernc.org/sqlite does).
type errorCoder interface {
	Code() int
}

// SQLite primary result code for constraint violations. Extended codes
// shift the specific constraint kind into the high bits.
const (
	sqliteConstraint           = 19
	sqliteConstraintUnique     = 2067
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintForeignKey = 787
	sqliteConstraintNotNull    = 1299
	sqliteConstraintCheck      = 275
)

// IsConstraintError reports whether the error resulted from a database
// constraint violation of any kind.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[errorCoder](err); ok {
		code := e.Code()
		if code&0xff == sqliteConstraint {
			return true
		}
	}
	return containsAny(err.Error(), "constraint failed")
}

// IsUniqueConstraintError reports whether the error resulted from a UNIQUE
// or PRIMARY KEY constraint violation.
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[errorCoder](err); ok {
		code := e.Code()
		if code == sqliteConstraintUnique || code == sqliteConstraintPrimaryKey {
			return true
		}
	}
	return containsAny(err.Error(),
		"UNIQUE constraint failed",
		"PRIMARY KEY constraint failed",
	)
}

// IsForeignKeyConstraintError reports whether the error resulted from a
// FOREIGN KEY constraint violation.
func IsForeignKeyConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[errorCoder](err); ok {
		if e.Code() == sqliteConstraintForeignKey {
			return true
		}
	}
	return containsAny(err.Error(), "FOREIGN KEY constraint failed")
}

// IsNotNullConstraintError reports whether the error resulted from a
// NOT NULL constraint violation.
func IsNotNullConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[errorCoder](err); ok {
		if e.Code() == sqliteConstraintNotNull {
			return true
		}
	}
	return containsAny(err.Error(), "NOT NULL constraint failed")
}

// asError extracts an error implementing T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
