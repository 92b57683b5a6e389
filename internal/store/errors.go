package store

import (
	"errors"
	"fmt"
)

// Op identifies the kind of storage operation that failed.
type Op string

const (
	// OpRead is a fetch performed for a watch.
	OpRead Op = "read"
	// OpWrite is an upsert or delete.
	OpWrite Op = "write"
)

// ErrClosed is returned by operations on a closed engine.
var ErrClosed = errors.New("store: engine closed")

// ErrMissingID is returned when a record has no integer id field.
var ErrMissingID = errors.New("record has no integer id")

// Error is a storage failure with the operation and entity it affected.
type Error struct {
	Op     Op
	Entity string
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("storage %s %s: %v", e.Op, e.Entity, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func readError(entity string, err error) *Error {
	return &Error{Op: OpRead, Entity: entity, Err: err}
}

func writeError(entity string, err error) *Error {
	return &Error{Op: OpWrite, Entity: entity, Err: err}
}

// IsReadError returns true if err wraps a read failure.
// Uses errors.As to handle wrapped errors.
func IsReadError(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Op == OpRead
	}
	return false
}

// IsWriteError returns true if err wraps a write failure.
func IsWriteError(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Op == OpWrite
	}
	return false
}
