// Package apperr defines the error kinds shared across the terminology
// engine (spec §7): UsageError, InputError, StoreError, IndexError and
// QueryError. Each carries the context needed to log or report the failure
// without re-deriving it from a bare error string, and each supports
// errors.Is/errors.As via a Kind sentinel.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that want to react programmatically
// without string-matching messages - e.g. an HTTP handler mapping a Kind to
// a status code (see server.statusFor). The CLI wrapper's own exit-code
// policy is out of scope for this module (spec §1 treats the command-line
// front-end as a thin client of the engine API).
type Kind int

const (
	// KindUsage: bad arguments, missing database path.
	KindUsage Kind = iota
	// KindInput: malformed RF2 row, unknown file, unreadable path.
	KindInput
	// KindStore: I/O failure, file-lock contention, corrupted primary container.
	KindStore
	// KindIndex: closure or search build failure.
	KindIndex
	// KindQuery: ECL parse failure, search-engine internal failure.
	KindQuery
)

func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "usage"
	case KindInput:
		return "input"
	case KindStore:
		return "store"
	case KindIndex:
		return "index"
	case KindQuery:
		return "query"
	default:
		return "unknown"
	}
}

// Error is the concrete error type produced by every layer of the engine.
type Error struct {
	Kind    Kind
	Message string
	// File and Line locate the offending row for input errors.
	File string
	Line int
	// BatchID identifies the import batch that failed, if any.
	BatchID string
	// Pos is the character (rune) offset of an ECL parse failure.
	Pos int
	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindInput:
		if e.File != "" {
			return fmt.Sprintf("%s: %s:%d: %s", e.Kind, e.File, e.Line, e.Message)
		}
	case KindQuery:
		if e.Pos > 0 {
			return fmt.Sprintf("%s: position %d: %s", e.Kind, e.Pos, e.Message)
		}
	}
	if e.BatchID != "" {
		return fmt.Sprintf("%s: batch %s: %s", e.Kind, e.BatchID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, &apperr.Error{Kind: apperr.KindInput}) match any
// *Error of the same Kind, ignoring its other fields; see IsKind below for
// the idiomatic call form.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Usage builds a KindUsage error.
func Usage(format string, args ...interface{}) *Error { return newf(KindUsage, format, args...) }

// Input builds a KindInput error for a malformed row at file:line.
func Input(file string, line int, err error) *Error {
	return &Error{Kind: KindInput, Message: err.Error(), File: file, Line: line, Err: err}
}

// Store builds a KindStore error from a message; use StoreWrap to also wrap
// the underlying failure.
func Store(format string, args ...interface{}) *Error { return newf(KindStore, format, args...) }

// StoreWrap builds a KindStore error wrapping err.
func StoreWrap(err error, format string, args ...interface{}) *Error {
	e := newf(KindStore, format, args...)
	e.Err = err
	return e
}

// Index builds a KindIndex error from a message.
func Index(format string, args ...interface{}) *Error { return newf(KindIndex, format, args...) }

// Query builds a KindQuery error for an ECL parse failure at character
// (rune) offset pos.
func Query(pos int, format string, args ...interface{}) *Error {
	e := newf(KindQuery, format, args...)
	e.Pos = pos
	return e
}

// IsKind reports whether err is, or wraps, an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
