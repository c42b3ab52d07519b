// Package errors defines the coded error type used across the engine.
// Codes are stable strings so CLI consumers can switch on them.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode identifies a failure mode.
type ErrorCode string

const (
	// ParseFailure indicates a file could not be deeply parsed. It is
	// recorded in run stats only and never aborts an analysis.
	ParseFailure ErrorCode = "PARSE_FAILURE"
	// NodeNotFound indicates a graph node ID resolved to nothing
	NodeNotFound ErrorCode = "NODE_NOT_FOUND"
	// AmbiguousNode indicates a fuzzy node reference matched several nodes
	AmbiguousNode ErrorCode = "AMBIGUOUS_NODE"
	// FileNotFound indicates a path is not part of the analyzed set
	FileNotFound ErrorCode = "FILE_NOT_FOUND"
	// InvalidPattern indicates a malformed glob or regular expression
	InvalidPattern ErrorCode = "INVALID_PATTERN"
	// InvalidRange indicates an out-of-bounds or inverted line range
	InvalidRange ErrorCode = "INVALID_RANGE"
	// AlignmentViolation indicates chunk metadata and vectors disagree in
	// count. The semantic index refuses to adopt such state.
	AlignmentViolation ErrorCode = "ALIGNMENT_VIOLATION"
	// IndexMissing indicates no cached analysis exists for the repo
	IndexMissing ErrorCode = "INDEX_MISSING"
	// EmbeddingsUnavailable indicates no embedder is configured or the
	// run was analyzed without embeddings
	EmbeddingsUnavailable ErrorCode = "EMBEDDINGS_UNAVAILABLE"
	// GitUnavailable indicates git is missing or the dir is not a repo
	GitUnavailable ErrorCode = "GIT_UNAVAILABLE"
	// SourceUnavailable indicates the analysis source could not be
	// resolved (bad path, failed clone)
	SourceUnavailable ErrorCode = "SOURCE_UNAVAILABLE"
	// Locked indicates another analysis holds the repo lock
	Locked ErrorCode = "LOCKED"
	// Internal indicates an unexpected error
	Internal ErrorCode = "INTERNAL"
)

// Error is a coded engine error. Details carries structured context
// (candidate lists, offending values) for JSON output.
type Error struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Hint    string      `json:"hint,omitempty"`
	cause   error
}

// New creates an Error with no underlying cause.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error around an underlying cause.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails attaches structured context and returns the error.
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// WithHint attaches a human-facing suggestion and returns the error.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// CodeOf extracts the ErrorCode from err or any error it wraps.
// Non-coded errors map to Internal.
func CodeOf(err error) ErrorCode {
	var ce *Error
	if stderrors.As(err, &ce) {
		return ce.Code
	}
	return Internal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	var ce *Error
	if stderrors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}
