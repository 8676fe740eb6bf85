package ragerr

import (
	"errors"
	"fmt"
)

// Error is the structured error type used across ragd components.
// The index manager is the last point that translates these into the
// caller-facing vocabulary ("not ready", "re-ingestion required", ...).
type Error struct {
	// Code is the unique error code (e.g., "ERR_202_CORRUPT_INDEX").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Store, Embedding, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error, if any.
	Cause error

	// Retryable indicates whether the caller may retry the operation.
	Retryable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code, enabling errors.Is with sentinel-style targets.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates an Error with the given code and message.
// Category, severity, and the retryable flag are derived from the code.
func New(code, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an Error from an existing error, keeping its message.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Embedding creates an embedding-backend error (unreachable capability or
// malformed output). Fatal to the calling operation; never retried internally.
func Embedding(message string, cause error) *Error {
	return New(CodeEmbeddingFailed, message, cause)
}

// EmptyInput creates a warning-level "nothing to index" error.
func EmptyInput(message string) *Error {
	return New(CodeEmptyInput, message, nil)
}

// NotFound creates a "no persisted index at path" error.
func NotFound(message string, cause error) *Error {
	return New(CodeIndexNotFound, message, cause)
}

// Corrupt creates a "persisted index cannot be fully reconstructed" error.
func Corrupt(message string, cause error) *Error {
	return New(CodeCorruptIndex, message, cause)
}

// VersionMismatch creates an "incompatible persisted format version" error.
func VersionMismatch(message string) *Error {
	return New(CodeVersionMismatch, message, nil)
}

// Unavailable creates a "no index exists yet" error; callers surface this
// as service-not-ready rather than as an internal failure.
func Unavailable(message string) *Error {
	return New(CodeIndexUnavailable, message, nil)
}

// DimensionMismatch creates a vector dimensionality error.
func DimensionMismatch(expected, got int) *Error {
	return New(CodeDimensionMismatch,
		fmt.Sprintf("dimension mismatch: expected %d, got %d", expected, got), nil)
}

// CodeOf extracts the error code from an Error anywhere in err's chain.
// Returns empty string if none is found.
func CodeOf(err error) string {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code string) bool {
	return CodeOf(err) == code
}

// IsNotFound reports whether err indicates a missing persisted index.
func IsNotFound(err error) bool { return HasCode(err, CodeIndexNotFound) }

// IsCorrupt reports whether err indicates malformed persisted state,
// including an incompatible format version.
func IsCorrupt(err error) bool {
	c := CodeOf(err)
	return c == CodeCorruptIndex || c == CodeVersionMismatch
}

// IsUnavailable reports whether err indicates the index is not ready yet.
func IsUnavailable(err error) bool { return HasCode(err, CodeIndexUnavailable) }

// IsEmptyInput reports whether err is the warning-level empty-input outcome.
func IsEmptyInput(err error) bool { return HasCode(err, CodeEmptyInput) }

// IsRetryable reports whether the caller may usefully retry.
func IsRetryable(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Retryable
	}
	return false
}
