package shardmap

import (
	"errors"
	"fmt"
)

// Error is a map-level error with a stable code.
// Two Errors match under errors.Is when their codes are equal.
type Error struct {
	Code    string // Error code (e.g., "SM-MAP-4090")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func newError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithDetails returns a copy of the error with additional details.
func (e *Error) WithDetails(details string) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, Cause: e.Cause}
}

// WithCause returns a copy of the error wrapping cause.
func (e *Error) WithCause(cause error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, Cause: cause}
}

var (
	// ErrInvalidBucketCount is returned by New for a non-positive bucket count.
	ErrInvalidBucketCount = newError("SM-MAP-4000", "bucket count must be positive")

	// ErrInvalidConfig is returned by New for missing functions or an unknown strategy.
	ErrInvalidConfig = newError("SM-MAP-4001", "invalid map configuration")

	// ErrDoesNotExist is returned by Get and Replace for an absent key.
	ErrDoesNotExist = newError("SM-MAP-4040", "key does not exist")

	// ErrDropFailed is returned by Delete when there is no entry to remove.
	ErrDropFailed = newError("SM-MAP-4041", "drop failed")

	// ErrAlreadyExists is returned by Insert when the key is already stored.
	// The map is unchanged; the caller lost the race for that key.
	ErrAlreadyExists = newError("SM-MAP-4090", "key already exists")

	// ErrOutOfMemory is returned when an allocation is refused, either for the
	// bucket array at construction or for a new entry.
	ErrOutOfMemory = newError("SM-MAP-5070", "out of memory")
)

// Code extracts the error code from err, or "" if err is not an *Error.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
