package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// InvalidNode indicates a node id outside the substrate's range.
	// Programming or configuration error; never retried.
	InvalidNode ErrorCode = "INVALID_NODE"
	// DegenerateParameter indicates a non-finite or out-of-bound tunable
	// parameter. The caller must supply corrected parameters.
	DegenerateParameter ErrorCode = "DEGENERATE_PARAMETER"
	// Divergence indicates the evolution loop exceeded the magnitude
	// ceiling. The run is abandoned; the tuner recovers by shrinking steps.
	Divergence ErrorCode = "DIVERGENCE"
	// EmptyInput indicates the input text was empty
	EmptyInput ErrorCode = "EMPTY_INPUT"
	// RunNotFound indicates a run id with no stored record
	RunNotFound ErrorCode = "RUN_NOT_FOUND"
	// InvalidRequest indicates a malformed caller request, such as an
	// unparseable body or query parameter
	InvalidRequest ErrorCode = "INVALID_REQUEST"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// RrfError represents an engine error with a stable code and message
type RrfError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error       // Underlying error (not exported to JSON)
}

// New creates a new RrfError
func New(code ErrorCode, message string) *RrfError {
	return &RrfError{Code: code, Message: message}
}

// Newf creates a new RrfError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *RrfError {
	return &RrfError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a new RrfError wrapping an underlying cause
func Wrap(code ErrorCode, message string, cause error) *RrfError {
	return &RrfError{Code: code, Message: message, cause: cause}
}

// Error implements the error interface
func (e *RrfError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *RrfError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *RrfError) WithDetails(details interface{}) *RrfError {
	e.Details = details
	return e
}

// From returns err as an RrfError, wrapping foreign errors under
// InternalError.
func From(err error) *RrfError {
	var re *RrfError
	if errors.As(err, &re) {
		return re
	}
	return Wrap(InternalError, "unexpected error", err)
}

// CodeOf extracts the error code from err, or InternalError if err is not
// an RrfError.
func CodeOf(err error) ErrorCode {
	var re *RrfError
	if errors.As(err, &re) {
		return re.Code
	}
	return InternalError
}

// HasCode reports whether err carries the given code
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
