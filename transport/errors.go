package transport

import (
	"errors"
	"fmt"
)

// ErrorCode classifies pipeline errors.
type ErrorCode int

const (
	// CodeTransport indicates a network-level call failure.
	CodeTransport ErrorCode = iota
	// CodeProtocol indicates an unexpected HTTP status code.
	CodeProtocol
	// CodeResolution indicates the resolver produced no candidate server.
	CodeResolution
	// CodeMiddleware indicates a misconfigured request middleware.
	CodeMiddleware
	// CodeParse indicates a malformed registry payload.
	CodeParse
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case CodeTransport:
		return "transport"
	case CodeProtocol:
		return "protocol"
	case CodeResolution:
		return "resolution"
	case CodeMiddleware:
		return "middleware"
	case CodeParse:
		return "parse"
	default:
		return "unknown"
	}
}

// Error is a structured pipeline error with classification.
type Error struct {
	// StatusCode is the HTTP status code (0 for non-protocol errors).
	StatusCode int
	// Code classifies the error.
	Code ErrorCode
	// Message describes the error.
	Message string
	// Retryable indicates whether the operation can be retried.
	Retryable bool
	// Body is the response body for protocol errors (may be nil).
	Body []byte
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("transport: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("transport: %s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewTransportError creates a retryable network-level error.
func NewTransportError(err error) *Error {
	return &Error{
		Code:      CodeTransport,
		Message:   err.Error(),
		Retryable: true,
		Err:       err,
	}
}

// NewProtocolError creates an unexpected-status error. Only 5xx responses
// are retryable.
func NewProtocolError(statusCode int, body []byte) *Error {
	return &Error{
		StatusCode: statusCode,
		Code:       CodeProtocol,
		Message:    fmt.Sprintf("HTTP %d", statusCode),
		Retryable:  statusCode >= 500,
		Body:       body,
	}
}

// NewResolutionError creates a non-retryable resolver error.
func NewResolutionError(err error) *Error {
	return &Error{
		Code:      CodeResolution,
		Message:   err.Error(),
		Retryable: false,
		Err:       err,
	}
}

// NewMiddlewareError creates a non-retryable middleware error.
// Misconfigured middleware cannot self-correct by retrying.
func NewMiddlewareError(msg string, err error) *Error {
	return &Error{
		Code:      CodeMiddleware,
		Message:   msg,
		Retryable: false,
		Err:       err,
	}
}

// NewParseError creates a non-retryable payload parse error.
func NewParseError(err error) *Error {
	return &Error{
		Code:      CodeParse,
		Message:   err.Error(),
		Retryable: false,
		Err:       err,
	}
}

// IsTransport checks if an error is a network-level error.
func IsTransport(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeTransport
}

// IsProtocol checks if an error is an unexpected-status error.
func IsProtocol(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeProtocol
}

// IsResolution checks if an error is a resolver error.
func IsResolution(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeResolution
}

// IsMiddleware checks if an error is a middleware error.
func IsMiddleware(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeMiddleware
}

// IsParse checks if an error is a payload parse error.
func IsParse(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeParse
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}

// StatusCode extracts the HTTP status from an error, or 0 when the error
// carries none.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}
