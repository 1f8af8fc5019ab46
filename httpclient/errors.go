package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies HTTP client errors.
type ErrorCode int

const (
	// ErrCodeTimeout indicates a request or connection timeout.
	ErrCodeTimeout ErrorCode = iota
	// ErrCodeConnection indicates a connection failure (refused, DNS, etc).
	ErrCodeConnection
	// ErrCodeAuth indicates the server refused access (401/403).
	ErrCodeAuth
	// ErrCodeNotFound indicates the resource was not found (404).
	ErrCodeNotFound
	// ErrCodeRateLimit indicates rate limiting (429).
	ErrCodeRateLimit
	// ErrCodeValidation indicates a malformed request (other 4xx or client-side).
	ErrCodeValidation
	// ErrCodeServer indicates a server-side error (5xx).
	ErrCodeServer
	// ErrCodeStream indicates a failure while reading an open stream.
	ErrCodeStream
)

var codeNames = map[ErrorCode]string{
	ErrCodeTimeout:    "timeout",
	ErrCodeConnection: "connection",
	ErrCodeAuth:       "auth",
	ErrCodeNotFound:   "not_found",
	ErrCodeRateLimit:  "rate_limit",
	ErrCodeValidation: "validation",
	ErrCodeServer:     "server",
	ErrCodeStream:     "stream",
}

// String returns the error code name.
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "unknown"
}

// Error is a structured HTTP client error with classification.
type Error struct {
	// StatusCode is the HTTP status code (0 for connection-level errors).
	StatusCode int
	// Code classifies the error.
	Code ErrorCode
	// Message describes the error.
	Message string
	// Retryable indicates whether the operation can be retried.
	Retryable bool
	// Body is the raw response body (may be nil).
	Body []byte
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("httpclient: %s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(code ErrorCode, retryable bool, err error) *Error {
	return &Error{Code: code, Message: err.Error(), Retryable: retryable, Err: err}
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(err error) *Error { return wrap(ErrCodeTimeout, true, err) }

// NewConnectionError creates a connection error.
func NewConnectionError(err error) *Error { return wrap(ErrCodeConnection, true, err) }

// NewStreamError creates an error for a failed read on an open stream.
func NewStreamError(err error) *Error { return wrap(ErrCodeStream, false, err) }

// NewValidationError creates a client-side validation error.
func NewValidationError(msg string) *Error {
	return &Error{Code: ErrCodeValidation, Message: msg}
}

// ClassifyStatusCode converts an HTTP status code into a typed error.
// Returns nil for 2xx status codes.
func ClassifyStatusCode(statusCode int, body []byte) *Error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	e := &Error{
		StatusCode: statusCode,
		Message:    fmt.Sprintf("HTTP %d", statusCode),
		Body:       body,
	}
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		e.Code = ErrCodeAuth
	case statusCode == http.StatusNotFound:
		e.Code = ErrCodeNotFound
	case statusCode == http.StatusTooManyRequests:
		e.Code, e.Retryable = ErrCodeRateLimit, true
	case statusCode >= 400 && statusCode < 500:
		e.Code = ErrCodeValidation
	case statusCode >= 500:
		e.Code, e.Retryable = ErrCodeServer, true
	default:
		e.Code = ErrCodeServer
	}
	return e
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool { return hasCode(err, ErrCodeTimeout) }

// IsConnection checks if an error is a connection error.
func IsConnection(err error) bool { return hasCode(err, ErrCodeConnection) }

// IsAuth checks if an error is an access-denied error.
func IsAuth(err error) bool { return hasCode(err, ErrCodeAuth) }

// IsNotFound checks if an error is a not-found error.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsServerError checks if an error is a server error.
func IsServerError(err error) bool { return hasCode(err, ErrCodeServer) }

// IsStream checks if an error came from reading an open stream.
func IsStream(err error) bool { return hasCode(err, ErrCodeStream) }

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}
