package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrCodeInvalidFormat indicates a field has an invalid format.
	ErrCodeInvalidFormat ErrorCode = "INVALID_FORMAT"
)

// Lifecycle errors
const (
	// ErrCodeClosed indicates the resource was used after Close.
	ErrCodeClosed ErrorCode = "CLOSED"
)
