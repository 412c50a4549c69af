package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Pipeline errors
const (
	// ErrCodeConfiguration indicates an invalid pipeline or sink configuration,
	// including an unsupported backend or a non-positive batch size.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	// ErrCodeTransform indicates a user transform failed inside a worker.
	ErrCodeTransform ErrorCode = "TRANSFORM_ERROR"
	// ErrCodeSink indicates a storage backend rejected a write, summary or close.
	ErrCodeSink ErrorCode = "SINK_ERROR"
	// ErrCodeCanceled indicates the run was stopped by its context.
	ErrCodeCanceled ErrorCode = "CANCELED"
)

// Connection/Availability errors
const (
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	ErrCodeTimeout          ErrorCode = "TIMEOUT"
)

// Resource and input errors
const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// ErrCodeInternal indicates an unexpected internal failure.
const ErrCodeInternal ErrorCode = "INTERNAL_ERROR"

// Sink and transform failures are not retryable.
var retryableCodes = map[ErrorCode]bool{
	ErrCodeConnectionFailed: true,
	ErrCodeTimeout:          true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
