package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Worker availability errors (retryable, count toward the circuit breaker).
const (
	// ErrCodeConnectionFailed indicates the worker process could not be
	// reached or the pipe to it broke mid-call.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeTimeout indicates the worker did not respond in time.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Startup errors (fatal, never retried).
const (
	// ErrCodeRuntimeIncompatible indicates the worker runtime is missing or
	// its major version is below the supported minimum.
	ErrCodeRuntimeIncompatible ErrorCode = "RUNTIME_INCOMPATIBLE"
)

// Protocol errors (non-retryable, do not count toward the breaker).
const (
	// ErrCodeMalformedResponse indicates the worker emitted a line that is
	// not a valid protocol response. This is a protocol bug, not
	// unavailability.
	ErrCodeMalformedResponse ErrorCode = "MALFORMED_RESPONSE"
	// ErrCodeWorkerError indicates the worker returned a protocol-level
	// error object for the request.
	ErrCodeWorkerError ErrorCode = "WORKER_ERROR"
)

// Caller-side errors (non-retryable, do not count toward the breaker).
const (
	// ErrCodeUnauthorized indicates the worker rejected the call for
	// authentication reasons. Surfaced distinctly so callers can trigger
	// re-authentication.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeInvalidInput indicates the request parameters were rejected.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Admission errors (fail fast before the transport is touched).
const (
	// ErrCodeCircuitOpen indicates the circuit breaker rejected the call.
	ErrCodeCircuitOpen ErrorCode = "CIRCUIT_OPEN"
	// ErrCodeRateLimited indicates the token bucket rejected the call.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
	// ErrCodeBulkheadSaturated indicates too many concurrent in-flight calls.
	ErrCodeBulkheadSaturated ErrorCode = "BULKHEAD_SATURATED"
)

// Internal errors.
const (
	// ErrCodeInternal indicates a bug in the client itself.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeConnectionFailed: true,
	ErrCodeTimeout:          true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

// breakerCodes lists codes that signal worker unavailability. Authentication
// and input-validation failures indicate a caller or config problem and must
// never trip the breaker.
var breakerCodes = map[ErrorCode]bool{
	ErrCodeConnectionFailed: true,
	ErrCodeTimeout:          true,
}

// CountsTowardBreakerCode returns true if the error code should feed the
// circuit breaker's failure counters.
func CountsTowardBreakerCode(code ErrorCode) bool {
	return breakerCodes[code]
}

// Exit codes for errors that escape to the command level.
const (
	ExitRuntimeIncompatible = 3
	ExitConnectionFailed    = 4
	ExitUnauthorized        = 5
	ExitCircuitOpen         = 6
	ExitInternal            = 1
)

var exitCodes = map[ErrorCode]int{
	ErrCodeRuntimeIncompatible: ExitRuntimeIncompatible,
	ErrCodeConnectionFailed:    ExitConnectionFailed,
	ErrCodeTimeout:             ExitConnectionFailed,
	ErrCodeUnauthorized:        ExitUnauthorized,
	ErrCodeCircuitOpen:         ExitCircuitOpen,
}

// ExitCodeFor maps an error code to a process exit code.
func ExitCodeFor(code ErrorCode) int {
	if ec, ok := exitCodes[code]; ok {
		return ec
	}
	return ExitInternal
}
