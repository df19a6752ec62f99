package errors

import (
	"errors"
	"fmt"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// ExitCode is the recommended process exit code if this error escapes
	// to the command level.
	ExitCode int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// New creates a new AppError with automatic retryable and exit-code detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
		ExitCode:  ExitCodeFor(code),
	}
}

// AsAppError extracts an *AppError from an error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the error code of err, or ErrCodeInternal for foreign errors.
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// --- Common Error Constructors ---

// RuntimeIncompatible creates an AppError for a missing or too-old worker runtime.
func RuntimeIncompatible(reason string) *AppError {
	return New(ErrCodeRuntimeIncompatible,
		fmt.Sprintf("Worker runtime is not usable: %s", reason))
}

// ConnectionFailed creates an AppError for a failed connection to the worker.
func ConnectionFailed(reason string) *AppError {
	return New(ErrCodeConnectionFailed,
		fmt.Sprintf("Unable to communicate with the worker process: %s", reason))
}

// Timeout creates an AppError for a call that timed out.
func Timeout(operation string) *AppError {
	e := New(ErrCodeTimeout, "The worker took too long to respond.")
	return e.WithDetail("operation", operation)
}

// MalformedResponse creates an AppError for a response that violates the protocol.
func MalformedResponse(reason string) *AppError {
	return New(ErrCodeMalformedResponse,
		fmt.Sprintf("Worker sent an invalid response: %s", reason))
}

// WorkerError creates an AppError for a protocol-level error returned by the worker.
func WorkerError(code int, message string) *AppError {
	e := New(ErrCodeWorkerError, message)
	return e.WithDetail("worker_code", code)
}

// Unauthorized creates an AppError for an authentication failure.
func Unauthorized(reason string) *AppError {
	if reason == "" {
		reason = "Authentication with the worker failed."
	}
	return New(ErrCodeUnauthorized, reason)
}

// InvalidInput creates an AppError for rejected request parameters.
func InvalidInput(reason string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("Invalid request: %s", reason))
}

// CircuitOpen creates an AppError for a call rejected by an open breaker.
func CircuitOpen(name string) *AppError {
	e := New(ErrCodeCircuitOpen,
		"The worker is temporarily unavailable; calls are being rejected to let it recover.")
	return e.WithDetail("breaker", name)
}

// RateLimited creates an AppError for a call rejected by the rate limiter.
func RateLimited() *AppError {
	return New(ErrCodeRateLimited,
		"Too many requests to the worker. Please slow down and try again.")
}

// BulkheadSaturated creates an AppError for a call rejected by the bulkhead.
func BulkheadSaturated(name string) *AppError {
	e := New(ErrCodeBulkheadSaturated,
		"Too many concurrent calls to the worker.")
	return e.WithDetail("bulkhead", name)
}

// Internal creates an AppError for a client-side bug.
func Internal(reason string) *AppError {
	return New(ErrCodeInternal, reason)
}
