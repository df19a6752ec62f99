package errors

import (
	"context"
	"errors"
)

// IsRetryable reports whether a failed call may be re-attempted. Connection
// failures and timeouts are transient; everything else propagates on first
// occurrence. Context cancellation is never retryable — the caller gave up.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if appErr, ok := AsAppError(err); ok {
		return IsRetryableCode(appErr.Code)
	}
	return false
}

// CountsTowardBreaker reports whether a failure should feed the circuit
// breaker. The retry layer and the breaker consult the same classification so
// the two stay consistent: only failures that signal worker unavailability
// (connection loss, timeouts) accumulate toward opening the circuit.
func CountsTowardBreaker(err error) bool {
	if err == nil {
		return false
	}
	if appErr, ok := AsAppError(err); ok {
		return CountsTowardBreakerCode(appErr.Code)
	}
	return false
}
