// Package resilience provides the failure-handling primitives wrapped around
// every worker call.
//
// This package includes:
//   - CircuitBreaker: stops calling a failing worker so it can recover
//   - Retry: re-invokes transient failures with exponential backoff and jitter
//   - RateLimiter: token-bucket admission control on the call rate
//   - Bulkhead: caps concurrent in-flight calls
//
// The client composes them in a fixed order (see the client package):
// Bulkhead → RateLimiter → CircuitBreaker → Retry → transport. The breaker
// and the retry layer share one failure classification (the errors package
// predicates) so a failure that must not be retried also never trips the
// breaker.
package resilience
