// Package client is the caller-facing API for talking to the worker
// subprocess.
//
// A Client owns one worker: Connect spawns it and performs the initialize
// handshake, SendRequest routes calls through the resilience chain, and
// Disconnect retires the worker cleanly. The resilience chain is ordered
// Bulkhead → RateLimiter → CircuitBreaker → Retry → transport: admission
// control rejects overload before a call can touch the breaker, and the
// breaker sees a whole retry sequence as one outcome.
package client
