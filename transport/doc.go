// Package transport implements the line-oriented request/response exchange
// with the worker subprocess.
//
// A Conn owns the worker's stdin writer and stdout reader. Calls are
// strictly serialized: the pipe carries one request at a time and issuing
// two overlapping calls on it is undefined behavior, so admission control
// (bulkhead, rate limiter) gates callers before they reach the Conn's
// internal lock. Each call writes one JSON line and waits for exactly one
// response line within a bounded timeout.
package transport
