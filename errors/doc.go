// Package errors provides unified error handling for the worker client.
// It implements structured error types with error codes, CLI exit-code
// mapping, and the failure classification shared by the retry and
// circuit-breaker layers.
package errors
