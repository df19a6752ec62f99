// Package protocol defines the newline-delimited JSON-RPC 2.0 messages
// exchanged with the worker subprocess, and the version gate applied to the
// worker runtime before it is spawned.
//
// The wire format is one JSON object per line: a request carries a
// correlation id generated per call; a response must carry exactly one of
// result or error and echo the request's id. A request without an id is a
// notification and receives no response.
package protocol
