// Package version provides build version information embedding.
//
// Version, git commit, and build time are set at compile time
// via -ldflags:
//
//	go build -ldflags "-X github.com/linebridge/workerlink/version.Version=1.0.0"
//
// The short version string is reported to the worker in the initialize
// handshake's clientInfo.
package version
