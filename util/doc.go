// Package util holds small helpers shared across packages, mainly for
// keeping worker output and request parameters safe to log.
package util
