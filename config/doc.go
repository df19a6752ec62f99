// Package config loads and validates client configuration.
//
// Configuration is layered: a YAML file provides the base, a .env file and
// process environment variables override it. Every section carries its own
// ApplyDefaults and Validate so a zero-value Config is usable out of the box.
package config
