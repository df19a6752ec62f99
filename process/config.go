package process

import (
	"fmt"
	"time"
)

// Config describes how to launch and retire the worker subprocess.
type Config struct {
	// Binary is the runtime executable that hosts the worker, e.g. "node".
	Binary string

	// Args are passed to the runtime, typically the worker entrypoint.
	Args []string

	// Dir is the working directory. Empty means the caller's directory.
	Dir string

	// MinRuntimeMajor is the minimum runtime major version. Zero disables
	// the pre-spawn version gate.
	MinRuntimeMajor int

	// VersionArgs invoke the runtime's version print. Defaults to
	// ["--version"].
	VersionArgs []string

	// VersionTimeout bounds the version probe. Defaults to 10s.
	VersionTimeout time.Duration

	// GracePeriod is how long Stop waits between SIGTERM and SIGKILL.
	// Defaults to 5s.
	GracePeriod time.Duration

	// KillWait bounds the final wait after SIGKILL. Defaults to 5s.
	KillWait time.Duration

	// ExtraEnv names additional environment variables to pass through on
	// top of the built-in allow-list.
	ExtraEnv []string
}

func (c *Config) applyDefaults() {
	if len(c.VersionArgs) == 0 {
		c.VersionArgs = []string{"--version"}
	}
	if c.VersionTimeout == 0 {
		c.VersionTimeout = 10 * time.Second
	}
	if c.GracePeriod == 0 {
		c.GracePeriod = 5 * time.Second
	}
	if c.KillWait == 0 {
		c.KillWait = 5 * time.Second
	}
}

// Validate checks the launch configuration.
func (c *Config) Validate() error {
	if c.Binary == "" {
		return fmt.Errorf("process: binary is required")
	}
	return nil
}
