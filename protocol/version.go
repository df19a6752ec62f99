package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// RuntimeVersion is a parsed worker runtime version.
type RuntimeVersion struct {
	Major int
	Minor int
	Patch int
}

// String renders the version in the runtime's own "vX.Y.Z" form.
func (v RuntimeVersion) String() string {
	return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// ParseRuntimeVersion parses a version string of the form "v<major>.<minor>.<patch>".
// The leading "v" is optional and surrounding whitespace is ignored; the
// runtime prints a trailing newline after its version.
func ParseRuntimeVersion(s string) (RuntimeVersion, error) {
	raw := strings.TrimSpace(s)
	trimmed := strings.TrimPrefix(raw, "v")
	if trimmed == "" {
		return RuntimeVersion{}, fmt.Errorf("protocol: empty version string")
	}

	parts := strings.SplitN(trimmed, ".", 3)
	if len(parts) != 3 {
		return RuntimeVersion{}, fmt.Errorf("protocol: version %q is not of the form v<major>.<minor>.<patch>", raw)
	}

	var v RuntimeVersion
	var err error
	if v.Major, err = strconv.Atoi(parts[0]); err != nil {
		return RuntimeVersion{}, fmt.Errorf("protocol: invalid major version in %q: %w", raw, err)
	}
	if v.Minor, err = strconv.Atoi(parts[1]); err != nil {
		return RuntimeVersion{}, fmt.Errorf("protocol: invalid minor version in %q: %w", raw, err)
	}
	// Some runtimes append pre-release tags to the patch component.
	patch := parts[2]
	if idx := strings.IndexAny(patch, "-+"); idx >= 0 {
		patch = patch[:idx]
	}
	if v.Patch, err = strconv.Atoi(patch); err != nil {
		return RuntimeVersion{}, fmt.Errorf("protocol: invalid patch version in %q: %w", raw, err)
	}

	return v, nil
}

// CheckRuntime gates the worker runtime: a major version below minMajor is
// incompatible and the worker must not be spawned.
func CheckRuntime(v RuntimeVersion, minMajor int) error {
	if v.Major < minMajor {
		return fmt.Errorf("protocol: runtime %s is below the minimum supported major version %d", v, minMajor)
	}
	return nil
}
