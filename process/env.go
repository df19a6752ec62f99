package process

import (
	"os"
	"strings"
)

// defaultEnvAllowlist names the only variables the worker inherits:
// execution path, locale, and the identity/credential caches it needs to
// reach the ticket backend. Nothing else passes through, so unrelated
// secrets in the caller's environment never leak into a third-party process.
var defaultEnvAllowlist = []string{
	"PATH",
	"HOME",
	"USER",
	"LOGNAME",
	"TMPDIR",
	"LANG",
	"LC_ALL",
	"LC_CTYPE",
	"XDG_CACHE_HOME",
	"XDG_CONFIG_HOME",
	"SSL_CERT_FILE",
	"SSL_CERT_DIR",
}

// buildEnv constructs the worker environment from the allow-list plus any
// configured extra names. Unset variables are omitted.
func buildEnv(extra []string) []string {
	names := make([]string, 0, len(defaultEnvAllowlist)+len(extra))
	names = append(names, defaultEnvAllowlist...)
	names = append(names, extra...)

	seen := make(map[string]bool, len(names))
	env := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if value, ok := os.LookupEnv(name); ok {
			env = append(env, name+"="+value)
		}
	}
	return env
}
