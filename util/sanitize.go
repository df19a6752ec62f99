package util

import (
	"strings"
	"unicode"
)

// sensitiveKeys marks parameter names whose values must never reach a log
// line. Matching is case-insensitive on the lowercased key.
var sensitiveKeys = map[string]bool{
	"token":         true,
	"password":      true,
	"secret":        true,
	"authorization": true,
	"api_key":       true,
	"apikey":        true,
	"cookie":        true,
	"session":       true,
	"credential":    true,
}

// SanitizeLine trims whitespace and strips control characters so worker
// stderr output can be embedded in a structured log line.
func SanitizeLine(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// MaskSecret hides all but the first visiblePrefix characters of a value.
// Values shorter than the prefix are fully masked.
func MaskSecret(s string, visiblePrefix int) string {
	if len(s) <= visiblePrefix {
		return "***"
	}
	return s[:visiblePrefix] + "***"
}

// RedactParams returns a copy of params safe for logging: values under
// credential-looking keys are masked and nested maps are redacted
// recursively. The input map is never modified.
func RedactParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}

	out := make(map[string]any, len(params))
	for key, value := range params {
		if sensitiveKeys[strings.ToLower(key)] {
			out[key] = "***"
			continue
		}
		if nested, ok := value.(map[string]any); ok {
			out[key] = RedactParams(nested)
			continue
		}
		out[key] = value
	}
	return out
}
