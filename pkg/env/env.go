// Package env reads process environment variables with fallbacks, for the
// few runtime knobs that sit outside the typed config.
package env

import (
	"os"
	"strconv"
)

// Get returns the named variable, or fallback when it is unset or empty.
func Get(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// Bool parses the named variable as a boolean. Unset, empty, or unparseable
// values yield the fallback.
func Bool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
