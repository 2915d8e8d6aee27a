// Package env reads the few settings the process needs before config.Load
// runs, such as the log format of the bootstrap logger.
package env

import (
	"os"
	"strconv"
	"strings"
)

// Prefix namespaces every setting of the service.
const Prefix = "RENTQUOTE_"

// Get returns RENTQUOTE_<key>, then the bare <key>, then fallback.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(Prefix + key)); val != "" {
		return val
	}
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// Bool is Get for flags. Malformed values fall back.
func Bool(key string, fallback bool) bool {
	raw := Get(key, "")
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
