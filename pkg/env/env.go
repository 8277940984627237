package env

import (
	"os"
	"strings"
)

// Get returns the value of the given environment variable or a fallback.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// ServiceName reports the logical process name used in log lines.
func ServiceName(fallback string) string {
	return Get("ELITEJEWELS_SERVICE_NAME", fallback)
}
