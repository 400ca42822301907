package gcp

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetEnvInt reads an integer environment variable, falling back on a missing or malformed value.
func GetEnvInt(key string, fallback int) int {
	v := GetEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("Environment variable is not an int, using default.", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return n
}

// GetEnvBool reads a boolean environment variable.
func GetEnvBool(key string, fallback bool) bool {
	v := GetEnv(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("Environment variable is not a bool, using default.", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return b
}

// GetEnvDuration reads a duration such as "90s" or "2m".
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	v := GetEnv(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("Environment variable is not a duration, using default.", "key", key, "value", v, "default", fallback.String())
		return fallback
	}
	return d
}
