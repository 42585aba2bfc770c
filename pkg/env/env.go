// Package env provides typed environment variable lookups with defaults.
package env

import (
	"os"
	"strconv"
)

// GetOrDefault returns the value of the environment variable key, or def
// when the variable is unset or empty.
func GetOrDefault(key, def string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return def
}

// GetIntOrDefault returns the integer value of the environment variable key,
// or def when the variable is unset, empty or not a valid integer.
func GetIntOrDefault(key string, def int) int {
	value := os.Getenv(key)
	if value == "" {
		return def
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}

	return parsed
}

// GetBoolOrDefault returns the boolean value of the environment variable key,
// or def when the variable is unset, empty or not a valid boolean.
func GetBoolOrDefault(key string, def bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return def
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return def
	}

	return parsed
}
