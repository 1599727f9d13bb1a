package config

import "os"

// GetEnv reads an environment variable, returning "" when unset. Callers are
// expected to warn-and-default on empty values.
func GetEnv(key string) string {
	return os.Getenv(key)
}

// GetEnvOrDefault reads an environment variable with a fallback.
func GetEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
