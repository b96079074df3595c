package cmd

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Environment variables providing flag defaults.
const (
	envAPIURL      = "CFS_OBSERVER_API_URL"
	envSecretsFile = "CFS_OBSERVER_SECRETS_FILE"
	envSOCKS5      = "SOCKS5"
	envLogLevel    = "CFS_OBSERVER_LOG_LEVEL"
	envLogFormat   = "CFS_OBSERVER_LOG_FORMAT"
	envQPS         = "CFS_OBSERVER_QPS"
	envBurst       = "CFS_OBSERVER_BURST"
	envTimeout     = "CFS_OBSERVER_TIMEOUT"
)

// envOrDefault returns the value of the environment variable or defaultValue if unset.
func envOrDefault(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

// parseDurationEnv parses a duration from an environment variable value.
// Returns the parsed duration and true if successful, or zero and false if parsing fails.
// Logs a warning if the value is present but invalid.
func parseDurationEnv(value, envName string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: invalid duration for %s=%q: %v", envName, value, err)
		return 0, false
	}
	return d, true
}

// parseIntEnv parses an integer from an environment variable value.
// Returns the parsed int and true if successful, or zero and false if parsing fails.
// Logs a warning if the value is present but invalid.
func parseIntEnv(value, envName string) (int, bool) {
	if value == "" {
		return 0, false
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid integer for %s=%q: %v", envName, value, err)
		return 0, false
	}
	return n, true
}

// parseFloat32Env parses a float32 from an environment variable value.
// Returns the parsed float and true if successful, or zero and false if parsing fails.
// Logs a warning if the value is present but invalid.
func parseFloat32Env(value, envName string) (float32, bool) {
	if value == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(value, 32)
	if err != nil {
		log.Printf("Warning: invalid float for %s=%q: %v", envName, value, err)
		return 0, false
	}
	return float32(f), true
}

func durationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	if d, ok := parseDurationEnv(os.Getenv(key), key); ok {
		return d
	}
	return defaultValue
}

func intEnvOrDefault(key string, defaultValue int) int {
	if n, ok := parseIntEnv(os.Getenv(key), key); ok {
		return n
	}
	return defaultValue
}

func float32EnvOrDefault(key string, defaultValue float32) float32 {
	if f, ok := parseFloat32Env(os.Getenv(key), key); ok {
		return f
	}
	return defaultValue
}
