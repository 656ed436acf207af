package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable timeout values.
// These values can be customized via environment variables.
type Timeouts struct {
	Tool          time.Duration // Hard wall-clock bound per external tool invocation
	Ready         time.Duration // Total readiness-probe budget per target
	ProbeInterval time.Duration // Delay between readiness probe attempts
	SettleDelay   time.Duration // Post-ready slack for asynchronous boot work
	ProbeDial     time.Duration // Per-attempt connect timeout

	RetryMaxAttempts  int           // Maximum number of retry attempts for storage APIs
	RetryInitialDelay time.Duration // Initial delay between retries
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - STACKCTL_TIMEOUT_TOOL (default: 30m)
//   - STACKCTL_TIMEOUT_READY (default: 10m)
//   - STACKCTL_PROBE_INTERVAL (default: 10s)
//   - STACKCTL_SETTLE_DELAY (default: 30s)
//   - STACKCTL_PROBE_DIAL_TIMEOUT (default: 5s)
//   - STACKCTL_RETRY_MAX_ATTEMPTS (default: 5)
//   - STACKCTL_RETRY_INITIAL_DELAY (default: 1s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		Tool:              parseDuration("STACKCTL_TIMEOUT_TOOL", 30*time.Minute),
		Ready:             parseDuration("STACKCTL_TIMEOUT_READY", 10*time.Minute),
		ProbeInterval:     parseDuration("STACKCTL_PROBE_INTERVAL", 10*time.Second),
		SettleDelay:       parseDuration("STACKCTL_SETTLE_DELAY", 30*time.Second),
		ProbeDial:         parseDuration("STACKCTL_PROBE_DIAL_TIMEOUT", 5*time.Second),
		RetryMaxAttempts:  parseInt("STACKCTL_RETRY_MAX_ATTEMPTS", 5),
		RetryInitialDelay: parseDuration("STACKCTL_RETRY_INITIAL_DELAY", 1*time.Second),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}
