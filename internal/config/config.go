package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	// DefaultReconnectDelayMS is the fixed delay between live channel reconnect attempts.
	DefaultReconnectDelayMS = 3000
	// DefaultMaxReconnects bounds live channel reconnect attempts per session.
	DefaultMaxReconnects = 5
	// DefaultPollIntervalMS is the happy-path polling interval.
	DefaultPollIntervalMS = 2000
	// DefaultMaxConsecutivePollErrors bounds consecutive polling failures before giving up.
	DefaultMaxConsecutivePollErrors = 5
	// DefaultProcessingStatus is the wire string the backend currently uses for
	// the transitional job status. Older deployments reported "in_progress";
	// the exact value is configuration, never hardcoded in parsing logic.
	DefaultProcessingStatus = "processing"
	// DefaultStreamInitVersion is the first backend version that serves the
	// per-job live update stream.
	DefaultStreamInitVersion = "1.3.0"
)

// Config holds all configuration for the recipeclip-tracker client.
// The tracker is stateless apart from the snapshot cache and session history
// kept under StateDir; everything else lives on the backend.
type Config struct {
	APIBaseURL               string
	FetchTimeoutSeconds      int
	StateDir                 string
	LiveChannelEnabled       bool
	ReconnectDelayMS         int
	MaxReconnects            int
	PollIntervalMS           int
	ErrorRetryDelayMS        int // 0 means same as PollIntervalMS
	MaxConsecutivePollErrors int // 0 means unlimited
	ProcessingStatus         string
	StreamInitVersion        string
	AccessToken              string // Optional: static bearer token
	TokenFile                string // Optional: path to a cached token file
}

// Load reads configuration with the following precedence order:
//  1. OS environment variables (highest priority)
//  2. .env file in current working directory (if present)
//  3. /etc/recipeclip/tracker.env (if present)
//  4. Default values (lowest priority)
//
// Required fields are validated.
func Load() (*Config, error) {
	// Load config files in reverse precedence order (lowest to highest priority)
	// so that higher priority sources can override lower priority ones.

	etcEnvFilePath := "/etc/recipeclip/tracker.env"
	if _, err := os.Stat(etcEnvFilePath); err == nil {
		if err := loadEnvFile(etcEnvFilePath); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	cwdEnvFilePath := ".env"
	if _, err := os.Stat(cwdEnvFilePath); err == nil {
		if err := loadEnvFile(cwdEnvFilePath); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	cfg := &Config{
		APIBaseURL:               os.Getenv("RECIPECLIP_API_URL"),
		FetchTimeoutSeconds:      getEnvInt("FETCH_TIMEOUT_SECONDS", 10),
		StateDir:                 getEnvString("STATE_DIR", "/var/lib/recipeclip-tracker"),
		LiveChannelEnabled:       getEnvBool("LIVE_CHANNEL_ENABLED", true),
		ReconnectDelayMS:         getEnvInt("RECONNECT_DELAY_MS", DefaultReconnectDelayMS),
		MaxReconnects:            getEnvInt("MAX_RECONNECTS", DefaultMaxReconnects),
		PollIntervalMS:           getEnvInt("POLL_INTERVAL_MS", DefaultPollIntervalMS),
		ErrorRetryDelayMS:        getEnvInt("ERROR_RETRY_DELAY_MS", 0),
		MaxConsecutivePollErrors: getEnvInt("MAX_CONSECUTIVE_POLL_ERRORS", DefaultMaxConsecutivePollErrors),
		ProcessingStatus:         getEnvString("JOB_PROCESSING_STATUS", DefaultProcessingStatus),
		StreamInitVersion:        getEnvString("STREAM_INIT_VERSION", DefaultStreamInitVersion),
		AccessToken:              os.Getenv("RECIPECLIP_ACCESS_TOKEN"), // Optional
		TokenFile:                os.Getenv("RECIPECLIP_TOKEN_FILE"),   // Optional
	}

	// Validate required fields
	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("RECIPECLIP_API_URL is required")
	}

	if cfg.FetchTimeoutSeconds < 1 {
		return nil, fmt.Errorf("FETCH_TIMEOUT_SECONDS must be at least 1, got %d", cfg.FetchTimeoutSeconds)
	}

	if cfg.ReconnectDelayMS < 1 {
		return nil, fmt.Errorf("RECONNECT_DELAY_MS must be at least 1, got %d", cfg.ReconnectDelayMS)
	}

	if cfg.MaxReconnects < 0 {
		return nil, fmt.Errorf("MAX_RECONNECTS must not be negative, got %d", cfg.MaxReconnects)
	}

	if cfg.PollIntervalMS < 1 {
		return nil, fmt.Errorf("POLL_INTERVAL_MS must be at least 1, got %d", cfg.PollIntervalMS)
	}

	if cfg.ErrorRetryDelayMS < 0 {
		return nil, fmt.Errorf("ERROR_RETRY_DELAY_MS must not be negative, got %d", cfg.ErrorRetryDelayMS)
	}

	if cfg.MaxConsecutivePollErrors < 0 {
		return nil, fmt.Errorf("MAX_CONSECUTIVE_POLL_ERRORS must not be negative, got %d", cfg.MaxConsecutivePollErrors)
	}

	if cfg.ProcessingStatus == "" {
		return nil, fmt.Errorf("JOB_PROCESSING_STATUS must not be empty")
	}

	return cfg, nil
}

// FetchTimeout returns the per-request timeout as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// ReconnectDelay returns the live channel reconnect delay as a duration.
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelayMS) * time.Millisecond
}

// PollInterval returns the happy-path polling interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// ErrorRetryDelay returns the delay after a failed poll. Falls back to the
// polling interval when no distinct value is configured.
func (c *Config) ErrorRetryDelay() time.Duration {
	if c.ErrorRetryDelayMS > 0 {
		return time.Duration(c.ErrorRetryDelayMS) * time.Millisecond
	}
	return c.PollInterval()
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as an integer or a default.
func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvBool returns the environment variable as a boolean or a default.
func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	switch valueStr {
	case "true", "TRUE", "True", "1", "yes", "YES", "Yes":
		return true
	case "false", "FALSE", "False", "0", "no", "NO", "No":
		return false
	default:
		return defaultValue
	}
}
