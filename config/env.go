package config

import (
	"os"
	"strconv"
	"time"
)

// loadEnv overrides config fields from THEMATIC_* environment variables.
func loadEnv(cfg *Config) {
	setInt(&cfg.Coding.MaxParallelCalls, "THEMATIC_MAX_PARALLEL_CALLS")
	setInt(&cfg.Coding.ChunkMaxTokens, "THEMATIC_CHUNK_MAX_TOKENS")
	setBool(&cfg.Coding.Simulate, "THEMATIC_SIMULATE")
	setBool(&cfg.Coding.Simulate, "DRY_RUN")

	setInt(&cfg.Retry.MaxAttempts, "THEMATIC_RETRY_MAX_ATTEMPTS")
	setDuration(&cfg.Retry.BaseDelay, "THEMATIC_RETRY_BASE_DELAY")
	setDuration(&cfg.Retry.PerAttemptTimeout, "THEMATIC_RETRY_TIMEOUT")

	setString(&cfg.Provider.Name, "THEMATIC_PROVIDER")
	setString(&cfg.Provider.Model, "THEMATIC_MODEL")
	setString(&cfg.Provider.BaseURL, "THEMATIC_BASE_URL")
	setInt(&cfg.Provider.CacheSize, "THEMATIC_COMPLETION_CACHE_SIZE")

	setString(&cfg.Identities.Path, "THEMATIC_IDENTITIES")

	setString(&cfg.Logging.Level, "THEMATIC_LOG_LEVEL")
	setString(&cfg.Logging.Format, "THEMATIC_LOG_FORMAT")
	setBool(&cfg.Logging.DebugContent, "THEMATIC_LOG_DEBUG_CONTENT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
