package redisx

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/parmenashp/felpsbot-shared-libs/log"
)

// parseString reads a string from an environment variable or returns the
// default. The chosen source is logged for observability; values of keys
// that look sensitive are never logged.
func parseString(key, defaultValue string) string {
	return parseStringWithLogger(log.WithComponent("redisx.config"), key, defaultValue)
}

func parseStringWithLogger(logger zerolog.Logger, key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		lowerKey := strings.ToLower(key)
		switch {
		case strings.Contains(lowerKey, "token") || strings.Contains(lowerKey, "password"):
			logger.Debug().
				Str("key", key).
				Str("source", "environment").
				Bool("sensitive", true).
				Msg("using environment variable")
		case value == "":
			logger.Debug().
				Str("key", key).
				Str("default", defaultValue).
				Str("source", "default").
				Msg("using default value (environment variable is empty)")
			return defaultValue
		default:
			logger.Debug().
				Str("key", key).
				Str("value", value).
				Str("source", "environment").
				Msg("using environment variable")
		}
		return value
	}
	logger.Debug().
		Str("key", key).
		Str("default", defaultValue).
		Str("source", "default").
		Msg("using default value")
	return defaultValue
}

// parseInt reads an integer from an environment variable or returns the
// default. Parse errors fall back to the default.
func parseInt(key string, defaultValue int) int {
	logger := log.WithComponent("redisx.config")
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			logger.Debug().
				Str("key", key).
				Int("value", parsed).
				Str("source", "environment").
				Msg("using environment variable")
			return parsed
		}
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Int("default", defaultValue).
			Msg("invalid integer in environment variable, using default")
	}
	return defaultValue
}

// parseDuration reads a duration ("5s", "300ms") from an environment
// variable or returns the default. Parse errors fall back to the default.
func parseDuration(key string, defaultValue time.Duration) time.Duration {
	logger := log.WithComponent("redisx.config")
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			logger.Debug().
				Str("key", key).
				Dur("value", parsed).
				Str("source", "environment").
				Msg("using environment variable")
			return parsed
		}
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Dur("default", defaultValue).
			Msg("invalid duration in environment variable, using default")
	}
	return defaultValue
}

// parseBool reads a boolean from an environment variable or returns the
// default. Parse errors fall back to the default.
func parseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("redisx.config")
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Bool("default", defaultValue).
			Msg("invalid boolean in environment variable, using default")
	}
	return defaultValue
}
