// Package config provides configuration helpers for glyphcam commands.
//
// Flags take precedence; these helpers supply the env-var fallbacks so a
// session can be configured without repeating flags:
//
//	GLYPHCAM_DEVICE=/dev/video2 GLYPHCAM_BACKEND=v4l2 glyphcam
package config

import (
	"os"
	"strconv"
	"time"
)

// Env returns the value of the environment variable key, or def if unset.
func Env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// EnvInt returns the integer value of the environment variable key,
// or def if unset or unparseable.
func EnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// EnvFloat returns the float value of the environment variable key,
// or def if unset or unparseable.
func EnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// EnvDuration returns the duration value of the environment variable key,
// or def if unset or unparseable. Accepts Go duration syntax ("50ms").
func EnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// LogLevel returns the log level from GLYPHCAM_LOG_LEVEL or "info".
func LogLevel() string {
	return Env("GLYPHCAM_LOG_LEVEL", "info")
}
