package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Get returns the environment variable `key`, or the trimmed contents of the
// file named by `key + "_FILE"` when only that is set (docker secrets style).
// Falls back to def when neither is present.
func Get(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if path := os.Getenv(key + "_FILE"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	return def
}

// GetInt parses the environment variable `key` as an integer, returning def
// when unset or unparsable.
func GetInt(key string, def int) int {
	if val := Get(key, ""); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

// GetBool parses the environment variable `key` as a boolean. Accepted true
// values: 1, t, true, y, yes. Accepted false values: 0, f, false, n, no.
func GetBool(key string, def bool) bool {
	switch strings.ToLower(Get(key, "")) {
	case "1", "t", "true", "y", "yes":
		return true
	case "0", "f", "false", "n", "no":
		return false
	}
	return def
}

// GetDuration parses the environment variable `key` with time.ParseDuration,
// additionally accepting day suffixes like "7d". Returns def on failure.
func GetDuration(key string, def time.Duration) time.Duration {
	val := strings.ToLower(strings.TrimSpace(Get(key, "")))
	if val == "" {
		return def
	}
	if days, ok := strings.CutSuffix(val, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil {
			return time.Duration(n) * 24 * time.Hour
		}
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	return def
}
