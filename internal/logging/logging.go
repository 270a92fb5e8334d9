package logging

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/rmitchellscott/marquee/internal/config"
)

var logger *slog.Logger

func init() {
	Initialize()
}

// Initialize configures the global slog logger. Called automatically on
// package load; call again after loading .env to pick up LOG_LEVEL/LOG_FORMAT.
func Initialize() {
	level := parseLevel(config.Get("LOG_LEVEL", "info"))

	var handler slog.Handler
	switch strings.ToLower(config.Get("LOG_FORMAT", "text")) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	default:
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.RFC3339,
			NoColor:    config.GetBool("LOG_NO_COLOR", false),
		})
	}

	logger = slog.New(handler)
	slog.SetDefault(logger)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debug logs at debug level with key-value pairs
func Debug(msg string, args ...interface{}) {
	logger.Debug(msg, args...)
}

// Info logs at info level with key-value pairs
func Info(msg string, args ...interface{}) {
	logger.Info(msg, args...)
}

// Warn logs at warn level with key-value pairs
func Warn(msg string, args ...interface{}) {
	logger.Warn(msg, args...)
}

// Error logs at error level with key-value pairs
func Error(msg string, args ...interface{}) {
	logger.Error(msg, args...)
}

// DebugWithComponent logs at debug level tagged with a component name
func DebugWithComponent(component, msg string, args ...interface{}) {
	logger.With("component", component).Debug(msg, args...)
}

// InfoWithComponent logs at info level tagged with a component name
func InfoWithComponent(component, msg string, args ...interface{}) {
	logger.With("component", component).Info(msg, args...)
}

// WarnWithComponent logs at warn level tagged with a component name
func WarnWithComponent(component, msg string, args ...interface{}) {
	logger.With("component", component).Warn(msg, args...)
}

// ErrorWithComponent logs at error level tagged with a component name
func ErrorWithComponent(component, msg string, args ...interface{}) {
	logger.With("component", component).Error(msg, args...)
}
