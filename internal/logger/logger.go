// Package logger configures log/slog for the widget server and CLI.
// Logs are JSON with source locations so they can be shipped to an aggregator as-is.
package logger

import (
	"io"
	"log/slog"
	"strings"
)

// Setup installs a JSON slog logger writing to w as the process default.
// The server logs to stdout; terminal commands pass stderr so answers stay alone on stdout.
func Setup(level slog.Level, w io.Writer) {
	slog.SetDefault(New(level, w))
}

// New builds a JSON logger without touching the global default.
func New(level slog.Level, w io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: true,
		Level:     level,
	})
	return slog.New(handler)
}

// ParseLevel converts a string log level to slog.Level.
// Valid values: "debug", "info", "warn", "error".
// Unrecognized values default to info level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
