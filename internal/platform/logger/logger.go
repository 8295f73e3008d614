package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New initializes a new slog.Logger.
// Log level can be debug, info, warn, error.
func New(level string) *slog.Logger {
	return NewWithWriter(level, os.Stderr)
}

// NewWithWriter is New with an explicit sink; tests pass io.Discard.
func NewWithWriter(level string, w io.Writer) *slog.Logger {
	var logLevel slog.Level

	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo // Default to info
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	// Text handler on stderr: this is a CLI, stdout is reserved for command
	// output. Swap for slog.NewJSONHandler when shipping logs somewhere.
	handler := slog.NewTextHandler(w, opts)

	return slog.New(handler)
}
