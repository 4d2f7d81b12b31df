// Package logger builds the process-wide structured logger.
package logger

import (
	"log/slog"
	"os"
)

// New returns a slog logger writing to stdout. FACTGATE_LOG_FORMAT=json
// switches to JSON output; FACTGATE_LOG_LEVEL=debug lowers the level.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("FACTGATE_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if os.Getenv("FACTGATE_LOG_FORMAT") == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
