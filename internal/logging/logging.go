// Package logging provides structured slog loggers for anyclick components.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps a config string to a slog level. Unknown strings
// resolve to Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a text logger writing to w at the given level.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Default returns a stderr logger at Info level.
func Default() *slog.Logger {
	return New(os.Stderr, slog.LevelInfo)
}

// Discard returns a logger that drops everything. Used in tests.
func Discard() *slog.Logger {
	return New(io.Discard, slog.LevelError+1)
}
