package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const logLevelEnv = "ANNOVIS_LOG_LEVEL"

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

// NewLogger builds the application logger. The terminal belongs to the
// UI, so logs only go to a file; with no file every record is dropped.
// The caller closes the returned closer.
func NewLogger(level, file string) (*slog.Logger, io.Closer, error) {
	if env := os.Getenv(logLevelEnv); env != "" {
		level = env
	}
	if file == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), io.NopCloser(nil), nil
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	h := slog.NewTextHandler(f, &slog.HandlerOptions{Level: parseLevel(level)})
	return slog.New(h), f, nil
}
