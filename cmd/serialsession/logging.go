/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// setupLogging builds the process logger. With a log file, JSON records go
// to a size-rotated file and the returned closer must be closed on exit.
func setupLogging(c logConfig) (*slog.Logger, io.Closer, error) {
	opts := &slog.HandlerOptions{Level: c.Level}

	if c.File != "" {
		if err := os.MkdirAll(filepath.Dir(c.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		writer := &lumberjack.Logger{
			Filename:   c.File,
			MaxSize:    c.MaxSizeMB,
			MaxBackups: c.MaxBackups,
			Compress:   c.Compress,
		}
		return slog.New(slog.NewJSONHandler(writer, opts)), writer, nil
	}

	if c.JSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil, nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil, nil
}

// screenLogger is the logger for full-screen views, where stderr output
// would tear the display. Without a log file it discards.
func screenLogger() *slog.Logger {
	if cfg.Log.File == "" {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
