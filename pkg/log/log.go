// Copyright(c) 2024-2026 groundsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package log provides the structured logger used throughout the
// simulator: a thin wrapper around log/slog that writes JSON lines
// through a rotating file, with a couple of simulator-specific
// convenience methods layered on top.
package log

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps slog.Logger with the rotating file handle and the time
// the process started, so callers can report uptime without threading
// a start time through every component.
type Logger struct {
	*slog.Logger
	LogFile string
	Start   time.Time
}

// New creates a Logger writing JSON lines to dir/groundsim.log (rotated
// by lumberjack), at the given level ("debug", "info", "warn", "error").
// An empty dir defaults to "groundsim-logs" in the current directory.
func New(level string, dir string) *Logger {
	if dir == "" {
		dir = "groundsim-logs"
	}

	w := &lumberjack.Logger{
		Filename: filepath.Join(dir, "groundsim.log"),
		MaxSize:  64, // MB
		MaxAge:   14,
		Compress: true,
	}

	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "":
		// keep default
	default:
		fmt.Fprintf(os.Stderr, "%s: invalid log level, using info\n", level)
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	return &Logger{
		Logger:  slog.New(h),
		LogFile: w.Filename,
		Start:   time.Now(),
	}
}

// Discard returns a Logger that drops everything; useful in tests that
// don't want to create log directories.
func Discard() *Logger {
	h := slog.NewJSONHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return &Logger{Logger: slog.New(h), Start: time.Now()}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// Errorf logs a formatted message at error level; it exists so call
// sites that historically printf-logged read naturally after the
// switch to slog.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// Debugf is the Debug-level counterpart to Errorf.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.Debug(fmt.Sprintf(format, args...))
}

// Uptime returns how long this Logger (and implicitly, the run) has
// been alive.
func (l *Logger) Uptime() time.Duration {
	return time.Since(l.Start)
}
