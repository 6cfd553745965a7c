// Package logging provides the daemon-wide operational logger (structured,
// slog-based) and a per-invocation request log, split between
// infrastructure logs and request logs.
package logging

import (
	"log/slog"
	"os"
	"sync/atomic"
)

// Logger is the operational logger type threaded through every package
// that needs to log; it is exactly *slog.Logger so callers can use the
// full slog API (With, WithGroup, Error, Info, ...) without a shim.
type Logger = slog.Logger

var (
	opLogger atomic.Pointer[Logger]
	logLevel = new(slog.LevelVar)
)

func init() {
	logLevel.Set(slog.LevelInfo)
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	opLogger.Store(slog.New(handler))
}

// Op returns the operational logger for daemon/infrastructure logs. This
// is separate from the per-invocation RequestLog record (request.go).
func Op() *Logger {
	return opLogger.Load()
}

// SetOutput redirects the operational logger at a different append-mode
// file, matching the "log files opened in append mode" resource model in
// spec §5.
func SetOutput(f *os.File) {
	handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: logLevel})
	opLogger.Store(slog.New(handler))
}

// SetLevel changes the log level for the operational logger.
func SetLevel(level slog.Level) {
	logLevel.Set(level)
}

// SetLevelFromString sets the log level from a string. Unrecognized values
// are ignored, leaving the current level unchanged.
func SetLevelFromString(level string) {
	switch level {
	case "debug", "DEBUG":
		logLevel.Set(slog.LevelDebug)
	case "info", "INFO":
		logLevel.Set(slog.LevelInfo)
	case "warn", "WARN", "warning", "WARNING":
		logLevel.Set(slog.LevelWarn)
	case "error", "ERROR":
		logLevel.Set(slog.LevelError)
	}
}
