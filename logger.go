package activo

import (
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with activo-specific helpers so log lines
// carry consistent field names across the store.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// LogRestore logs the outcome of rebuilding the uid→slot mapping from
// a record store at open time.
func (l *Logger) LogRestore(live, free int, version string) {
	l.Info("restored activity store",
		"documents", live,
		"free_slots", free,
		"version", version,
	)
}

// LogFlush logs a completed or failed flush cycle.
func (l *Logger) LogFlush(updates, deletes int, version string, duration time.Duration, err error) {
	if err != nil {
		l.Error("flush failed",
			"updates", updates,
			"deletes", deletes,
			"version", version,
			"duration", duration,
			"error", err,
		)
	} else {
		l.Debug("flush completed",
			"updates", updates,
			"deletes", deletes,
			"version", version,
			"duration", duration,
		)
	}
}

// LogHousekeeping logs a flush triggered by the housekeeping loop.
func (l *Logger) LogHousekeeping() {
	l.Info("flush triggered by housekeeping")
}

// LogCounts logs the live/free slot balance after reclamation.
func (l *Logger) LogCounts(live, free int) {
	l.Info("activity store counts",
		"documents", live,
		"free_slots", free,
	)
}
