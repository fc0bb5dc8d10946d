package graphkb

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with knowledge base specific helpers.
// This provides structured logging with consistent field names.
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
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithID adds an id field to the logger.
func (l *Logger) WithID(id uint64) *Logger {
	return &Logger{
		Logger: l.Logger.With("id", id),
	}
}

// WithK adds a k (neighbor count) field to the logger.
func (l *Logger) WithK(k int) *Logger {
	return &Logger{
		Logger: l.Logger.With("k", k),
	}
}

// WithPath adds a container path field to the logger.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("path", path),
	}
}

// LogIngest logs an ingest run.
func (l *Logger) LogIngest(ctx context.Context, path string, items, dimension int, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "ingest failed",
			"error", err,
			"duration", d,
		)
		return
	}
	l.InfoContext(ctx, "ingest completed",
		"path", path,
		"items", items,
		"dimension", dimension,
		"duration", d,
	)
}

// LogOpen logs opening a container.
func (l *Logger) LogOpen(ctx context.Context, path string, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "open failed",
			"path", path,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "knowledge base opened",
		"path", path,
		"duration", d,
	)
}

// LogQuery logs a similarity query.
func (l *Logger) LogQuery(ctx context.Context, id uint64, k, results int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "similarity query failed",
			"id", id,
			"k", k,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "similarity query completed",
		"id", id,
		"k", k,
		"results", results,
	)
}

// LogClose logs the teardown of a knowledge base.
func (l *Logger) LogClose(ctx context.Context, path string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "close failed",
			"path", path,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "knowledge base closed",
		"path", path,
	)
}
