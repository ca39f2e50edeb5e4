package remotemem

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/hupe1980/remotemem/addrrange"
)

// Logger wraps slog.Logger with remotemem-specific helpers so cache
// activity is logged with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler. If handler is nil, a
// text handler to stderr at Info level is used.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger that writes human-readable text to
// stderr. level sets the minimum log level.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewJSONLogger creates a Logger that writes JSON to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all output. This is the
// default for CachedHandler.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, nil))
}

// LogFill logs a line fill fetched from the transport.
func (l *Logger) LogFill(ctx context.Context, extent *addrrange.Range, err error) {
	if err != nil {
		l.ErrorContext(ctx, "line fill failed",
			"extent", extent.String(),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "line filled",
			"extent", extent.String(),
		)
	}
}

// LogDirect logs a read that bypassed the cache because it touched the
// never-cache set.
func (l *Logger) LogDirect(ctx context.Context, piece *addrrange.Range) {
	l.DebugContext(ctx, "uncacheable read",
		"range", piece.String(),
	)
}
