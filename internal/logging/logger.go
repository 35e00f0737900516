package logging

import (
	"context"
	"log/slog"
	"os"
)

// Logger is a thin wrapper around slog.Logger that adds field helpers
type Logger struct {
	*slog.Logger
}

// NewLogger creates a logger. Development uses a human readable text handler at
// debug level, everything else uses JSON at info level.
func NewLogger(isDevelopment bool) *Logger {
	var handler slog.Handler
	if isDevelopment {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}

	return &Logger{Logger: slog.New(handler)}
}

// NewFromSlog wraps an existing slog.Logger
func NewFromSlog(l *slog.Logger) *Logger {
	return &Logger{Logger: l}
}

// WithFields returns a child logger that always includes the given fields
func (l *Logger) WithFields(fields map[string]any) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{Logger: l.Logger.With(args...)}
}

// WithContext stores the logger in ctx so that GetLoggerFromContext can find it
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, LoggerContextKey, l)
}
