// Package logging provides the structured logger shared by geoshape handles.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Field names used across packages.
const (
	KeyPath      = "path"
	KeyShapeID   = "shape_id"
	KeyComponent = "component"
	KeyOp        = "op"
	KeyError     = "error"
)

// Logger wraps slog.Logger with geoshape specific fields.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler.
// A nil handler logs text at info level to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}

	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger that writes human-readable text to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewJSONLogger creates a Logger that writes JSON to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards everything.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000),
	}))
}

// OrNoop returns l, or a NoopLogger when l is nil.
func OrNoop(l *Logger) *Logger {
	if l == nil {
		return NoopLogger()
	}

	return l
}

// WithPath adds the file path field.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{Logger: l.With(KeyPath, path)}
}

// WithShapeID adds the shape id field.
func (l *Logger) WithShapeID(id int) *Logger {
	return &Logger{Logger: l.With(KeyShapeID, id)}
}

// WithComponent adds the component field, such as "shp" or "quadtree".
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{Logger: l.With(KeyComponent, name)}
}

// LogIOError logs a failed file operation at error level.
func (l *Logger) LogIOError(op string, err error) {
	l.Error("file operation failed", KeyOp, op, KeyError, err)
}
