// Package logger provides structured, context-aware logging on top of log/slog.
package logger

import (
	"context"
	"io"
	"log/slog"
)

// Level controls the minimum severity that is emitted.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel converts a config string ("debug", "info", ...) to a Level.
// Unknown strings fall back to LevelInfo.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// LoggerInterface is the logging contract used throughout the application.
// All methods take a context first so trace/span correlation can be added
// without changing call sites.
type LoggerInterface interface {
	Debug(ctx context.Context, msg string, kv ...any)
	Info(ctx context.Context, msg string, kv ...any)
	Warn(ctx context.Context, msg string, kv ...any)
	Error(ctx context.Context, msg string, kv ...any)
	With(kv ...any) LoggerInterface
}

// Logger implements LoggerInterface using slog's JSON handler.
type Logger struct {
	l *slog.Logger
}

// Ensure Logger implements LoggerInterface.
var _ LoggerInterface = (*Logger)(nil)

// New creates a Logger writing JSON records to w.
// service is attached to every record; attrs are optional extra attributes.
func New(w io.Writer, level Level, service string, attrs []slog.Attr) *Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level.slogLevel()})

	l := slog.New(h.WithAttrs(attrs))
	if service != "" {
		l = l.With("service", service)
	}

	return &Logger{l: l}
}

func (g *Logger) Debug(ctx context.Context, msg string, kv ...any) {
	g.l.DebugContext(ctx, msg, kv...)
}

func (g *Logger) Info(ctx context.Context, msg string, kv ...any) {
	g.l.InfoContext(ctx, msg, kv...)
}

func (g *Logger) Warn(ctx context.Context, msg string, kv ...any) {
	g.l.WarnContext(ctx, msg, kv...)
}

func (g *Logger) Error(ctx context.Context, msg string, kv ...any) {
	g.l.ErrorContext(ctx, msg, kv...)
}

// With returns a Logger with the given key/value pairs attached to every record.
func (g *Logger) With(kv ...any) LoggerInterface {
	return &Logger{l: g.l.With(kv...)}
}

// Nop returns a logger that discards everything. Useful in tests.
func Nop() *Logger {
	return New(io.Discard, LevelError, "", nil)
}
