package application

import (
	"io"
	"log/slog"
	"os"
	"sort"
)

// StructuredLogger provides structured logging with context.
// Entries are JSON objects written to stderr; stdout belongs to the protocol.
type StructuredLogger struct {
	logger *slog.Logger
}

// NewStructuredLogger creates a logger writing JSON at info level to stderr.
func NewStructuredLogger() *StructuredLogger {
	return NewStructuredLoggerWithWriter(os.Stderr, slog.LevelInfo)
}

// NewStructuredLoggerWithWriter creates a logger writing JSON entries at or
// above level to w.
func NewStructuredLoggerWithWriter(w io.Writer, level slog.Level) *StructuredLogger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return &StructuredLogger{logger: slog.New(handler)}
}

// Slog exposes the underlying logger for components that take *slog.Logger.
func (l *StructuredLogger) Slog() *slog.Logger {
	return l.logger
}

// LogDebug logs a debug message with context.
func (l *StructuredLogger) LogDebug(message string, context map[string]interface{}) {
	l.logger.Debug(message, attrs(context)...)
}

// LogInfo logs an informational message with context.
func (l *StructuredLogger) LogInfo(message string, context map[string]interface{}) {
	l.logger.Info(message, attrs(context)...)
}

// LogWarn logs a warning with context.
func (l *StructuredLogger) LogWarn(message string, context map[string]interface{}) {
	l.logger.Warn(message, attrs(context)...)
}

// LogError logs an error message with context.
func (l *StructuredLogger) LogError(message string, err error, context map[string]interface{}) {
	args := attrs(context)
	if err != nil {
		args = append(args, slog.String("error", err.Error()))
	}
	l.logger.Error(message, args...)
}

// attrs flattens a context map into slog attributes in key order so entries
// are stable across runs.
func attrs(context map[string]interface{}) []any {
	if len(context) == 0 {
		return nil
	}

	keys := make([]string, 0, len(context))
	for k := range context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, slog.Any(k, context[k]))
	}
	return out
}
