// Package logger provides the structured logger used across the project.
// It wraps logrus behind a small surface so call sites stay stable if the
// backend changes.
package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type contextKey string

const traceIDKey contextKey = "trace_id"

// LoggingConfig controls logger construction.
type LoggingConfig struct {
	Level   string // debug, info, warn, error
	Format  string // json or text
	Output  string // stdout, stderr
	Service string // attached to every entry as the "service" field
}

// Logger is a structured logger bound to a fixed set of fields.
type Logger struct {
	entry *logrus.Entry
}

// New builds a logger from config. Unknown levels fall back to info.
func New(cfg LoggingConfig) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var out io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	l.SetOutput(out)

	entry := logrus.NewEntry(l)
	if cfg.Service != "" {
		entry = entry.WithField("service", cfg.Service)
	}
	return &Logger{entry: entry}
}

// NewDefault returns an info-level text logger tagged with the service name.
func NewDefault(service string) *Logger {
	return New(LoggingConfig{Level: "info", Service: service})
}

// WithField returns a child logger carrying the extra field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

// WithFields returns a child logger carrying the extra fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

// WithError returns a child logger carrying the error field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{entry: l.entry.WithError(err)}
}

// WithContext attaches the trace id from ctx, if present.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if traceID, ok := ctx.Value(traceIDKey).(string); ok && traceID != "" {
		return l.WithField("trace_id", traceID)
	}
	return l
}

// WithTraceID stores a trace id in the context for later retrieval.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// GetTraceID returns the trace id stored in ctx, or "".
func GetTraceID(ctx context.Context) string {
	traceID, _ := ctx.Value(traceIDKey).(string)
	return traceID
}

func (l *Logger) Debug(args ...interface{}) { l.entry.Debug(args...) }
func (l *Logger) Info(args ...interface{})  { l.entry.Info(args...) }
func (l *Logger) Warn(args ...interface{})  { l.entry.Warn(args...) }
func (l *Logger) Error(args ...interface{}) { l.entry.Error(args...) }

func (l *Logger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
