package logging

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
)

type ctxKey string

const (
	entryKey     ctxKey = "logger"
	requestIDKey ctxKey = "requestID"
)

// Log is the process-wide structured logger.
var Log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetOutput(os.Stdout)
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Init configures the shared logger. Unknown levels fall back to info.
func Init(level, env string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	if env == "development" {
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// WithEntry stores a request-scoped entry on the context.
func WithEntry(ctx context.Context, entry *logrus.Entry) context.Context {
	if ctx == nil || entry == nil {
		return ctx
	}
	return context.WithValue(ctx, entryKey, entry)
}

// FromContext returns the request-scoped entry or a bare entry on the shared logger.
func FromContext(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if entry, ok := ctx.Value(entryKey).(*logrus.Entry); ok && entry != nil {
			return entry
		}
	}
	return logrus.NewEntry(Log)
}

// WithRequestID stores a request identifier on the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext retrieves a previously stored request identifier.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// Stage returns an entry tagged with the pipeline stage and project.
func Stage(ctx context.Context, stage, projectID string) *logrus.Entry {
	return FromContext(ctx).WithFields(logrus.Fields{
		"stage":      stage,
		"project_id": projectID,
	})
}
