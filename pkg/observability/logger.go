package observability

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/platinummonkey/plughost/pkg/contextkeys"
	"github.com/sirupsen/logrus"
)

// Log formats accepted by NewLogger
const (
	FormatJSON = "json"
	FormatText = "text"
)

// NewLogger creates a logrus logger writing to out at the given level.
// Unknown levels fall back to info; any format other than "text" is JSON.
func NewLogger(level, format string, out io.Writer) *logrus.Logger {
	if out == nil {
		out = os.Stdout
	}

	log := logrus.New()
	log.SetOutput(out)

	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	if strings.EqualFold(format, FormatText) {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	return log
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextkeys.RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(contextkeys.RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithLogger adds a logger to the context
func WithLogger(ctx context.Context, log *logrus.Logger) context.Context {
	return context.WithValue(ctx, contextkeys.LoggerKey, log)
}

// GetLogger retrieves the logger from context
func GetLogger(ctx context.Context) *logrus.Logger {
	if log, ok := ctx.Value(contextkeys.LoggerKey).(*logrus.Logger); ok {
		return log
	}
	return nil
}

// FromContext returns an entry carrying the context's request ID and trace
// identifiers. It uses the standard logger when ctx has none.
func FromContext(ctx context.Context) *logrus.Entry {
	log := GetLogger(ctx)
	if log == nil {
		log = logrus.StandardLogger()
	}

	entry := logrus.NewEntry(log)
	if requestID := GetRequestID(ctx); requestID != "" {
		entry = entry.WithField("request_id", requestID)
	}
	return WithTraceContext(ctx, entry)
}
