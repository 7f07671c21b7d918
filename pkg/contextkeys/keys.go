// Package contextkeys provides centralized context key definitions
//
// All context keys used across the application are defined here so that
// packages setting a value and packages reading it agree on one key.
//
// USAGE PATTERN:
//
//	import "github.com/platinummonkey/plughost/pkg/contextkeys"
//	ctx = context.WithValue(ctx, contextkeys.RequestIDKey, id)
package contextkeys

// Key is the type for context keys to prevent collisions
type Key string

const (
	// RequestIDKey contains request ID string (UUID)
	// Set by: httputil.RequestIDMiddleware
	// Used by: Logger, error responses, distributed tracing
	// Type: string
	RequestIDKey Key = "request_id"

	// LoggerKey contains *logrus.Logger
	// Set by: httputil.RequestIDMiddleware
	// Used by: observability.FromContext
	// Type: *logrus.Logger
	LoggerKey Key = "logger"

	// DatasetKey contains *dataset.Context
	// Set by: gql.Handler before executing a query
	// Used by: Resolvers in demo and generated plugins
	// Type: *dataset.Context
	DatasetKey Key = "dataset"
)
