package logger

import "context"

// Component-specific logger functions

// Schema returns a logger for schema generation operations
func Schema() Logger {
	return WithField("component", "schema")
}

// Migration returns a logger for migration operations
func Migration() Logger {
	return WithField("component", "migration")
}

// CLI returns a logger for CLI operations
func CLI() Logger {
	return WithField("component", "cli")
}

// DB returns a logger for database operations
func DB() Logger {
	return WithField("component", "db")
}

// HTTP returns a logger for the API server
func HTTP() Logger {
	return WithField("component", "http")
}

// Kitchen returns a logger for recipe, cart and subscription operations
func Kitchen() Logger {
	return WithField("component", "kitchen")
}

// Media returns a logger for image storage
func Media() Logger {
	return WithField("component", "media")
}

type ctxKey struct{}

// NewContext stores l in ctx, typically with request-scoped fields
func NewContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or fallback
func FromContext(ctx context.Context, fallback Logger) Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
			return l
		}
	}
	return fallback
}
