package utils

import (
	"context"
	"time"
)

const (
	// DefaultTimeout bounds store queries made on behalf of a request.
	DefaultTimeout = 10 * time.Second

	// ShortTimeout is for fire-and-forget writes such as query logging.
	ShortTimeout = 2 * time.Second
)

// WithTimeout creates a context with default timeout
func WithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultTimeout)
}

// WithShortTimeout creates a context with short timeout for quick operations
func WithShortTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, ShortTimeout)
}

type requestIDKey struct{}

// WithRequestID stores the HTTP request ID so that code below the handler can tag
// what it persists.
func WithRequestID(parent context.Context, id string) context.Context {
	return context.WithValue(parent, requestIDKey{}, id)
}

// RequestIDFrom returns the request ID stored by WithRequestID, if any.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
