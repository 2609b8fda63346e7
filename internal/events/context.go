package events

import "context"

// contextKey is unexported so only this package can collide with it.
type contextKey int

const requestIDKey contextKey = 0

// WithRequestID stores the correlation id that events emitted under ctx
// should carry.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the correlation id stored by WithRequestID,
// or an empty string when none is set.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
