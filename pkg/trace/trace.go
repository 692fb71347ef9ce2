package trace

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

// HeaderName is the HTTP header carrying the trace id.
const HeaderName = "X-Trace-ID"

// GenerateTraceID returns a new random trace id.
func GenerateTraceID() string {
	return uuid.NewString()
}

// FromContext returns the trace id stored in ctx, or "".
func FromContext(ctx context.Context) string {
	if traceID, ok := ctx.Value(ctxKey{}).(string); ok {
		return traceID
	}
	return ""
}

// WithContext stores traceID in ctx.
func WithContext(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, traceID)
}

// FromHeader returns the incoming header value, or a fresh id when empty.
func FromHeader(headerValue string) string {
	if headerValue != "" {
		return headerValue
	}
	return GenerateTraceID()
}
