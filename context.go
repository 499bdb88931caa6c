package sensorauth

import "context"

type requestIDContextKey struct{}

// WithRequestID attaches the X-Request-ID sent with every backend call made
// under ctx. Audit events emitted for those calls carry the same ID. Without
// it each request gets a random uuid.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}
