package llm

import "context"

type ctxKeyAttempt struct{}
type ctxKeyRequestID struct{}

// WithAttempt records the zero-based attempt index on the context.
func WithAttempt(ctx context.Context, attempt int) context.Context {
	return context.WithValue(ctx, ctxKeyAttempt{}, attempt)
}

// AttemptFrom returns the attempt index stored in the context, or 0.
func AttemptFrom(ctx context.Context) int {
	if v := ctx.Value(ctxKeyAttempt{}); v != nil {
		if n, ok := v.(int); ok {
			return n
		}
	}
	return 0
}

// WithRequestID tags every call made under ctx with an evaluation id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID{}, id)
}

// RequestIDFrom returns the id stored in the context.
func RequestIDFrom(ctx context.Context) string {
	if v := ctx.Value(ctxKeyRequestID{}); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "unknown"
}
