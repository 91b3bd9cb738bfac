// Package requestctx carries per-request identity through context.
package requestctx

import "context"

// AnonymousHandle is the viewer used when a request carries no identity.
const AnonymousHandle = "Indogrammer"

// handleContextKey is the context key for the authenticated viewer handle.
type handleContextKey struct{}

// WithHandle stores an authenticated viewer handle in context.
func WithHandle(ctx context.Context, handle string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, handleContextKey{}, handle)
}

// HandleFromContext returns the authenticated viewer handle stored in context.
func HandleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(handleContextKey{}).(string)
	return value
}

// ViewerHandle resolves the acting handle: the authenticated identity first,
// then the caller-declared fallback, then the anonymous handle.
func ViewerHandle(ctx context.Context, declared string) string {
	if handle := HandleFromContext(ctx); handle != "" {
		return handle
	}
	if declared != "" {
		return declared
	}
	return AnonymousHandle
}
