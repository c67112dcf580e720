package backend

import (
	"context"

	"github.com/restfulgit/restfulgit/pkg/proto"
)

// ContextKey is the context key for the backend.
var ContextKey = struct{ string }{"backend"}

// WithContext returns a new context with the backend attached.
func WithContext(ctx context.Context, be proto.Backend) context.Context {
	return context.WithValue(ctx, ContextKey, be)
}

// FromContext returns the backend from the context, or nil.
func FromContext(ctx context.Context) proto.Backend {
	if be, ok := ctx.Value(ContextKey).(proto.Backend); ok {
		return be
	}
	return nil
}
