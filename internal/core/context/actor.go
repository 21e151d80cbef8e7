package context

import "context"

type actorKey struct{}

// WithActor adds the acting user's identifier to the context. Identity is
// established upstream (gateway or trusted header); this core only carries
// it for attribution.
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actorID)
}

// GetActor returns the acting user's identifier or empty string.
func GetActor(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok {
		return v
	}
	return ""
}
