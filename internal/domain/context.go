package domain

import "context"

type identityContextKey struct{}

// WithIdentity attaches the authenticated identity to a request context.
func WithIdentity(ctx context.Context, identity *IdentityContext) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext returns the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (*IdentityContext, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(*IdentityContext)
	return identity, ok
}
