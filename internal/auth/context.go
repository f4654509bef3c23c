// ABOUTME: Authenticated identity propagation through request contexts
// ABOUTME: Provides WithIdentity/FromContext for handlers downstream of the middleware

package auth

import (
	"context"
)

// identityKey is the key type for storing the authenticated user ID in context.
type identityKey struct{}

// WithIdentity returns a new context carrying the authenticated user ID.
func WithIdentity(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, identityKey{}, userID)
}

// FromContext retrieves the authenticated user ID, returning "" if the
// request was not authenticated.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(identityKey{}).(string)
	return id
}

// MustFromContext retrieves the authenticated user ID, panicking if absent.
// Only for handlers that are always mounted behind the auth middleware.
func MustFromContext(ctx context.Context) string {
	id := FromContext(ctx)
	if id == "" {
		panic("auth: identity not found in context")
	}
	return id
}
