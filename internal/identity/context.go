package identity

import "context"

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const userContextKey contextKey = "identity_user"

// ContextWithUser stores the authenticated user on the request context.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the authenticated user, or nil when the auth
// middleware has not run.
func UserFromContext(ctx context.Context) *User {
	user, ok := ctx.Value(userContextKey).(*User)
	if !ok {
		return nil
	}
	return user
}
