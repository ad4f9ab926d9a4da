package auth

import (
	"context"
	"time"
)

type contextKey string

// AuthContextKey is the context key for the authenticated caller.
const AuthContextKey contextKey = "auth"

// AuthContext describes the caller identified by a bearer token.
type AuthContext struct {
	// UserID is the id of the authenticated user.
	UserID string

	// Username is the name at the time the token was issued.
	Username string

	// ExpiresAt is the token expiry.
	ExpiresAt time.Time
}

// WithAuthContext returns a copy of ctx carrying authCtx.
func WithAuthContext(ctx context.Context, authCtx *AuthContext) context.Context {
	return context.WithValue(ctx, AuthContextKey, authCtx)
}

// GetAuthContext retrieves the AuthContext from a request context.
func GetAuthContext(ctx context.Context) *AuthContext {
	if authCtx, ok := ctx.Value(AuthContextKey).(*AuthContext); ok {
		return authCtx
	}
	return nil
}

// RequireAuth returns the auth context or ErrMissingToken.
func RequireAuth(ctx context.Context) (*AuthContext, error) {
	authCtx := GetAuthContext(ctx)
	if authCtx == nil {
		return nil, ErrMissingToken
	}
	return authCtx, nil
}
