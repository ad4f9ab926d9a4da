package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/prn-tf/skillswap/internal/domain"
)

// UserLookup loads the current state of a user.
type UserLookup interface {
	GetProfile(ctx context.Context, userID string) (*domain.User, error)
}

const bearerPrefix = "Bearer "

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", true
	}
	return strings.TrimSpace(header[len(bearerPrefix):]), true
}

// Middleware authenticates requests that carry a bearer token.
// Requests without an Authorization header pass through anonymously;
// a header with a bad or expired token is rejected with 401.
func Middleware(tokens *TokenService, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, present := bearerToken(r)
			if !present {
				next.ServeHTTP(w, r)
				return
			}
			if raw == "" {
				writeAuthError(w, ErrInvalidToken)
				return
			}

			claims, err := tokens.Validate(raw)
			if err != nil {
				logger.Debug().Err(err).Str("path", r.URL.Path).Msg("token authentication failed")
				writeAuthError(w, err)
				return
			}

			authCtx := &AuthContext{
				UserID:   claims.UserID,
				Username: claims.Name,
			}
			if claims.ExpiresAt != nil {
				authCtx.ExpiresAt = claims.ExpiresAt.Time
			}
			next.ServeHTTP(w, r.WithContext(WithAuthContext(r.Context(), authCtx)))
		})
	}
}

// RequireUser rejects anonymous requests.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := RequireAuth(r.Context()); err != nil {
			writeAuthError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests whose user is not currently an administrator.
// The admin flag is re-read on every request so revocation takes effect
// before the token expires.
func RequireAdmin(users UserLookup, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx, err := RequireAuth(r.Context())
			if err != nil {
				writeAuthError(w, err)
				return
			}

			user, err := users.GetProfile(r.Context(), authCtx.UserID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					// Token for a user that no longer exists.
					writeAuthError(w, ErrInvalidToken)
					return
				}
				logger.Error().Err(err).Str("user_id", authCtx.UserID).Msg("failed to load user for admin check")
				writeJSONError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			if !user.IsAdmin {
				logger.Debug().Str("user_id", user.ID).Str("path", r.URL.Path).Msg("admin access denied")
				writeAuthError(w, domain.ErrAdminRequired)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeAuthError writes a JSON error response for an auth failure.
func writeAuthError(w http.ResponseWriter, err error) {
	msg := err.Error()
	var kindErr *domain.KindError
	if errors.As(err, &kindErr) {
		msg = kindErr.Error()
	}
	writeJSONError(w, statusFor(err), msg)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
