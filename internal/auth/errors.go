package auth

import (
	"errors"
	"net/http"

	"github.com/prn-tf/skillswap/internal/domain"
)

// Authentication errors. All of them are of kind domain.ErrUnauthorized.
var (
	// ErrMissingToken indicates the request carried no bearer token.
	ErrMissingToken = domain.NewKindError(domain.ErrUnauthorized, "missing bearer token")

	// ErrInvalidToken indicates a malformed token or a bad signature.
	ErrInvalidToken = domain.NewKindError(domain.ErrUnauthorized, "invalid token")

	// ErrTokenExpired indicates the token is past its expiry.
	ErrTokenExpired = domain.NewKindError(domain.ErrUnauthorized, "token has expired")
)

// statusFor returns the HTTP status for an authentication or authorization error.
func statusFor(err error) int {
	if errors.Is(err, domain.ErrForbidden) {
		return http.StatusForbidden
	}
	return http.StatusUnauthorized
}
