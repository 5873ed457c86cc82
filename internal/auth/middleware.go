package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/kadirbarquet/usuarios-api/internal/models"
	pkghttp "github.com/kadirbarquet/usuarios-api/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// UserContextKey is the key for storing user claims in context
	UserContextKey contextKey = "user"
)

const (
	MsgTokenMissing = "Token no proporcionado. Usa: Authorization: Bearer <token>"
	MsgTokenExpired = "Token expirado"
	MsgTokenInvalid = "Token inválido"
)

// TokenVerifier is the part of TokenManager the middleware needs
type TokenVerifier interface {
	Verify(token string) (*models.TokenClaims, error)
}

// AuthMiddleware validates the bearer token and injects its claims into the
// request context. It never looks at the session cookie.
func AuthMiddleware(tv TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := pkghttp.BearerToken(r)
			if tokenString == "" {
				WriteTokenError(w, models.ErrTokenMissing)
				return
			}

			claims, err := tv.Verify(tokenString)
			if err != nil {
				WriteTokenError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WriteTokenError answers 401 with the message for a token failure. Anything
// other than a missing or expired token is reported as invalid.
func WriteTokenError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrTokenMissing):
		pkghttp.WriteError(w, http.StatusUnauthorized, "token_missing", MsgTokenMissing)
	case errors.Is(err, models.ErrTokenExpired):
		pkghttp.WriteError(w, http.StatusUnauthorized, "token_expired", MsgTokenExpired)
	default:
		pkghttp.WriteError(w, http.StatusUnauthorized, "token_invalid", MsgTokenInvalid)
	}
}

// GetUserFromContext extracts user claims from request context
func GetUserFromContext(r *http.Request) *models.TokenClaims {
	claims, ok := r.Context().Value(UserContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}
