package auth

import (
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/kadirbarquet/usuarios-api/internal/config"
)

// SessionOptions builds the cookie options for the session cookie. In
// production the frontend sits on another site, so the cookie is
// Secure + SameSite=None; over plain http in development it is Lax.
func SessionOptions(cfg config.SessionConfig) *sessions.Options {
	return &sessions.Options{
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   int(cfg.MaxAge.Seconds()),
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: parseSameSite(cfg.SameSite),
	}
}

// parseSameSite converts string to http.SameSite constant
func parseSameSite(sameSite string) http.SameSite {
	switch strings.ToLower(sameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteDefaultMode
	}
}
