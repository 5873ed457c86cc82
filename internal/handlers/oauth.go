package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/kadirbarquet/usuarios-api/internal/models"
	"github.com/kadirbarquet/usuarios-api/internal/services"
	pkghttp "github.com/kadirbarquet/usuarios-api/pkg/http"
)

// OAuthFlow is the handshake coordinator used by the Google routes
type OAuthFlow interface {
	Start(ctx context.Context) (string, error)
	Callback(ctx context.Context, params services.CallbackParams, bind services.BindFunc, client services.ClientInfo) *services.HandshakeResult
	FailureRedirect(code string) string
}

// OAuthHandler drives the browser through the Google login. Every outcome is
// a redirect; the browser is mid-navigation and never sees an error status.
type OAuthHandler struct {
	flow     OAuthFlow
	sessions SessionManager
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

func NewOAuthHandler(flow OAuthFlow, sessions SessionManager, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{
		flow:     flow,
		sessions: sessions,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// GoogleStart redirects to the Google consent screen
//
// @Router /auth/google [get]
func (h *OAuthHandler) GoogleStart(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.flow.Start(r.Context())
	if err != nil {
		h.logger.Warn("oauth start failed", slog.Any("error", err))
		http.Redirect(w, r, h.flow.FailureRedirect(services.FailureAuth), http.StatusFound)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// GoogleCallback completes the handshake and sends the browser back to the
// frontend with either a token or an error flag
//
// @Router /auth/google/callback [get]
func (h *OAuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := services.CallbackParams{
		Code:  q.Get("code"),
		State: q.Get("state"),
		Error: q.Get("error"),
	}

	bind := func(user *models.User) error {
		return h.sessions.Bind(w, r, user)
	}

	result := h.flow.Callback(r.Context(), params, bind, clientInfo(r, h.ipConfig))
	http.Redirect(w, r, result.RedirectURL, http.StatusFound)
}
