package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/kadirbarquet/usuarios-api/internal/auth"
	"github.com/kadirbarquet/usuarios-api/internal/models"
	"github.com/kadirbarquet/usuarios-api/internal/services"
	pkghttp "github.com/kadirbarquet/usuarios-api/pkg/http"
	pkglogger "github.com/kadirbarquet/usuarios-api/pkg/logger"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Register(ctx context.Context, in services.CreateUserInput, client services.ClientInfo) (*models.User, error)
	Login(ctx context.Context, email, password string, client services.ClientInfo) (*services.LoginResult, error)
	Profile(ctx context.Context, userID string) (*models.User, error)
}

// SessionManager binds, resolves and tears down the browser session
type SessionManager interface {
	Bind(w http.ResponseWriter, r *http.Request, user *models.User) error
	Resolve(r *http.Request) (*models.User, error)
	Unbind(w http.ResponseWriter, r *http.Request) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service     AuthServiceInterface
	sessions    SessionManager
	ipConfig    *pkghttp.IPConfig
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, sessions SessionManager, ipConfig *pkghttp.IPConfig, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AuthHandler {
	return &AuthHandler{
		service:     service,
		sessions:    sessions,
		ipConfig:    ipConfig,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Request DTOs

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Response DTOs

type UserEnvelope struct {
	Message string             `json:"message"`
	User    models.UserSummary `json:"user"`
}

type UserDetailEnvelope struct {
	Message string            `json:"message"`
	User    models.UserDetail `json:"user"`
}

type LoginResponse struct {
	Message string             `json:"message"`
	Token   string             `json:"token"`
	User    models.UserSummary `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type SessionResponse struct {
	User models.UserSummary `json:"user"`
}

// Registro creates a local account
//
// @Router /registro [post]
func (h *AuthHandler) Registro(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := pkghttp.DecodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err, services.MsgAllFieldsRequired)
		return
	}
	if err := ValidateRequest(req, services.MsgAllFieldsRequired); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	user, err := h.service.Register(r.Context(), services.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}, h.client(r))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, UserEnvelope{
		Message: "Usuario registrado exitosamente",
		User:    user.Summary(),
	})
}

// Login exchanges email and password for a bearer token
//
// @Router /login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := pkghttp.DecodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err, services.MsgCredentialsRequired)
		return
	}
	if err := ValidateRequest(req, services.MsgCredentialsRequired); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password, h.client(r))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{
		Message: "Login exitoso",
		Token:   result.Token,
		User:    result.User.Summary(),
	})
}

// Logout ends the browser session. Bearer tokens stay valid until they expire.
//
// @Router /logout [get]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := ""
	if user, err := h.sessions.Resolve(r); err == nil && user != nil {
		userID = user.ID
	}

	if err := h.sessions.Unbind(w, r); err != nil {
		h.logger.Error("failed to destroy session", slog.Any("error", err))
		pkghttp.WriteError(w, http.StatusInternalServerError, "logout_failed", MsgLogoutFailed)
		return
	}

	h.auditLogger.LogAccountAction(r.Context(), "logout", userID, userID, pkghttp.ExtractClientIP(r, h.ipConfig))
	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Sesión cerrada exitosamente"})
}

// Perfil returns the account behind the bearer token
//
// @Router /perfil [get]
func (h *AuthHandler) Perfil(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		auth.WriteTokenError(w, models.ErrTokenMissing)
		return
	}

	user, err := h.service.Profile(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, UserDetailEnvelope{
		Message: "Datos del perfil",
		User:    user.Detail(),
	})
}

// Session returns the user bound to the browser session, if any
//
// @Router /auth/session [get]
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	user, err := h.sessions.Resolve(r)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if user == nil {
		pkghttp.WriteUnauthorized(w, MsgNoSession)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, SessionResponse{User: user.Summary()})
}

func (h *AuthHandler) client(r *http.Request) services.ClientInfo {
	return clientInfo(r, h.ipConfig)
}

func clientInfo(r *http.Request, ipConfig *pkghttp.IPConfig) services.ClientInfo {
	return services.ClientInfo{
		IPAddress: pkghttp.ExtractClientIP(r, ipConfig),
		UserAgent: r.UserAgent(),
	}
}
