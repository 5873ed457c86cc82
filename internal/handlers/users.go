package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kadirbarquet/usuarios-api/internal/auth"
	"github.com/kadirbarquet/usuarios-api/internal/models"
	"github.com/kadirbarquet/usuarios-api/internal/services"
	pkghttp "github.com/kadirbarquet/usuarios-api/pkg/http"
	pkglogger "github.com/kadirbarquet/usuarios-api/pkg/logger"
)

// UserServiceInterface defines the interface for user business logic
type UserServiceInterface interface {
	List(ctx context.Context) ([]*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, in services.CreateUserInput) (*models.User, error)
	Update(ctx context.Context, id string, in services.UpdateUserInput) (*models.User, error)
	Delete(ctx context.Context, id string) (*models.User, error)
}

// UserHandler handles the /usuarios CRUD endpoints. Every route sits behind
// the bearer middleware.
type UserHandler struct {
	service     UserServiceInterface
	ipConfig    *pkghttp.IPConfig
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserServiceInterface, ipConfig *pkghttp.IPConfig, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *UserHandler {
	return &UserHandler{
		service:     service,
		ipConfig:    ipConfig,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Request/Response DTOs

// CreateUserRequest represents the request body for creating a user
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateUserRequest carries the fields to change. Omitted fields are kept.
type UpdateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// ListUsersResponse represents a list of users
type ListUsersResponse struct {
	Count int                 `json:"count"`
	Users []models.UserDetail `json:"users"`
}

// RegisterRoutes registers all user routes with the chi router
func (h *UserHandler) RegisterRoutes(router chi.Router) {
	router.Route("/usuarios", func(r chi.Router) {
		r.Get("/", h.ListUsers)         // GET /usuarios
		r.Post("/", h.CreateUser)       // POST /usuarios
		r.Get("/{id}", h.GetUser)       // GET /usuarios/{id}
		r.Put("/{id}", h.UpdateUser)    // PUT /usuarios/{id}
		r.Delete("/{id}", h.DeleteUser) // DELETE /usuarios/{id}
	})
}

// ListUsers returns every user, newest first
//
// @Router /usuarios [get]
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	resp := ListUsersResponse{
		Count: len(users),
		Users: make([]models.UserDetail, 0, len(users)),
	}
	for _, u := range users {
		resp.Users = append(resp.Users, u.Detail())
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// GetUser retrieves a user by ID
//
// @Router /usuarios/{id} [get]
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, UserDetailEnvelope{
		Message: "Usuario encontrado",
		User:    user.Detail(),
	})
}

// CreateUser creates a local account on behalf of an authenticated caller
//
// @Router /usuarios [post]
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := pkghttp.DecodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err, services.MsgAllFieldsRequired)
		return
	}
	if err := ValidateRequest(req, services.MsgAllFieldsRequired); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	user, err := h.service.Create(r.Context(), services.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.audit(r, "user_created", user.ID)
	pkghttp.WriteJSON(w, http.StatusCreated, UserEnvelope{
		Message: "Usuario creado exitosamente",
		User:    user.Summary(),
	})
}

// UpdateUser changes name, email or password
//
// @Router /usuarios/{id} [put]
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := models.ParseUserID(id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	var req UpdateUserRequest
	if err := pkghttp.DecodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err, MsgInvalidBody)
		return
	}

	user, err := h.service.Update(r.Context(), id, services.UpdateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.audit(r, "user_updated", user.ID)
	pkghttp.WriteJSON(w, http.StatusOK, UserDetailEnvelope{
		Message: "Usuario actualizado exitosamente",
		User:    user.Detail(),
	})
}

// DeleteUser removes a user and echoes the removed record
//
// @Router /usuarios/{id} [delete]
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.audit(r, "user_deleted", user.ID)
	pkghttp.WriteJSON(w, http.StatusOK, UserEnvelope{
		Message: "Usuario eliminado exitosamente",
		User:    user.Summary(),
	})
}

func (h *UserHandler) audit(r *http.Request, eventType, targetID string) {
	actorID := ""
	if claims := auth.GetUserFromContext(r); claims != nil {
		actorID = claims.UserID
	}
	h.auditLogger.LogAccountAction(r.Context(), eventType, actorID, targetID, pkghttp.ExtractClientIP(r, h.ipConfig))
}
