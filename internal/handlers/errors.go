package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kadirbarquet/usuarios-api/internal/models"
	pkghttp "github.com/kadirbarquet/usuarios-api/pkg/http"
)

// Client-facing messages
const (
	MsgInvalidBody        = "Cuerpo de la solicitud inválido"
	MsgDuplicateEmail     = "El correo ya está registrado"
	MsgInvalidCredentials = "Correo o contraseña incorrectos"
	MsgInvalidID          = "ID inválido"
	MsgUserNotFound       = "Usuario no encontrado"
	MsgLogoutFailed       = "Error al cerrar sesión"
	MsgNoSession          = "No hay sesión activa"
	MsgConflict           = "El recurso ya existe"
	MsgInternal           = "Error interno del servidor"
)

// writeServiceError translates a service error into the JSON error response
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		pkghttp.WriteValidationError(w, ve.Message)
	case errors.Is(err, models.ErrDuplicateEmail):
		pkghttp.WriteError(w, http.StatusBadRequest, "duplicate_email", MsgDuplicateEmail)
	case errors.Is(err, models.ErrInvalidID):
		pkghttp.WriteError(w, http.StatusBadRequest, "invalid_id", MsgInvalidID)
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, MsgUserNotFound)
	case errors.Is(err, models.ErrInvalidCredentials):
		pkghttp.WriteError(w, http.StatusUnauthorized, "invalid_credentials", MsgInvalidCredentials)
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, MsgConflict)
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, MsgInvalidBody)
	default:
		if !errors.Is(err, models.ErrInternalServer) {
			logger.Error("unhandled service error", slog.Any("error", err))
		}
		pkghttp.WriteInternalError(w, MsgInternal)
	}
}

func writeDecodeError(w http.ResponseWriter, err error, emptyMsg string) {
	if errors.Is(err, pkghttp.ErrEmptyBody) {
		pkghttp.WriteValidationError(w, emptyMsg)
		return
	}
	pkghttp.WriteBadRequest(w, MsgInvalidBody)
}
