package handlers_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kadirbarquet/usuarios-api/internal/handlers"
	"github.com/kadirbarquet/usuarios-api/internal/models"
	"github.com/kadirbarquet/usuarios-api/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserHandler(svc handlers.UserServiceInterface) *handlers.UserHandler {
	return handlers.NewUserHandler(svc, nil, services.NewTestLogger(), services.NewTestAuditLogger())
}

func withID(req *http.Request, id string) *http.Request {
	req = handlers.WithAuthContext(req, anaID, "ana@test.com")
	return handlers.WithChiRouteContext(req, map[string]string{"id": id})
}

func TestListUsers(t *testing.T) {
	second := services.NewTestUser("65a1b2c3d4e5f60718293a4c", "luis@test.com", "Luis Perez")
	h := newUserHandler(&handlers.MockUserService{
		ListFunc: func(ctx context.Context) ([]*models.User, error) {
			return []*models.User{second, anaUser()}, nil
		},
	})

	w := httptest.NewRecorder()
	h.ListUsers(w, handlers.WithAuthContext(httptest.NewRequest(http.MethodGet, "/usuarios", nil), anaID, "ana@test.com"))

	var resp handlers.ListUsersResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Users, 2)
	assert.Equal(t, "luis@test.com", resp.Users[0].Email)
	assert.NotContains(t, w.Body.String(), "hashed:")
}

func TestListUsers_Empty(t *testing.T) {
	h := newUserHandler(&handlers.MockUserService{})

	w := httptest.NewRecorder()
	h.ListUsers(w, httptest.NewRequest(http.MethodGet, "/usuarios", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":0,"users":[]}`, w.Body.String())
}

func TestListUsers_StoreFailure(t *testing.T) {
	h := newUserHandler(&handlers.MockUserService{
		ListFunc: func(ctx context.Context) ([]*models.User, error) { return nil, models.ErrInternalServer },
	})

	w := httptest.NewRecorder()
	h.ListUsers(w, httptest.NewRequest(http.MethodGet, "/usuarios", nil))
	handlers.AssertErrorResponse(t, w, http.StatusInternalServerError, "internal_error", "")
}

func TestGetUser(t *testing.T) {
	h := newUserHandler(&handlers.MockUserService{
		FindByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			switch {
			case id == anaID:
				return anaUser(), nil
			case len(id) != 24:
				return nil, models.ErrInvalidID
			default:
				return nil, models.ErrNotFound
			}
		},
	})

	w := httptest.NewRecorder()
	h.GetUser(w, withID(httptest.NewRequest(http.MethodGet, "/usuarios/"+anaID, nil), anaID))
	var resp handlers.UserDetailEnvelope
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "Usuario encontrado", resp.Message)
	assert.Equal(t, anaID, resp.User.ID)

	w = httptest.NewRecorder()
	h.GetUser(w, withID(httptest.NewRequest(http.MethodGet, "/usuarios/abc", nil), "abc"))
	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "invalid_id", "ID inválido")

	w = httptest.NewRecorder()
	h.GetUser(w, withID(httptest.NewRequest(http.MethodGet, "/usuarios/ffffffffffffffffffffffff", nil), "ffffffffffffffffffffffff"))
	handlers.AssertErrorResponse(t, w, http.StatusNotFound, "not_found", "Usuario no encontrado")
}

func TestCreateUser(t *testing.T) {
	h := newUserHandler(&handlers.MockUserService{
		CreateFunc: func(ctx context.Context, in services.CreateUserInput) (*models.User, error) {
			assert.Equal(t, "Ana Lopez", in.Name)
			return anaUser(), nil
		},
	})

	req := handlers.NewTestRequest(t, http.MethodPost, "/usuarios", map[string]string{
		"name": "Ana Lopez", "email": "ana@test.com", "password": "secret123",
	})
	w := httptest.NewRecorder()
	h.CreateUser(w, handlers.WithAuthContext(req, anaID, "ana@test.com"))

	var resp handlers.UserEnvelope
	handlers.AssertJSONResponse(t, w, http.StatusCreated, &resp)
	assert.Equal(t, "Usuario creado exitosamente", resp.Message)
	assert.Equal(t, anaID, resp.User.ID)
}

func TestCreateUser_Validation(t *testing.T) {
	h := newUserHandler(&handlers.MockUserService{})

	req := handlers.NewTestRequest(t, http.MethodPost, "/usuarios", map[string]string{"name": "Ana Lopez"})
	w := httptest.NewRecorder()
	h.CreateUser(w, req)
	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "validation_error", services.MsgAllFieldsRequired)

	req = handlers.NewTestRequest(t, http.MethodPost, "/usuarios", map[string]string{
		"name": "Ana Lopez", "email": "ana@test.com", "password": "secret123",
	})
	w = httptest.NewRecorder()
	h.CreateUser(w, req)
	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "duplicate_email", handlers.MsgDuplicateEmail)
}

func TestCreateUser_StoreErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"id collision", fmt.Errorf("failed to create user: %w", models.ErrConflict), http.StatusConflict, "conflict", handlers.MsgConflict},
		{"check constraint", fmt.Errorf("failed to create user: %w", models.ErrValidation), http.StatusBadRequest, "bad_request", handlers.MsgInvalidBody},
		{"not null", models.ErrBadRequest, http.StatusBadRequest, "bad_request", handlers.MsgInvalidBody},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError, "internal_error", handlers.MsgInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newUserHandler(&handlers.MockUserService{
				CreateFunc: func(ctx context.Context, in services.CreateUserInput) (*models.User, error) {
					return nil, tt.err
				},
			})

			req := handlers.NewTestRequest(t, http.MethodPost, "/usuarios", map[string]string{
				"name": "Ana Lopez", "email": "ana@test.com", "password": "secret123",
			})
			w := httptest.NewRecorder()
			h.CreateUser(w, req)

			handlers.AssertErrorResponse(t, w, tt.status, tt.code, tt.message)
		})
	}
}

func TestUpdateUser(t *testing.T) {
	var got services.UpdateUserInput
	h := newUserHandler(&handlers.MockUserService{
		UpdateFunc: func(ctx context.Context, id string, in services.UpdateUserInput) (*models.User, error) {
			got = in
			u := anaUser()
			u.Name = *in.Name
			return u, nil
		},
	})

	req := handlers.NewTestRequest(t, http.MethodPut, "/usuarios/"+anaID, map[string]string{"name": "Ana María"})
	w := httptest.NewRecorder()
	h.UpdateUser(w, withID(req, anaID))

	var resp handlers.UserDetailEnvelope
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "Usuario actualizado exitosamente", resp.Message)
	assert.Equal(t, "Ana María", resp.User.Name)
	require.NotNil(t, got.Name)
	assert.Nil(t, got.Email)
	assert.Nil(t, got.Password)
}

func TestUpdateUser_Errors(t *testing.T) {
	h := newUserHandler(&handlers.MockUserService{
		UpdateFunc: func(ctx context.Context, id string, in services.UpdateUserInput) (*models.User, error) {
			if in.Password != nil {
				return nil, models.NewValidationError("password", services.MsgPasswordTooShort)
			}
			return nil, models.ErrNotFound
		},
	})

	w := httptest.NewRecorder()
	h.UpdateUser(w, withID(handlers.NewTestRequest(t, http.MethodPut, "/usuarios/xyz", map[string]string{"name": "Ana"}), "xyz"))
	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "invalid_id", "ID inválido")

	w = httptest.NewRecorder()
	h.UpdateUser(w, withID(handlers.NewTestRequest(t, http.MethodPut, "/usuarios/"+anaID, map[string]string{"password": "short"}), anaID))
	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "validation_error", services.MsgPasswordTooShort)

	w = httptest.NewRecorder()
	h.UpdateUser(w, withID(handlers.NewTestRequest(t, http.MethodPut, "/usuarios/"+anaID, map[string]string{"name": "Ana"}), anaID))
	handlers.AssertErrorResponse(t, w, http.StatusNotFound, "not_found", "Usuario no encontrado")
}

func TestDeleteUser(t *testing.T) {
	h := newUserHandler(&handlers.MockUserService{
		DeleteFunc: func(ctx context.Context, id string) (*models.User, error) {
			if id == anaID {
				return anaUser(), nil
			}
			return nil, models.ErrNotFound
		},
	})

	w := httptest.NewRecorder()
	h.DeleteUser(w, withID(httptest.NewRequest(http.MethodDelete, "/usuarios/"+anaID, nil), anaID))
	var resp handlers.UserEnvelope
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "Usuario eliminado exitosamente", resp.Message)
	assert.Equal(t, anaID, resp.User.ID)

	w = httptest.NewRecorder()
	h.DeleteUser(w, withID(httptest.NewRequest(http.MethodDelete, "/usuarios/ffffffffffffffffffffffff", nil), "ffffffffffffffffffffffff"))
	handlers.AssertErrorResponse(t, w, http.StatusNotFound, "not_found", "Usuario no encontrado")
}
