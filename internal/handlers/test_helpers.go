package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kadirbarquet/usuarios-api/internal/auth"
	"github.com/kadirbarquet/usuarios-api/internal/models"
	"github.com/kadirbarquet/usuarios-api/internal/services"
	pkghttp "github.com/kadirbarquet/usuarios-api/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds token claims to the request context for testing
// authenticated endpoints
func WithAuthContext(req *http.Request, userID, email string) *http.Request {
	claims := &models.TokenClaims{UserID: userID, Email: email}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

// WithChiRouteContext adds chi URL parameters to the request context
func WithChiRouteContext(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks status, machine code and client message of an error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedCode, expectedMessage string) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedCode, resp.Code, "Error code mismatch")
	if expectedMessage != "" {
		assert.Equal(t, expectedMessage, resp.Error, "Error message mismatch")
	}
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	RegisterFunc func(ctx context.Context, in services.CreateUserInput, client services.ClientInfo) (*models.User, error)
	LoginFunc    func(ctx context.Context, email, password string, client services.ClientInfo) (*services.LoginResult, error)
	ProfileFunc  func(ctx context.Context, userID string) (*models.User, error)
}

func (m *MockAuthService) Register(ctx context.Context, in services.CreateUserInput, client services.ClientInfo) (*models.User, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.RegisterFunc(ctx, in, client)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string, client services.ClientInfo) (*services.LoginResult, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrInvalidCredentials
	}
	return m.LoginFunc(ctx, email, password, client)
}

func (m *MockAuthService) Profile(ctx context.Context, userID string) (*models.User, error) {
	if m.ProfileFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.ProfileFunc(ctx, userID)
}

// MockSessionManager implements SessionManager for testing
type MockSessionManager struct {
	BindFunc    func(w http.ResponseWriter, r *http.Request, user *models.User) error
	ResolveFunc func(r *http.Request) (*models.User, error)
	UnbindFunc  func(w http.ResponseWriter, r *http.Request) error
}

func (m *MockSessionManager) Bind(w http.ResponseWriter, r *http.Request, user *models.User) error {
	if m.BindFunc == nil {
		return nil
	}
	return m.BindFunc(w, r, user)
}

func (m *MockSessionManager) Resolve(r *http.Request) (*models.User, error) {
	if m.ResolveFunc == nil {
		return nil, nil
	}
	return m.ResolveFunc(r)
}

func (m *MockSessionManager) Unbind(w http.ResponseWriter, r *http.Request) error {
	if m.UnbindFunc == nil {
		return nil
	}
	return m.UnbindFunc(w, r)
}

// MockUserService implements UserServiceInterface for testing
type MockUserService struct {
	ListFunc     func(ctx context.Context) ([]*models.User, error)
	FindByIDFunc func(ctx context.Context, id string) (*models.User, error)
	CreateFunc   func(ctx context.Context, in services.CreateUserInput) (*models.User, error)
	UpdateFunc   func(ctx context.Context, id string, in services.UpdateUserInput) (*models.User, error)
	DeleteFunc   func(ctx context.Context, id string) (*models.User, error)
}

func (m *MockUserService) List(ctx context.Context) ([]*models.User, error) {
	if m.ListFunc == nil {
		return []*models.User{}, nil
	}
	return m.ListFunc(ctx)
}

func (m *MockUserService) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.FindByIDFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.FindByIDFunc(ctx, id)
}

func (m *MockUserService) Create(ctx context.Context, in services.CreateUserInput) (*models.User, error) {
	if m.CreateFunc == nil {
		return nil, models.ErrDuplicateEmail
	}
	return m.CreateFunc(ctx, in)
}

func (m *MockUserService) Update(ctx context.Context, id string, in services.UpdateUserInput) (*models.User, error) {
	if m.UpdateFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateFunc(ctx, id, in)
}

func (m *MockUserService) Delete(ctx context.Context, id string) (*models.User, error) {
	if m.DeleteFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.DeleteFunc(ctx, id)
}

// MockOAuthFlow implements OAuthFlow for testing
type MockOAuthFlow struct {
	StartFunc    func(ctx context.Context) (string, error)
	CallbackFunc func(ctx context.Context, params services.CallbackParams, bind services.BindFunc, client services.ClientInfo) *services.HandshakeResult
}

func (m *MockOAuthFlow) Start(ctx context.Context) (string, error) {
	if m.StartFunc == nil {
		return "", models.ErrProvider
	}
	return m.StartFunc(ctx)
}

func (m *MockOAuthFlow) Callback(ctx context.Context, params services.CallbackParams, bind services.BindFunc, client services.ClientInfo) *services.HandshakeResult {
	return m.CallbackFunc(ctx, params, bind, client)
}

func (m *MockOAuthFlow) FailureRedirect(code string) string {
	return "http://localhost:3000/?error=" + code
}
