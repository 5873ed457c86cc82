package http_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	pkghttp "github.com/kadirbarquet/usuarios-api/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) pkghttp.ErrorResponse {
	t.Helper()
	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteError(w, 400, "test_error", "Mensaje de prueba")

	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	resp := decodeError(t, w)
	assert.Equal(t, "Mensaje de prueba", resp.Error)
	assert.Equal(t, "test_error", resp.Code)
	assert.Empty(t, resp.Details)
}

func TestWriteErrorWithDetails(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteErrorWithDetails(w, 400, "test_error", "Mensaje", "detalle")

	resp := decodeError(t, w)
	assert.Equal(t, "Mensaje", resp.Error)
	assert.Equal(t, "detalle", resp.Details)
}

func TestCommonWriters(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w *httptest.ResponseRecorder)
		status int
		code   string
	}{
		{"bad request", func(w *httptest.ResponseRecorder) { pkghttp.WriteBadRequest(w, "m") }, 400, "bad_request"},
		{"validation", func(w *httptest.ResponseRecorder) { pkghttp.WriteValidationError(w, "m") }, 400, "validation_error"},
		{"unauthorized", func(w *httptest.ResponseRecorder) { pkghttp.WriteUnauthorized(w, "m") }, 401, "unauthorized"},
		{"not found", func(w *httptest.ResponseRecorder) { pkghttp.WriteNotFound(w, "m") }, 404, "not_found"},
		{"conflict", func(w *httptest.ResponseRecorder) { pkghttp.WriteConflict(w, "m") }, 409, "conflict"},
		{"rate limit", func(w *httptest.ResponseRecorder) { pkghttp.WriteTooManyRequests(w, "m") }, 429, "rate_limit_exceeded"},
		{"internal", func(w *httptest.ResponseRecorder) { pkghttp.WriteInternalError(w, "m") }, 500, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, "m", resp.Error)
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestErrorResponseJSON(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteUnauthorized(w, "Token inválido")

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "Token inválido", resp["error"])
	assert.Equal(t, "unauthorized", resp["code"])
	assert.NotContains(t, resp, "details")
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteJSON(w, 201, map[string]string{"message": "ok"})

	assert.Equal(t, 201, w.Code)
	assert.JSONEq(t, `{"message":"ok"}`, w.Body.String())
}
