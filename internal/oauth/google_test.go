package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/kadirbarquet/usuarios-api/internal/config"
	"github.com/kadirbarquet/usuarios-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeGoogle serves a token endpoint that accepts a single code once, and a
// userinfo endpoint that checks the bearer token.
func fakeGoogle(t *testing.T, profile map[string]interface{}) *httptest.Server {
	t.Helper()
	used := map[string]bool{}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		code := r.PostForm.Get("code")
		if code != "good-code" || used[code] {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		used[code] = true
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-123","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(profile)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(srv *httptest.Server) *GoogleProvider {
	return NewGoogleProvider(
		config.GoogleConfig{ClientID: "client", ClientSecret: "secret", CallbackURL: "http://localhost:5000/auth/google/callback"},
		WithEndpoint(oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token", AuthStyle: oauth2.AuthStyleInParams}),
		WithUserInfoURL(srv.URL+"/userinfo"),
	)
}

func TestGoogleProvider_AuthCodeURL(t *testing.T) {
	p := NewGoogleProvider(config.GoogleConfig{ClientID: "client", ClientSecret: "secret", CallbackURL: "http://localhost:5000/auth/google/callback"})

	u, err := url.Parse(p.AuthCodeURL("state-abc"))
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "accounts.google.com", u.Host)
	assert.Equal(t, "state-abc", q.Get("state"))
	assert.Equal(t, "client", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "profile email", q.Get("scope"))
	assert.Equal(t, "http://localhost:5000/auth/google/callback", q.Get("redirect_uri"))
}

func TestGoogleProvider_Exchange(t *testing.T) {
	srv := fakeGoogle(t, map[string]interface{}{
		"id":      "google-123",
		"email":   "Ana@Gmail.com",
		"name":    "Ana Lopez",
		"picture": "https://lh3.googleusercontent.com/a/pic",
	})
	p := newTestProvider(srv)

	profile, err := p.Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, "google-123", profile.ID)
	assert.Equal(t, "Ana Lopez", profile.DisplayName)
	assert.Equal(t, "Ana@Gmail.com", profile.Email)
	assert.Equal(t, "https://lh3.googleusercontent.com/a/pic", profile.AvatarURL)
}

func TestGoogleProvider_ReplayedCode(t *testing.T) {
	srv := fakeGoogle(t, map[string]interface{}{"id": "google-123"})
	p := newTestProvider(srv)

	_, err := p.Exchange(context.Background(), "good-code")
	require.NoError(t, err)

	_, err = p.Exchange(context.Background(), "good-code")
	assert.ErrorIs(t, err, models.ErrProvider)
}

func TestGoogleProvider_ProfileWithoutID(t *testing.T) {
	srv := fakeGoogle(t, map[string]interface{}{"email": "x@y.co"})
	p := newTestProvider(srv)

	_, err := p.Exchange(context.Background(), "good-code")
	assert.ErrorIs(t, err, models.ErrProvider)
}
