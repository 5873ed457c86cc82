// Package oauth talks to the Google identity provider: it builds the consent
// URL and turns an authorization code into a profile.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kadirbarquet/usuarios-api/internal/config"
	"github.com/kadirbarquet/usuarios-api/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// googleUserInfo represents user info returned from Google.
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleProvider implements the identity provider side of the handshake
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
	timeout     time.Duration
}

// Option customises a GoogleProvider
type Option func(*GoogleProvider)

// WithEndpoint points the provider at another token/auth endpoint
func WithEndpoint(endpoint oauth2.Endpoint) Option {
	return func(p *GoogleProvider) { p.config.Endpoint = endpoint }
}

// WithUserInfoURL overrides the profile endpoint
func WithUserInfoURL(url string) Option {
	return func(p *GoogleProvider) { p.userInfoURL = url }
}

func NewGoogleProvider(cfg config.GoogleConfig, opts ...Option) *GoogleProvider {
	p := &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       []string{"profile", "email"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: defaultUserInfoURL,
		timeout:     10 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AuthCodeURL returns the consent page URL carrying state
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange trades the authorization code for a token and fetches the
// profile. A replayed or expired code fails here with models.ErrProvider.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*models.OAuthProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange failed: %v", models.ErrProvider, err)
	}

	info, err := p.fetchUserInfo(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrProvider, err)
	}

	if info.ID == "" {
		return nil, fmt.Errorf("%w: profile has no id", models.ErrProvider)
	}

	return &models.OAuthProfile{
		ID:          info.ID,
		DisplayName: info.Name,
		Email:       info.Email,
		AvatarURL:   info.Picture,
	}, nil
}

// fetchUserInfo retrieves user information from Google's userinfo endpoint.
func (p *GoogleProvider) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build user info request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}

	return &info, nil
}
