package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/kadirbarquet/usuarios-api/internal/models"
	pkglogger "github.com/kadirbarquet/usuarios-api/pkg/logger"
)

// HandshakeStage names how far an OAuth login got
type HandshakeStage string

const (
	StageStart            HandshakeStage = "start"
	StageCallbackReceived HandshakeStage = "callback_received"
	StageCodeExchanged    HandshakeStage = "code_exchanged"
	StageResolved         HandshakeStage = "resolved"
	StageComplete         HandshakeStage = "complete"
	StageFailed           HandshakeStage = "failed"
)

// Failure codes sent to the frontend as ?error=<code>
const (
	FailureAuth          = "auth_failed"
	FailureInvalidState  = "invalid_state"
	FailureAccountExists = "account_exists"
	FailureSession       = "session_error"
)

// IdentityProvider is the external OAuth2 provider
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*models.OAuthProfile, error)
}

// OAuthStateStore keeps issued states until they are consumed once
type OAuthStateStore interface {
	Save(ctx context.Context, state string, expiresAt time.Time) error
	Consume(ctx context.Context, state string) error
}

// OAuthUsers is the subset of UserService the handshake needs
type OAuthUsers interface {
	FindByOAuthID(ctx context.Context, oauthID string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	CreateOAuth(ctx context.Context, in OAuthUserInput) (*models.User, error)
}

// CallbackParams are the query parameters of the provider redirect
type CallbackParams struct {
	Code  string
	State string
	Error string
}

// BindFunc attaches the resolved user to the caller's session
type BindFunc func(user *models.User) error

// HandshakeResult is the outcome of a callback. RedirectURL is always set:
// the browser goes back to the frontend whether or not login succeeded.
type HandshakeResult struct {
	Stage       HandshakeStage
	User        *models.User
	Token       string
	Failure     string
	RedirectURL string
}

// OAuthService coordinates the authorization-code login
type OAuthService struct {
	provider    IdentityProvider
	states      OAuthStateStore
	users       OAuthUsers
	tokens      TokenIssuer
	frontendURL string
	stateTTL    time.Duration
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

// NewOAuthService creates a new OAuthService. provider may be nil when
// Google credentials are not configured; every login then fails with auth_failed.
func NewOAuthService(provider IdentityProvider, states OAuthStateStore, users OAuthUsers, tokens TokenIssuer, frontendURL string, stateTTL time.Duration, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *OAuthService {
	return &OAuthService{
		provider:    provider,
		states:      states,
		users:       users,
		tokens:      tokens,
		frontendURL: frontendURL,
		stateTTL:    stateTTL,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// Start issues a single-use state and returns the provider consent URL
func (s *OAuthService) Start(ctx context.Context) (string, error) {
	if s.provider == nil {
		return "", fmt.Errorf("%w: google login is not configured", models.ErrProvider)
	}

	state := base64.RawURLEncoding.EncodeToString(securecookie.GenerateRandomKey(32))
	if err := s.states.Save(ctx, state, s.now().Add(s.stateTTL)); err != nil {
		s.logger.Error("failed to persist oauth state", slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	s.logger.Debug("oauth handshake started", slog.String("stage", string(StageStart)))
	return s.provider.AuthCodeURL(state), nil
}

// FailureRedirect is the frontend URL for a handshake that failed with code
func (s *OAuthService) FailureRedirect(code string) string {
	return s.frontendURL + "/?" + url.Values{"error": {code}}.Encode()
}

// Callback runs the handshake from the provider redirect to the final
// frontend redirect. It never returns an error; failures are reported in
// the result.
func (s *OAuthService) Callback(ctx context.Context, params CallbackParams, bind BindFunc, client ClientInfo) *HandshakeResult {
	stage := StageCallbackReceived

	if params.Error != "" {
		return s.fail(ctx, stage, FailureAuth, "provider_error: "+params.Error, client)
	}
	if s.provider == nil {
		return s.fail(ctx, stage, FailureAuth, "provider_not_configured", client)
	}

	if params.State == "" {
		return s.fail(ctx, stage, FailureInvalidState, "missing_state", client)
	}
	if err := s.states.Consume(ctx, params.State); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return s.fail(ctx, stage, FailureInvalidState, "unknown_or_replayed_state", client)
		}
		s.logger.Error("failed to consume oauth state", slog.Any("error", err))
		return s.fail(ctx, stage, FailureAuth, "state_store_error", client)
	}

	if params.Code == "" {
		return s.fail(ctx, stage, FailureAuth, "missing_code", client)
	}

	profile, err := s.provider.Exchange(ctx, params.Code)
	if err != nil {
		s.logger.Warn("oauth code exchange failed", slog.Any("error", err))
		return s.fail(ctx, stage, FailureAuth, "code_exchange_failed", client)
	}
	stage = StageCodeExchanged

	user, failure, reason := s.resolve(ctx, profile)
	if user == nil {
		return s.fail(ctx, stage, failure, reason, client)
	}
	stage = StageResolved

	if err := bind(user); err != nil {
		s.logger.Error("failed to bind session", slog.String("user_id", user.ID), slog.Any("error", err))
		return s.fail(ctx, stage, FailureSession, "session_bind_failed", client)
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to issue token", slog.String("user_id", user.ID), slog.Any("error", err))
		return s.fail(ctx, stage, FailureAuth, "token_issue_failed", client)
	}

	redirect, err := s.successRedirect(token, user)
	if err != nil {
		s.logger.Error("failed to encode user summary", slog.String("user_id", user.ID), slog.Any("error", err))
		return s.fail(ctx, stage, FailureAuth, "redirect_encode_failed", client)
	}

	s.logger.Info("user logged in via Google OAuth", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: "oauth_login_success",
		UserID:    user.ID,
		Provider:  "google",
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		Success:   true,
	})

	return &HandshakeResult{
		Stage:       StageComplete,
		User:        user,
		Token:       token,
		RedirectURL: redirect,
	}
}

// resolve finds the account for the profile by provider id, creating it on
// first login. Accounts are never linked by email: an unseen provider id
// whose email is already registered is rejected with account_exists.
func (s *OAuthService) resolve(ctx context.Context, profile *models.OAuthProfile) (*models.User, string, string) {
	user, err := s.users.FindByOAuthID(ctx, profile.ID)
	if err == nil {
		return user, "", ""
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, FailureAuth, "user_lookup_failed"
	}

	if profile.Email == "" {
		return nil, FailureAuth, "profile_without_email"
	}

	byEmail, err := s.users.FindByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		// a concurrent callback for this provider id may have just created it
		if byEmail.OAuthID != nil && *byEmail.OAuthID == profile.ID {
			return byEmail, "", ""
		}
		return nil, FailureAccountExists, "email_already_registered"
	case !errors.Is(err, models.ErrNotFound):
		return nil, FailureAuth, "user_lookup_failed"
	}

	created, err := s.users.CreateOAuth(ctx, OAuthUserInput{
		OAuthID:   profile.ID,
		Name:      profile.DisplayName,
		Email:     profile.Email,
		AvatarURL: profile.AvatarURL,
	})
	if err == nil {
		return created, "", ""
	}
	if !errors.Is(err, models.ErrConflict) && !errors.Is(err, models.ErrDuplicateEmail) {
		return nil, FailureAuth, "user_create_failed"
	}

	// lost the insert race to a callback for the same provider id
	existing, rerr := s.users.FindByOAuthID(ctx, profile.ID)
	switch {
	case rerr == nil:
		return existing, "", ""
	case errors.Is(err, models.ErrDuplicateEmail) && errors.Is(rerr, models.ErrNotFound):
		return nil, FailureAccountExists, "email_already_registered"
	default:
		return nil, FailureAuth, "user_lookup_failed"
	}
}

func (s *OAuthService) successRedirect(token string, user *models.User) (string, error) {
	summary, err := json.Marshal(user.Summary())
	if err != nil {
		return "", err
	}
	q := url.Values{
		"token": {token},
		"user":  {string(summary)},
	}
	return s.frontendURL + "/?" + q.Encode(), nil
}

func (s *OAuthService) fail(ctx context.Context, stage HandshakeStage, code, reason string, client ClientInfo) *HandshakeResult {
	s.logger.Info("oauth handshake failed",
		slog.String("stage", string(stage)),
		slog.String("error_code", code),
		slog.String("reason", reason))
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType:     "oauth_login_failed",
		Provider:      "google",
		IPAddress:     client.IPAddress,
		UserAgent:     client.UserAgent,
		FailureReason: reason,
		Metadata:      map[string]string{"stage": string(stage)},
	})

	return &HandshakeResult{
		Stage:       StageFailed,
		Failure:     code,
		RedirectURL: s.FailureRedirect(code),
	}
}
