package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kadirbarquet/usuarios-api/internal/models"
	pkglogger "github.com/kadirbarquet/usuarios-api/pkg/logger"
)

// TokenIssuer mints bearer tokens
type TokenIssuer interface {
	Issue(userID, email string) (string, error)
}

// TimingDelay pads failed logins to a common minimum duration
type TimingDelay interface {
	WaitFrom(ctx context.Context, start time.Time, succeeded bool)
}

// CredentialStore is the subset of UserService used by authentication
type CredentialStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, in CreateUserInput) (*models.User, error)
}

// ClientInfo identifies the caller for audit records
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// LoginResult is a successful password login
type LoginResult struct {
	Token string
	User  *models.User
}

// AuthService handles registration and password login
type AuthService struct {
	users       CredentialStore
	hasher      PasswordHasher
	tokens      TokenIssuer
	timing      TimingDelay
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger

	dummyOnce sync.Once
	dummyHash *string
}

// NewAuthService creates a new AuthService
func NewAuthService(users CredentialStore, hasher PasswordHasher, tokens TokenIssuer, timing TimingDelay, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AuthService {
	return &AuthService{
		users:       users,
		hasher:      hasher,
		tokens:      tokens,
		timing:      timing,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Register creates a local account. No token is issued; the client logs in
// afterwards.
func (s *AuthService) Register(ctx context.Context, in CreateUserInput, client ClientInfo) (*models.User, error) {
	user, err := s.users.Create(ctx, in)
	if err != nil {
		s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
			EventType:     "register_failed",
			Email:         normalizeEmail(in.Email),
			IPAddress:     client.IPAddress,
			UserAgent:     client.UserAgent,
			FailureReason: failureReason(err),
		})
		return nil, err
	}

	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: "register_success",
		UserID:    user.ID,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		Success:   true,
	})
	return user, nil
}

// Login checks email and password and issues a bearer token. Unknown email,
// wrong password and accounts without a password all fail the same way with
// models.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string, client ClientInfo) (*LoginResult, error) {
	if email = normalizeEmail(email); email == "" || password == "" {
		return nil, models.NewValidationError("", MsgCredentialsRequired)
	}

	start := time.Now()
	succeeded := false
	defer func() {
		if s.timing != nil {
			s.timing.WaitFrom(ctx, start, succeeded)
		}
	}()

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// same bcrypt work as a wrong password
			s.hasher.Verify(password, s.decoyHash())
			s.logger.Info("login failed: invalid credentials")
			s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
				EventType:     "login_failed",
				Email:         email,
				IPAddress:     client.IPAddress,
				UserAgent:     client.UserAgent,
				FailureReason: "invalid_credentials",
			})
			return nil, models.ErrInvalidCredentials
		}
		return nil, err
	}

	hash := user.PasswordHash
	reason := "invalid_credentials"
	if !user.HasPassword() {
		hash = s.decoyHash()
		reason = "no_local_password"
	}
	matched := s.hasher.Verify(password, hash)
	if !matched || !user.HasPassword() {
		s.logger.Info("login failed: invalid credentials", slog.String("user_id", user.ID))
		s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        user.ID,
			IPAddress:     client.IPAddress,
			UserAgent:     client.UserAgent,
			FailureReason: reason,
		})
		return nil, models.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to issue token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	succeeded = true
	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		Success:   true,
	})

	return &LoginResult{Token: token, User: user}, nil
}

// decoyHash is hashed once with the real cost and verified against when
// there is no account hash to check.
func (s *AuthService) decoyHash() *string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("usuarios-api-decoy-password")
		if err != nil {
			s.logger.Error("failed to build decoy hash", slog.Any("error", err))
			return
		}
		s.dummyHash = &hash
	})
	return s.dummyHash
}

// Profile returns the user named by a verified token
func (s *AuthService) Profile(ctx context.Context, userID string) (*models.User, error) {
	return s.users.FindByID(ctx, userID)
}

func failureReason(err error) string {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		if ve.Field == "" {
			return "validation"
		}
		return "validation_" + strings.ToLower(ve.Field)
	case errors.Is(err, models.ErrDuplicateEmail):
		return "duplicate_email"
	default:
		return "internal"
	}
}
