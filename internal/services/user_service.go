package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/kadirbarquet/usuarios-api/internal/models"
	pkglogger "github.com/kadirbarquet/usuarios-api/pkg/logger"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByOAuthID(ctx context.Context, oauthID string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, id string, user *models.User) (*models.User, error)
	Delete(ctx context.Context, id string) (*models.User, error)
}

// PasswordHasher hashes and checks passwords
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, hash *string) bool
}

// CreateUserInput is a local (email/password) account to create
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
}

// OAuthUserInput is an account to create from a provider profile
type OAuthUserInput struct {
	OAuthID   string
	Name      string
	Email     string
	AvatarURL string
}

// UpdateUserInput carries the fields to change; nil leaves a field as is.
type UpdateUserInput struct {
	Name     *string
	Email    *string
	Password *string
}

// UserService is the credential store: it owns validation, normalization
// and hashing in front of the repository.
type UserService struct {
	repo        UserRepository
	hasher      PasswordHasher
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewUserService creates a new UserService
func NewUserService(repo UserRepository, hasher PasswordHasher, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *UserService {
	return &UserService{
		repo:        repo,
		hasher:      hasher,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// FindByID retrieves a user by ID. Ids that are not 24 hex characters fail
// with models.ErrInvalidID before touching the store.
func (s *UserService) FindByID(ctx context.Context, id string) (*models.User, error) {
	id, err := models.ParseUserID(id)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapReadError(err, "failed to get user", slog.String("user_id", id))
	}
	return user, nil
}

// FindByEmail looks up a user case-insensitively
func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, s.mapReadError(err, "failed to get user by email")
	}
	return user, nil
}

func (s *UserService) FindByOAuthID(ctx context.Context, oauthID string) (*models.User, error) {
	user, err := s.repo.GetByOAuthID(ctx, oauthID)
	if err != nil {
		return nil, s.mapReadError(err, "failed to get user by oauth id")
	}
	return user, nil
}

// List returns every user, newest first
func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return users, nil
}

// Create validates and stores a local account. The email is stored
// lowercased; a second account with the same address in any case fails
// with models.ErrDuplicateEmail.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)

	if name == "" || email == "" || in.Password == "" {
		return nil, models.NewValidationError("", MsgAllFieldsRequired)
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user, err := s.repo.Create(ctx, &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: &hash,
		AuthMode:     models.AuthModeLocal,
	})
	if err != nil {
		return nil, s.mapWriteError(err, "failed to create user")
	}

	s.logger.Info("user created", slog.String("user_id", user.ID), slog.String("auth_mode", string(user.AuthMode)))
	return user, nil
}

// CreateOAuth stores a provider-backed account with no password.
// models.ErrDuplicateEmail means the address already belongs to another
// account; models.ErrConflict means another request inserted the same
// provider id first.
func (s *UserService) CreateOAuth(ctx context.Context, in OAuthUserInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	if in.OAuthID == "" || email == "" {
		return nil, models.NewValidationError("", MsgAllFieldsRequired)
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	name := oauthDisplayName(in.Name, email)
	if err := validateName(name); err != nil {
		return nil, err
	}

	oauthID := in.OAuthID
	user := &models.User{
		Name:     name,
		Email:    email,
		OAuthID:  &oauthID,
		AuthMode: models.AuthModeOAuth,
	}
	if in.AvatarURL != "" {
		avatar := in.AvatarURL
		user.AvatarURL = &avatar
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, s.mapWriteError(err, "failed to create oauth user")
	}

	s.logger.Info("user created", slog.String("user_id", created.ID), slog.String("auth_mode", string(created.AuthMode)))
	return created, nil
}

// oauthDisplayName falls back to the local part of the email, and to the
// whole address when the local part is a single character.
func oauthDisplayName(name, email string) string {
	name = strings.TrimSpace(name)
	if len([]rune(name)) >= 2 {
		return name
	}
	local, _, _ := strings.Cut(email, "@")
	if len([]rune(local)) >= 2 {
		return local
	}
	return email
}

// Update applies the non-nil fields of in. Email and password are
// re-validated; a new password is re-hashed. Accounts created through the
// identity provider cannot be given a password.
func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput) (*models.User, error) {
	user, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validateName(name); err != nil {
			return nil, err
		}
		user.Name = name
	}

	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		user.Email = email
	}

	passwordChanged := false
	if in.Password != nil {
		if user.AuthMode == models.AuthModeOAuth {
			return nil, models.NewValidationError("password", MsgPasswordNotAllowed)
		}
		if err := validatePassword(*in.Password); err != nil {
			return nil, err
		}
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			s.logger.Error("failed to hash password", slog.String("user_id", user.ID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		user.PasswordHash = &hash
		passwordChanged = true
	}

	updated, err := s.repo.Update(ctx, user.ID, user)
	if err != nil {
		return nil, s.mapWriteError(err, "failed to update user", slog.String("user_id", user.ID))
	}

	if passwordChanged && s.auditLogger != nil {
		s.auditLogger.LogPasswordChange(ctx, updated.ID, true)
	}

	s.logger.Info("user updated", slog.String("user_id", updated.ID))
	return updated, nil
}

// Delete removes a user and returns the removed record
func (s *UserService) Delete(ctx context.Context, id string) (*models.User, error) {
	id, err := models.ParseUserID(id)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, s.mapReadError(err, "failed to delete user", slog.String("user_id", id))
	}

	s.logger.Info("user deleted", slog.String("user_id", id))
	return user, nil
}

func (s *UserService) mapReadError(err error, msg string, attrs ...any) error {
	if errors.Is(err, models.ErrNotFound) {
		return models.ErrNotFound
	}
	s.logger.Error(msg, append(attrs, slog.Any("error", err))...)
	return models.ErrInternalServer
}

func (s *UserService) mapWriteError(err error, msg string, attrs ...any) error {
	var ve *models.ValidationError
	switch {
	case errors.Is(err, models.ErrDuplicateEmail):
		return models.ErrDuplicateEmail
	case errors.Is(err, models.ErrConflict):
		return models.ErrConflict
	case errors.Is(err, models.ErrNotFound):
		return models.ErrNotFound
	case errors.As(err, &ve):
		return ve
	}
	s.logger.Error(msg, append(attrs, slog.Any("error", err))...)
	return models.ErrInternalServer
}
