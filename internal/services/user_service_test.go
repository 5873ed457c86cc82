package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/kadirbarquet/usuarios-api/internal/models"
	pkgauth "github.com/kadirbarquet/usuarios-api/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestUserService(repo UserRepository) *UserService {
	return NewUserService(repo, PlainHasher{}, NewTestLogger(), NewTestAuditLogger())
}

func strPtr(s string) *string { return &s }

func assertValidation(t *testing.T, err error, field, message string) {
	t.Helper()
	var ve *models.ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, field, ve.Field)
	assert.Equal(t, message, ve.Message)
}

func TestUserService_Create_NormalizesEmail(t *testing.T) {
	repo := NewFakeUserRepository()
	svc := newTestUserService(repo)

	user, err := svc.Create(context.Background(), CreateUserInput{
		Name:     "  Ana Lopez ",
		Email:    "  Ana@Test.com ",
		Password: "secret123",
	})

	require.NoError(t, err)
	assert.Equal(t, "Ana Lopez", user.Name)
	assert.Equal(t, "ana@test.com", user.Email)
	assert.Equal(t, models.AuthModeLocal, user.AuthMode)
	assert.Nil(t, user.OAuthID)
	require.NotNil(t, user.PasswordHash)
	assert.NotEqual(t, "secret123", *user.PasswordHash)
	assert.Len(t, user.ID, 24)
}

func TestUserService_Create_HashesWithBcrypt(t *testing.T) {
	repo := NewFakeUserRepository()
	svc := NewUserService(repo, pkgauth.NewHasher(bcrypt.MinCost), NewTestLogger(), NewTestAuditLogger())

	user, err := svc.Create(context.Background(), CreateUserInput{Name: "Ana", Email: "ana@test.com", Password: "secret123"})
	require.NoError(t, err)

	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte("secret123")))
}

func TestUserService_Create_Validation(t *testing.T) {
	tests := []struct {
		name    string
		in      CreateUserInput
		field   string
		message string
	}{
		{"missing name", CreateUserInput{Email: "a@b.co", Password: "secret123"}, "", MsgAllFieldsRequired},
		{"missing email", CreateUserInput{Name: "Ana", Password: "secret123"}, "", MsgAllFieldsRequired},
		{"missing password", CreateUserInput{Name: "Ana", Email: "a@b.co"}, "", MsgAllFieldsRequired},
		{"short name", CreateUserInput{Name: " A ", Email: "a@b.co", Password: "secret123"}, "name", MsgNameTooShort},
		{"email without tld", CreateUserInput{Name: "Ana", Email: "ana@test", Password: "secret123"}, "email", MsgInvalidEmail},
		{"email with space", CreateUserInput{Name: "Ana", Email: "an a@test.com", Password: "secret123"}, "email", MsgInvalidEmail},
		{"short password", CreateUserInput{Name: "Ana", Email: "a@b.co", Password: "1234567"}, "password", MsgPasswordTooShort},
		{"long password", CreateUserInput{Name: "Ana", Email: "a@b.co", Password: strings.Repeat("x", 73)}, "password", MsgPasswordTooLong},
		{"long multibyte password", CreateUserInput{Name: "Ana", Email: "a@b.co", Password: strings.Repeat("ñ", 37)}, "password", MsgPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewFakeUserRepository()
			_, err := newTestUserService(repo).Create(context.Background(), tt.in)

			assertValidation(t, err, tt.field, tt.message)
			assert.Equal(t, 0, repo.Count())
		})
	}
}

func TestUserService_Create_DuplicateEmailAnyCase(t *testing.T) {
	repo := NewFakeUserRepository()
	svc := newTestUserService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateUserInput{Name: "Ana", Email: "ana@test.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateUserInput{Name: "Ana Dos", Email: "ANA@TEST.COM", Password: "secret456"})
	assert.ErrorIs(t, err, models.ErrDuplicateEmail)
	assert.NotErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, 1, repo.Count())
}

func TestUserService_Create_ConcurrentDuplicates(t *testing.T) {
	repo := NewFakeUserRepository()
	svc := newTestUserService(repo)

	var wg sync.WaitGroup
	var mu sync.Mutex
	dupes := 0
	for _, email := range []string{"race@test.com", "RACE@test.com", "Race@Test.com", "race@TEST.com"} {
		wg.Add(1)
		go func(email string) {
			defer wg.Done()
			_, err := svc.Create(context.Background(), CreateUserInput{Name: "Racer", Email: email, Password: "secret123"})
			if errors.Is(err, models.ErrDuplicateEmail) {
				mu.Lock()
				dupes++
				mu.Unlock()
			}
		}(email)
	}
	wg.Wait()

	assert.Equal(t, 1, repo.Count())
	assert.Equal(t, 3, dupes)
}

func TestUserService_Create_StoreFailure(t *testing.T) {
	repo := &MockUserRepository{
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			return nil, errors.New("connection refused")
		},
	}

	_, err := newTestUserService(repo).Create(context.Background(), CreateUserInput{Name: "Ana", Email: "a@b.co", Password: "secret123"})
	assert.ErrorIs(t, err, models.ErrInternalServer)
}

func TestUserService_FindByID(t *testing.T) {
	user := NewTestUser("65a1b2c3d4e5f60718293a4b", "user@example.com", "Test User")
	repo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			if id == user.ID {
				return user, nil
			}
			return nil, models.ErrNotFound
		},
	}
	svc := newTestUserService(repo)
	ctx := context.Background()

	got, err := svc.FindByID(ctx, "65A1B2C3D4E5F60718293A4B")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.FindByID(ctx, "65a1b2c3d4e5f60718293a4c")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.FindByID(ctx, "not-an-id")
	assert.ErrorIs(t, err, models.ErrInvalidID)
}

func TestUserService_FindByID_DatabaseError(t *testing.T) {
	repo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return nil, errors.New("timeout")
		},
	}

	_, err := newTestUserService(repo).FindByID(context.Background(), "65a1b2c3d4e5f60718293a4b")
	assert.ErrorIs(t, err, models.ErrInternalServer)
}

func TestUserService_FindByEmail_CaseInsensitive(t *testing.T) {
	repo := NewFakeUserRepository()
	svc := newTestUserService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateUserInput{Name: "Ana", Email: "ana@test.com", Password: "secret123"})
	require.NoError(t, err)

	found, err := svc.FindByEmail(ctx, " ANA@Test.COM ")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
}

func TestUserService_List(t *testing.T) {
	repo := NewFakeUserRepository()
	svc := newTestUserService(repo)
	ctx := context.Background()

	for _, email := range []string{"one@test.com", "two@test.com", "three@test.com"} {
		_, err := svc.Create(ctx, CreateUserInput{Name: "User", Email: email, Password: "secret123"})
		require.NoError(t, err)
	}

	users, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "three@test.com", users[0].Email)
	assert.Equal(t, "one@test.com", users[2].Email)
}

func TestUserService_Update(t *testing.T) {
	repo := NewFakeUserRepository()
	svc := newTestUserService(repo)
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateUserInput{Name: "Ana", Email: "ana@test.com", Password: "secret123"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, user.ID, UpdateUserInput{
		Name:     strPtr("Ana María"),
		Email:    strPtr(" ANA.MARIA@Test.com"),
		Password: strPtr("newsecret456"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Ana María", updated.Name)
	assert.Equal(t, "ana.maria@test.com", updated.Email)
	assert.True(t, PlainHasher{}.Verify("newsecret456", updated.PasswordHash))
	assert.Equal(t, user.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(user.UpdatedAt))
}

func TestUserService_Update_PartialKeepsOtherFields(t *testing.T) {
	repo := NewFakeUserRepository()
	svc := newTestUserService(repo)
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateUserInput{Name: "Ana", Email: "ana@test.com", Password: "secret123"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, user.ID, UpdateUserInput{Name: strPtr("Anita")})
	require.NoError(t, err)
	assert.Equal(t, "ana@test.com", updated.Email)
	assert.Equal(t, *user.PasswordHash, *updated.PasswordHash)
}

func TestUserService_Update_Errors(t *testing.T) {
	repo := NewFakeUserRepository()
	svc := newTestUserService(repo)
	ctx := context.Background()

	ana, err := svc.Create(ctx, CreateUserInput{Name: "Ana", Email: "ana@test.com", Password: "secret123"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateUserInput{Name: "Bea", Email: "bea@test.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, ana.ID, UpdateUserInput{Email: strPtr("BEA@test.com")})
	assert.ErrorIs(t, err, models.ErrDuplicateEmail)

	_, err = svc.Update(ctx, ana.ID, UpdateUserInput{Email: strPtr("bad-email")})
	assertValidation(t, err, "email", MsgInvalidEmail)

	_, err = svc.Update(ctx, ana.ID, UpdateUserInput{Password: strPtr("short")})
	assertValidation(t, err, "password", MsgPasswordTooShort)

	_, err = svc.Update(ctx, "65a1b2c3d4e5f60718293a4b", UpdateUserInput{Name: strPtr("Nadie")})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.Update(ctx, "123", UpdateUserInput{Name: strPtr("Nadie")})
	assert.ErrorIs(t, err, models.ErrInvalidID)
}

func TestUserService_Update_OAuthAccountCannotGetPassword(t *testing.T) {
	repo := NewFakeUserRepository()
	svc := newTestUserService(repo)
	ctx := context.Background()

	user, err := svc.CreateOAuth(ctx, OAuthUserInput{OAuthID: "google-1", Name: "G User", Email: "g@gmail.com"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, user.ID, UpdateUserInput{Password: strPtr("secret123")})
	assertValidation(t, err, "password", MsgPasswordNotAllowed)

	stored, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.PasswordHash)
}

func TestUserService_CreateOAuth(t *testing.T) {
	repo := NewFakeUserRepository()
	svc := newTestUserService(repo)
	ctx := context.Background()

	user, err := svc.CreateOAuth(ctx, OAuthUserInput{
		OAuthID:   "google-123",
		Name:      "",
		Email:     "Maria.Garcia@Gmail.com",
		AvatarURL: "https://lh3.googleusercontent.com/a/pic",
	})
	require.NoError(t, err)

	assert.Equal(t, models.AuthModeOAuth, user.AuthMode)
	assert.Nil(t, user.PasswordHash)
	assert.Equal(t, "maria.garcia@gmail.com", user.Email)
	assert.Equal(t, "maria.garcia", user.Name)
	require.NotNil(t, user.OAuthID)
	assert.Equal(t, "google-123", *user.OAuthID)
	require.NotNil(t, user.AvatarURL)

	_, err = svc.CreateOAuth(ctx, OAuthUserInput{OAuthID: "google-123", Name: "Other", Email: "other@gmail.com"})
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestUserService_CreateOAuth_ShortLocalPart(t *testing.T) {
	repo := NewFakeUserRepository()
	svc := newTestUserService(repo)

	user, err := svc.CreateOAuth(context.Background(), OAuthUserInput{OAuthID: "g-1", Name: " x ", Email: "a@x.io"})
	require.NoError(t, err)

	assert.Equal(t, "a@x.io", user.Name)
	assert.GreaterOrEqual(t, len([]rune(user.Name)), 2)
}

func TestUserService_Delete(t *testing.T) {
	repo := NewFakeUserRepository()
	svc := newTestUserService(repo)
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateUserInput{Name: "Ana", Email: "ana@test.com", Password: "secret123"})
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, deleted.ID)
	assert.Equal(t, 0, repo.Count())

	_, err = svc.Delete(ctx, user.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.Delete(ctx, "zzzzzzzzzzzzzzzzzzzzzzzz")
	assert.ErrorIs(t, err, models.ErrInvalidID)
}
