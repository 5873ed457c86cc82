package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kadirbarquet/usuarios-api/internal/models"
	pkglogger "github.com/kadirbarquet/usuarios-api/pkg/logger"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc      func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc   func(ctx context.Context, email string) (*models.User, error)
	GetByOAuthIDFunc func(ctx context.Context, oauthID string) (*models.User, error)
	ListFunc         func(ctx context.Context) ([]*models.User, error)
	CreateFunc       func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateFunc       func(ctx context.Context, id string, user *models.User) (*models.User, error)
	DeleteFunc       func(ctx context.Context, id string) (*models.User, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByOAuthID(ctx context.Context, oauthID string) (*models.User, error) {
	if m.GetByOAuthIDFunc != nil {
		return m.GetByOAuthIDFunc(ctx, oauthID)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) List(ctx context.Context) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) (*models.User, error) {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

// FakeUserRepository is an in-memory UserRepository that enforces the same
// unique constraints as the users table (email and oauth id).
type FakeUserRepository struct {
	mu    sync.Mutex
	users map[string]*models.User
	seq   int
}

func NewFakeUserRepository() *FakeUserRepository {
	return &FakeUserRepository{users: map[string]*models.User{}}
}

func (f *FakeUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return copyUser(u), nil
	}
	return nil, models.ErrNotFound
}

func (f *FakeUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.Email == email })
}

func (f *FakeUserRepository) GetByOAuthID(ctx context.Context, oauthID string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.OAuthID != nil && *u.OAuthID == oauthID })
}

func (f *FakeUserRepository) List(ctx context.Context) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*models.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, copyUser(u))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f *FakeUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkUnique("", user); err != nil {
		return nil, err
	}
	if user.AuthMode == models.AuthModeLocal && user.PasswordHash == nil {
		return nil, models.ErrValidation
	}

	stored := copyUser(user)
	if stored.ID == "" {
		stored.ID = models.NewUserID()
	}
	// strictly increasing timestamps keep List ordering deterministic
	f.seq++
	stored.CreatedAt = time.Date(2024, 1, 1, 0, 0, f.seq, 0, time.UTC)
	stored.UpdatedAt = stored.CreatedAt
	f.users[stored.ID] = stored
	return copyUser(stored), nil
}

func (f *FakeUserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	existing, ok := f.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if err := f.checkUnique(id, user); err != nil {
		return nil, err
	}

	existing.Name = user.Name
	existing.Email = user.Email
	existing.PasswordHash = user.PasswordHash
	existing.AvatarURL = user.AvatarURL
	existing.UpdatedAt = existing.UpdatedAt.Add(time.Second)
	return copyUser(existing), nil
}

func (f *FakeUserRepository) Delete(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	delete(f.users, id)
	return u, nil
}

// Count returns the number of stored users
func (f *FakeUserRepository) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

func (f *FakeUserRepository) find(match func(*models.User) bool) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if match(u) {
			return copyUser(u), nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *FakeUserRepository) checkUnique(selfID string, user *models.User) error {
	for id, u := range f.users {
		if id == selfID {
			continue
		}
		if u.Email == user.Email {
			return models.ErrDuplicateEmail
		}
		if u.OAuthID != nil && user.OAuthID != nil && *u.OAuthID == *user.OAuthID {
			return models.ErrConflict
		}
	}
	return nil
}

func copyUser(u *models.User) *models.User {
	c := *u
	return &c
}

// MockTokenIssuer implements TokenIssuer for testing
type MockTokenIssuer struct {
	IssueFunc func(userID, email string) (string, error)
}

func (m *MockTokenIssuer) Issue(userID, email string) (string, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(userID, email)
	}
	return "token-for-" + userID, nil
}

// MockIdentityProvider implements IdentityProvider for testing
type MockIdentityProvider struct {
	ExchangeFunc func(ctx context.Context, code string) (*models.OAuthProfile, error)
}

func (m *MockIdentityProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (m *MockIdentityProvider) Exchange(ctx context.Context, code string) (*models.OAuthProfile, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, code)
	}
	return nil, models.ErrProvider
}

// MemoryStateStore implements OAuthStateStore in memory
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: map[string]time.Time{}}
}

func (m *MemoryStateStore) Save(ctx context.Context, state string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state] = expiresAt
	return nil
}

func (m *MemoryStateStore) Consume(ctx context.Context, state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiresAt, ok := m.states[state]
	if !ok {
		return models.ErrNotFound
	}
	delete(m.states, state)
	if time.Now().After(expiresAt) {
		return models.ErrNotFound
	}
	return nil
}

// Issued returns the single outstanding state, or "" if there is not exactly one
func (m *MemoryStateStore) Issued() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.states) != 1 {
		return ""
	}
	for s := range m.states {
		return s
	}
	return ""
}

// PlainHasher is a fast PasswordHasher for tests that do not exercise bcrypt
type PlainHasher struct{}

func (PlainHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (PlainHasher) Verify(password string, hash *string) bool {
	return hash != nil && strings.TrimPrefix(*hash, "hashed:") == password && strings.HasPrefix(*hash, "hashed:")
}

// CountingHasher wraps PlainHasher and records Verify calls
type CountingHasher struct {
	PlainHasher
	mu       sync.Mutex
	verifies []*string
}

func (h *CountingHasher) Verify(password string, hash *string) bool {
	h.mu.Lock()
	h.verifies = append(h.verifies, hash)
	h.mu.Unlock()
	return h.PlainHasher.Verify(password, hash)
}

// Verified returns the hashes Verify was called with
func (h *CountingHasher) Verified() []*string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*string(nil), h.verifies...)
}

// MockTimingDelay records WaitFrom calls
type MockTimingDelay struct {
	WaitFromFunc func(ctx context.Context, start time.Time, succeeded bool)
}

func (m *MockTimingDelay) WaitFrom(ctx context.Context, start time.Time, succeeded bool) {
	if m.WaitFromFunc != nil {
		m.WaitFromFunc(ctx, start, succeeded)
	}
}

// NewTestLogger returns a logger that discards output
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewTestAuditLogger returns an audit logger that discards output
func NewTestAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(NewTestLogger())
}

// NewTestUser creates a local test user with a PlainHasher hash of "secret123"
func NewTestUser(id, email, name string) *models.User {
	hash := "hashed:secret123"
	return &models.User{
		ID:           id,
		Email:        email,
		Name:         name,
		PasswordHash: &hash,
		AuthMode:     models.AuthModeLocal,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}
