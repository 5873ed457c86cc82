package auth

import (
	"context"
	"sync"
	"time"

	"github.com/kadirbarquet/usuarios-api/internal/models"
)

// MemorySessionRepository is an in-memory SessionRepository for tests
type MemorySessionRepository struct {
	mu   sync.Mutex
	rows map[string]models.SessionRecord
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{rows: map[string]models.SessionRecord{}}
}

func (m *MemorySessionRepository) Load(ctx context.Context, id string) (*models.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rows[id]
	if !ok || time.Now().After(rec.ExpiresAt) {
		return nil, models.ErrNotFound
	}
	return &rec, nil
}

func (m *MemorySessionRepository) Save(ctx context.Context, s *models.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[s.ID] = *s
	return nil
}

func (m *MemorySessionRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

// Count returns the number of stored sessions
func (m *MemorySessionRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}
