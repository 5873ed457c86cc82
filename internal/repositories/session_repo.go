package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kadirbarquet/usuarios-api/internal/database"
	"github.com/kadirbarquet/usuarios-api/internal/models"
)

// SessionRepository is the server-side half of the session cookie
type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{pool: db.Pool}
}

// Load returns a live session. Expired rows are reported as models.ErrNotFound.
func (r *SessionRepository) Load(ctx context.Context, id string) (*models.SessionRecord, error) {
	query := `
		SELECT id, data, expires_at, created_at, updated_at
		FROM sessions WHERE id = $1 AND expires_at > $2
	`

	var s models.SessionRecord
	err := r.pool.QueryRow(ctx, query, id, time.Now()).Scan(
		&s.ID, &s.Data, &s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &s, nil
}

// Save inserts or replaces the session row
func (r *SessionRepository) Save(ctx context.Context, s *models.SessionRecord) error {
	query := `
		INSERT INTO sessions (id, data, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE
		SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at, updated_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query, s.ID, s.Data, s.ExpiresAt)
	return database.MapPostgresError(err)
}

// Delete is idempotent; removing a missing session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return database.MapPostgresError(err)
}

func (r *SessionRepository) CleanupExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, time.Now())
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}
