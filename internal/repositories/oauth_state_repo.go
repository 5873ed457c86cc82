package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kadirbarquet/usuarios-api/internal/database"
	"github.com/kadirbarquet/usuarios-api/internal/models"
)

// OAuthStateRepository persists the anti-forgery state handed to the
// identity provider. Each state can be consumed once.
type OAuthStateRepository struct {
	pool *pgxpool.Pool
}

func NewOAuthStateRepository(db *database.DB) *OAuthStateRepository {
	return &OAuthStateRepository{pool: db.Pool}
}

func (r *OAuthStateRepository) Save(ctx context.Context, state string, expiresAt time.Time) error {
	query := `INSERT INTO oauth_states (state, expires_at, created_at) VALUES ($1, $2, NOW())`

	_, err := r.pool.Exec(ctx, query, state, expiresAt)
	return database.MapPostgresError(err)
}

// Consume deletes the state and reports whether it existed and was still
// live. Replays and expired states both return models.ErrNotFound.
func (r *OAuthStateRepository) Consume(ctx context.Context, state string) error {
	query := `DELETE FROM oauth_states WHERE state = $1 RETURNING expires_at`

	var expiresAt time.Time
	if err := r.pool.QueryRow(ctx, query, state).Scan(&expiresAt); err != nil {
		return database.MapPostgresError(err)
	}

	if time.Now().After(expiresAt) {
		return models.ErrNotFound
	}
	return nil
}

// CleanupExpired removes states that were never consumed
func (r *OAuthStateRepository) CleanupExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM oauth_states WHERE expires_at < $1`

	result, err := r.pool.Exec(ctx, query, time.Now())
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
