package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kadirbarquet/usuarios-api/internal/database"
	"github.com/kadirbarquet/usuarios-api/internal/models"
)

const userColumns = `id, name, email, password_hash, oauth_id, avatar_url, auth_mode, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

// rowScanner interface for scanning user rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanUserRow populates a User model from a database row
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var authMode string

	err := scanner.Scan(
		&user.ID, &user.Name, &user.Email,
		&user.PasswordHash, &user.OAuthID, &user.AvatarURL,
		&authMode, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	user.AuthMode = models.AuthMode(authMode)

	return &user, nil
}

// scanUserRows iterates through rows and scans each into User models
func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

// GetByEmail expects an already normalized (trimmed, lowercased) address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) GetByOAuthID(ctx context.Context, oauthID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE oauth_id = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, oauthID))
}

func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	return scanUserRows(rows)
}

// Create inserts user. A fresh id is assigned when user.ID is empty.
func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = models.NewUserID()
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	if user.AuthMode == "" {
		user.AuthMode = models.AuthModeLocal
	}

	query := `
		INSERT INTO users (id, name, email, password_hash, oauth_id, avatar_url, auth_mode, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.ID, user.Name, user.Email,
		user.PasswordHash, user.OAuthID, user.AvatarURL,
		string(user.AuthMode), user.CreatedAt, user.UpdatedAt,
	))
}

// Update writes the mutable fields (name, email, password hash, avatar).
// auth_mode, oauth_id and created_at never change.
func (r *UserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	user.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users SET name = $1, email = $2, password_hash = $3, avatar_url = $4, updated_at = $5
		WHERE id = $6
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.Name, user.Email, user.PasswordHash, user.AvatarURL, user.UpdatedAt, id,
	))
}

// Delete removes the user and returns the deleted record.
func (r *UserRepository) Delete(ctx context.Context, id string) (*models.User, error) {
	query := `DELETE FROM users WHERE id = $1 RETURNING ` + userColumns
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}
