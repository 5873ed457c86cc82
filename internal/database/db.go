package database

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kadirbarquet/usuarios-api/internal/models"
)

// constraintUsersEmail is the unique index on users.email. Any other unique
// violation (users_oauth_id_key included) maps to ErrConflict.
const constraintUsersEmail = "users_email_key"

func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if pgErr.ConstraintName == constraintUsersEmail {
				return models.ErrDuplicateEmail
			}
			return models.ErrConflict
		case "23503": // foreign_key_violation
			return models.ErrBadRequest
		case "23502": // not_null_violation
			return models.ErrBadRequest
		case "23514": // check_violation
			return models.ErrValidation
		}
	}

	return err
}
