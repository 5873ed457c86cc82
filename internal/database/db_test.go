package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kadirbarquet/usuarios-api/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestMapPostgresError(t *testing.T) {
	plain := errors.New("connection reset")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "nil", err: nil, want: nil},
		{name: "no rows", err: pgx.ErrNoRows, want: models.ErrNotFound},
		{name: "wrapped no rows", err: fmt.Errorf("scan: %w", pgx.ErrNoRows), want: models.ErrNotFound},
		{name: "duplicate email", err: &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, want: models.ErrDuplicateEmail},
		{name: "duplicate oauth id", err: &pgconn.PgError{Code: "23505", ConstraintName: "users_oauth_id_key"}, want: models.ErrConflict},
		{name: "not null", err: &pgconn.PgError{Code: "23502"}, want: models.ErrBadRequest},
		{name: "check", err: &pgconn.PgError{Code: "23514"}, want: models.ErrValidation},
		{name: "passthrough", err: plain, want: plain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapPostgresError(tt.err)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}
