// Package migrations contains the embedded goose SQL migrations for Postgres.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
