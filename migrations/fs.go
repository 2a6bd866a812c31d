// Package migrations embeds the SQL schema of the Postgres session backend.
package migrations

import "embed"

// FS holds goose migrations.
//
//go:embed *.sql
var FS embed.FS
