// Package migrations holds the schema of the per-session history database.
// Files are applied in name order; only *.up.sql files are run.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
