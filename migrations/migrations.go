package migrations

import "embed"

// FS holds the versioned schema applied by database.Migrate.
//
//go:embed *.sql
var FS embed.FS
