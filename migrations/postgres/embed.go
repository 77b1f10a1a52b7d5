// Package migrations embeds SQL migration files.
package migrations

import "embed"

// FS contains the ordered schema migrations for the postgres store.
//
//go:embed sql/*.sql
var FS embed.FS

// Dir is the directory within FS where migrations live.
const Dir = "sql"
