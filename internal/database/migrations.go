package database

import "embed"

// MigrationsFS holds the schema migrations, applied with pkg/migration.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS

// MigrationsPath is the directory of MigrationsFS containing the SQL files.
const MigrationsPath = "migrations"
