// Package database embeds the goose migrations for the console schema.
package database

import "embed"

// Migrations holds the versioned SQL files applied by persistence.Migrate.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations that goose reads.
const MigrationsDir = "migrations"
