// Package migrations registers the schema migrations of the affiliate store.
package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds every registered migration.
var Migrations = migrate.NewMigrations() //nolint:gochecknoglobals // -
