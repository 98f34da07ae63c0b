package migration

import (
	"context"
	"time"
)

// Migration is a versioned SQL script.
type Migration struct {
	Version     string
	Description string
	SQL         string
	FilePath    string
	Checksum    string
}

// AppliedMigration is a row of the schema_migrations table.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

// Status summarises the migration state of a database.
type Status struct {
	CurrentVersion    string
	PendingCount      int
	AppliedMigrations []AppliedMigration
	PendingMigrations []Migration
}

// Source lists the migrations available to apply.
type Source interface {
	Scan() ([]Migration, error)
}

// Runner applies migrations and records them in schema_migrations.
type Runner interface {
	InitializeVersionTable(ctx context.Context) error
	// Apply executes the migration and records it in one transaction.
	Apply(ctx context.Context, migration Migration) (time.Duration, error)
	AppliedMigrations(ctx context.Context) ([]AppliedMigration, error)
}
