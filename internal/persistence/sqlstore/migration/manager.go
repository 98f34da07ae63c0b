package migration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Manager orchestrates scanning, validation, and execution of migrations.
type Manager struct {
	source Source
	runner Runner
	logger *slog.Logger
}

// NewManager creates a Manager. A nil logger discards output.
func NewManager(source Source, runner Runner, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		source: source,
		runner: runner,
		logger: logger.With("component", "migration"),
	}
}

// Run applies every pending migration in version order. It stops at the first
// failure; migrations applied before it stay applied.
func (m *Manager) Run(ctx context.Context) error {
	started := time.Now()

	status, err := m.Status(ctx)
	if err != nil {
		return err
	}

	if status.PendingCount == 0 {
		m.logger.InfoContext(ctx, "schema up to date", "current_version", status.CurrentVersion)
		return nil
	}

	m.logger.InfoContext(ctx, "applying migrations",
		"current_version", status.CurrentVersion,
		"pending", status.PendingCount,
	)

	for i, migration := range status.PendingMigrations {
		logger := m.logger.With(
			"version", migration.Version,
			"description", migration.Description,
			"checksum", migration.Checksum,
		)

		elapsed, err := m.runner.Apply(ctx, migration)
		if err != nil {
			logger.ErrorContext(ctx, "migration failed", "error", err)
			return NewMigrationError(migration.Version, migration.FilePath,
				"execute migration", fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}

		logger.InfoContext(ctx, "migration applied",
			"position", i+1,
			"of", status.PendingCount,
			"duration_ms", elapsed.Milliseconds(),
		)
	}

	m.logger.InfoContext(ctx, "all migrations applied",
		"count", status.PendingCount,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return nil
}

// Status reports the applied and pending migrations. It fails when the
// available files have a gap, when an applied version has no file, or when an
// applied file changed since it was recorded.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	if err := m.runner.InitializeVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize version table: %w", err)
	}

	available, err := m.source.Scan()
	if err != nil {
		return nil, fmt.Errorf("failed to scan migrations: %w", err)
	}

	applied, err := m.runner.AppliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	if err := validateSequence(available, applied); err != nil {
		return nil, fmt.Errorf("migration sequence validation failed: %w", err)
	}

	appliedByVersion := make(map[string]AppliedMigration, len(applied))
	for _, a := range applied {
		appliedByVersion[a.Version] = a
	}

	status := &Status{AppliedMigrations: applied}
	currentNumber := -1
	for _, migration := range available {
		record, ok := appliedByVersion[migration.Version]
		if !ok {
			status.PendingMigrations = append(status.PendingMigrations, migration)
			continue
		}
		if record.Checksum != "" && record.Checksum != migration.Checksum {
			return nil, NewMigrationError(migration.Version, migration.FilePath, "verify checksum",
				fmt.Errorf("%w: recorded %s, file %s", ErrChecksumMismatch, record.Checksum, migration.Checksum))
		}
		if n := versionNumber(migration.Version); n > currentNumber {
			currentNumber = n
			status.CurrentVersion = migration.Version
		}
	}
	status.PendingCount = len(status.PendingMigrations)

	return status, nil
}

func validateSequence(available []Migration, applied []AppliedMigration) error {
	if len(available) > 0 {
		present := make(map[int]bool, len(available))
		for _, migration := range available {
			present[versionNumber(migration.Version)] = true
		}
		minVersion := versionNumber(available[0].Version)
		maxVersion := versionNumber(available[len(available)-1].Version)
		for version := minVersion; version <= maxVersion; version++ {
			if !present[version] {
				return fmt.Errorf("%w: missing migration version %03d in sequence", ErrVersionConflict, version)
			}
		}
	}

	files := make(map[string]bool, len(available))
	for _, migration := range available {
		files[migration.Version] = true
	}
	for _, a := range applied {
		if !files[a.Version] {
			return fmt.Errorf("%w: applied migration %s not found in available migrations", ErrVersionConflict, a.Version)
		}
	}
	return nil
}
