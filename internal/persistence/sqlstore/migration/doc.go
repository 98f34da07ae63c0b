// Package migration applies versioned SQL schema changes.
//
// Migration files are read from an fs.FS (usually an embed.FS) and must be
// named {version}_{description}.sql, for example "001_catalogs.sql". An
// optional "-- Description:" comment on the first lines overrides the
// description derived from the file name.
//
// Each migration runs in its own transaction together with the
// schema_migrations row that records it, so a failed migration leaves no
// trace. Applied migrations are fingerprinted with SHA-256; editing a file
// after it was applied makes Run and Status fail with ErrChecksumMismatch.
//
// Example usage:
//
//	manager := migration.NewManager(migration.NewScanner(schemaFS, "schema"), migration.NewExecutor(db), logger)
//	if err := manager.Run(ctx); err != nil {
//		return fmt.Errorf("migrate: %w", err)
//	}
package migration
