package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Config{Driver: "sqlite", DSN: SQLiteDSN(filepath.Join(t.TempDir(), "test.db"))}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLiteDSN(t *testing.T) {
	dsn := SQLiteDSN("/tmp/scheduler.db")
	assert.True(t, strings.HasPrefix(dsn, "file:/tmp/scheduler.db?"))
	assert.Contains(t, dsn, "foreign_keys%281%29")
	assert.Contains(t, dsn, "_txlock=immediate")
}

func TestResolveDriver(t *testing.T) {
	for _, name := range []string{"", "sqlite", "SQLite3"} {
		dialect, driver, err := resolveDriver(name)
		require.NoError(t, err)
		assert.Equal(t, DialectSQLite, dialect)
		assert.Equal(t, "sqlite", driver)
	}

	dialect, driver, err := resolveDriver("postgresql")
	require.NoError(t, err)
	assert.Equal(t, DialectPostgres, dialect)
	assert.Equal(t, "pgx", driver)

	_, _, err = resolveDriver("mysql")
	assert.Error(t, err)
}

func TestOpen_RequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "postgres"}, nil)
	assert.ErrorContains(t, err, "dsn is required")
}

func TestDB_WithTransaction(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, err := db.Conn().ExecContext(ctx, `CREATE TABLE items (id TEXT PRIMARY KEY)`)
	require.NoError(t, err)

	count := func() int {
		var n int
		require.NoError(t, db.Conn().GetContext(ctx, &n, `SELECT COUNT(*) FROM items`))
		return n
	}

	err = db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO items (id) VALUES ('a')`)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count())

	sentinel := errors.New("abort")
	err = db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO items (id) VALUES ('b')`); err != nil {
			return err
		}
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, count())

	assert.Panics(t, func() {
		_ = db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
			_, _ = tx.ExecContext(ctx, `INSERT INTO items (id) VALUES ('c')`)
			panic("boom")
		})
	})
	assert.Equal(t, 1, count())
}

func TestStore_MigrateIsIdempotent(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	before, err := store.MigrationStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, before.PendingCount)

	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx))

	after, err := store.MigrationStatus(ctx)
	require.NoError(t, err)
	assert.Zero(t, after.PendingCount)
	assert.Len(t, after.AppliedMigrations, 3)
	assert.Equal(t, "003", after.CurrentVersion)

	for _, table := range []string{"classrooms", "teachers", "subjects", "class_schedule", "teacher_attendance"} {
		var name string
		err := store.DB.Conn().GetContext(ctx, &name, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
		require.NoError(t, err, table)
	}
}

func TestBookingTx_LockResourcesIsNoopOnSQLite(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx))

	tx, err := store.DB.Conn().BeginTxx(ctx, nil)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	btx := &bookingTx{db: store.DB, tx: tx}
	assert.NoError(t, btx.LockResources(ctx, "teacher:t1:monday", "teacher:t1:monday"))
}
