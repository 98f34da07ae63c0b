// Package sqlstore implements the persistence repositories on SQL databases
// through sqlx. SQLite (modernc.org/sqlite) and PostgreSQL (pgx) share the
// same queries; statements are written with ? placeholders and rebound for
// the active driver.
package sqlstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Dialect names a supported SQL database.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Config holds connection pool settings.
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// SQLiteDSN builds a modernc.org/sqlite DSN for a database file with foreign
// keys enabled, a busy timeout, WAL journaling, and write transactions that
// take the database lock on BEGIN.
func SQLiteDSN(path string) string {
	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "busy_timeout(5000)")
	params.Add("_pragma", "journal_mode(WAL)")
	params.Set("_txlock", "immediate")
	return "file:" + path + "?" + params.Encode()
}

// DB wraps a sqlx connection pool with error mapping and retry behaviour.
type DB struct {
	conn    *sqlx.DB
	dialect Dialect
	mapper  *ErrorMapper
	retry   *RetryHelper
	logger  *slog.Logger
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	dialect, driverName, err := resolveDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlstore: dsn is required for driver %s", dialect)
	}

	conn, err := sqlx.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s database: %w", dialect, err)
	}

	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	db := &DB{
		conn:    conn,
		dialect: dialect,
		mapper:  NewErrorMapper(),
		retry:   NewRetryHelper(DefaultRetryConfig()),
		logger:  logger.With("component", "sqlstore", "driver", string(dialect)),
	}

	if err := db.retry.WithRetry(ctx, func() error { return conn.PingContext(ctx) }); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("sqlstore: ping %s database: %w", dialect, err)
	}

	db.logger.InfoContext(ctx, "database connected",
		"max_open_conns", cfg.MaxOpenConns,
		"max_idle_conns", cfg.MaxIdleConns,
	)
	return db, nil
}

func resolveDriver(name string) (Dialect, string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sqlite", "sqlite3":
		return DialectSQLite, "sqlite", nil
	case "postgres", "postgresql", "pgx":
		return DialectPostgres, "pgx", nil
	default:
		return "", "", fmt.Errorf("sqlstore: unsupported driver %q", name)
	}
}

// Conn exposes the underlying sqlx pool.
func (d *DB) Conn() *sqlx.DB {
	return d.conn
}

// Dialect reports the active database dialect.
func (d *DB) Dialect() Dialect {
	return d.dialect
}

// Ping verifies the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return d.conn.PingContext(ctx)
}

// Close closes the connection pool.
func (d *DB) Close() error {
	if d.conn != nil {
		return d.conn.Close()
	}
	return nil
}

// TransactionFunc is executed inside a database transaction.
type TransactionFunc func(tx *sqlx.Tx) error

// WithTransaction executes fn within a transaction. If fn returns an error or
// panics the transaction is rolled back, otherwise it is committed. Attempts
// that fail because the database is busy are retried from the beginning.
func (d *DB) WithTransaction(ctx context.Context, fn TransactionFunc) error {
	return d.retry.WithRetry(ctx, func() error {
		return d.runTransaction(ctx, fn)
	})
}

func (d *DB) runTransaction(ctx context.Context, fn TransactionFunc) (err error) {
	tx, err := d.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				d.logger.ErrorContext(ctx, "rollback after panic failed", "error", rbErr)
			}
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const timestampLayout = time.RFC3339

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(column, value string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", column, err)
	}
	return t, nil
}
