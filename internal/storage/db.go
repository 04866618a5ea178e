package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"repowatch/internal/errors"
	"repowatch/internal/paths"
)

// DB represents a database connection with transaction helpers
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
	dbPath string
}

// pragmas are applied to every pooled connection through the DSN, not
// once on whichever connection happens to run an Exec.
var pragmas = []string{
	"busy_timeout(5000)",  // Wait up to 5 seconds on lock
	"journal_mode(WAL)",   // Readers don't block the writer
	"synchronous(NORMAL)", // Balance between safety and performance
	"foreign_keys(ON)",    // Enable foreign key constraints
	"temp_store(MEMORY)",  // Use memory for temp tables
	"cache_size(-32000)",  // 32MB page cache per connection
}

// Open opens or creates the repowatch database at <dataDir>/repowatch.db.
// A new database gets the full schema; an existing one is migrated.
func Open(dataDir string, logger *slog.Logger) (*DB, error) {
	if _, err := paths.EnsureDataDir(dataDir); err != nil {
		return nil, errors.New(errors.StoreUnavailable, "cannot create data directory", err)
	}

	dbPath := paths.DatabasePath(dataDir)
	dbExists := fileExists(dbPath)

	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, errors.New(errors.StoreUnavailable, "failed to open database", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, errors.New(errors.StoreUnavailable, "failed to open database", err)
	}

	db := &DB{
		conn:   conn,
		logger: logger,
		dbPath: dbPath,
	}

	if !dbExists {
		logger.Info("Creating new database", "path", dbPath)
		if err := db.initializeSchema(); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	} else {
		logger.Debug("Running database migrations", "path", dbPath)
		if err := db.runMigrations(); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return db, nil
}

// dsn builds the modernc DSN. _txlock=immediate makes every BeginTx take the
// write lock up front, so two writers never deadlock upgrading a read lock.
func dsn(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Conn returns the underlying sql.DB connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.dbPath
}

// WithTx executes a function within a transaction
// If the function returns an error, the transaction is rolled back
// Otherwise, the transaction is committed
func (db *DB) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p) // Re-throw panic after rollback
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("failed to rollback transaction",
				"error", err.Error(),
				"rollback_error", rbErr.Error(),
			)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ExecContext executes a query without returning rows
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return db.conn.ExecContext(ctx, query, args...)
}

// QueryContext executes a query that returns rows
func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return db.conn.QueryContext(ctx, query, args...)
}

// QueryRowContext executes a query that returns at most one row
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRowContext(ctx, query, args...)
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
