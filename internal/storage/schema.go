package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema version tracking
const currentSchemaVersion = 2

// migration upgrades the schema from version-1 to version.
type migration struct {
	version int
	apply   func(tx *sql.Tx) error
}

// migrations run in order; each one runs in its own transaction.
var migrations = []migration{
	{version: 1, apply: createBaseTables},
	{version: 2, apply: createCacheEvictionIndexes},
}

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	if err := db.migrate(0); err != nil {
		return err
	}
	db.logger.Info("Database schema initialized", "version", currentSchemaVersion)
	return nil
}

// runMigrations runs any pending schema migrations
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		db.logger.Debug("Database schema is up to date", "version", version)
		return nil
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	db.logger.Info("Running database migrations",
		"from_version", version,
		"to_version", currentSchemaVersion,
	)
	return db.migrate(version)
}

func (db *DB) migrate(from int) error {
	for _, m := range migrations {
		if m.version <= from {
			continue
		}
		err := db.WithTx(context.Background(), func(tx *sql.Tx) error {
			if err := createSchemaVersionTable(tx); err != nil {
				return err
			}
			if err := m.apply(tx); err != nil {
				return fmt.Errorf("migration to v%d: %w", m.version, err)
			}
			return setSchemaVersion(tx, m.version)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// getSchemaVersion gets the current schema version
func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.conn.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		// Table doesn't exist, this is a new database
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.conn.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setSchemaVersion sets the schema version
func setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("DELETE FROM schema_version")
	if err != nil {
		return err
	}
	_, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

// createSchemaVersionTable creates the schema_version tracking table
func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

func createBaseTables(tx *sql.Tx) error {
	for _, create := range []func(*sql.Tx) error{
		createTrackedRepositoriesTable,
		createAnalysisCacheTable,
		createCacheRollupTable,
	} {
		if err := create(tx); err != nil {
			return err
		}
	}
	return nil
}

// createTrackedRepositoriesTable creates the registry of scanned repositories.
// Timestamps are RFC3339 text; NULL last_scan_check means "due now".
func createTrackedRepositoriesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS tracked_repositories (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			path TEXT NOT NULL UNIQUE,
			auto_scan_enabled INTEGER NOT NULL DEFAULT 0,
			active INTEGER NOT NULL DEFAULT 1,
			scan_interval_minutes INTEGER NOT NULL,
			last_scan_check TEXT,
			last_analyzed TEXT,
			last_commit_hash TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`CREATE INDEX IF NOT EXISTS idx_tracked_repositories_schedulable ON tracked_repositories(auto_scan_enabled, active)`)
	return err
}

// createAnalysisCacheTable creates the content-addressed result cache.
// Timestamps are unix nanoseconds so LRU ordering survives bursts of writes
// within the same second.
func createAnalysisCacheTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS analysis_cache (
			cache_key TEXT PRIMARY KEY,
			content_hash TEXT NOT NULL,
			analyzer_identity TEXT NOT NULL,
			prompt_hash TEXT NOT NULL,
			schema_version INTEGER NOT NULL,
			analysis_type TEXT NOT NULL,
			codec TEXT NOT NULL,
			payload BLOB NOT NULL,
			compressed_size INTEGER NOT NULL,
			uncompressed_size INTEGER NOT NULL,
			cost_hint INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			last_accessed_at INTEGER NOT NULL,
			access_count INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`CREATE INDEX IF NOT EXISTS idx_analysis_cache_type ON analysis_cache(analysis_type)`)
	return err
}

// createCacheRollupTable creates the running aggregates behind cache stats.
// dimension is "total" (value ''), "type" or "analyzer".
func createCacheRollupTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS cache_rollup (
			dimension TEXT NOT NULL,
			value TEXT NOT NULL,
			entries INTEGER NOT NULL DEFAULT 0,
			cost_sum INTEGER NOT NULL DEFAULT 0,
			compressed_bytes INTEGER NOT NULL DEFAULT 0,
			uncompressed_bytes INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (dimension, value)
		)
	`)
	return err
}

// createCacheEvictionIndexes backs each eviction policy's ORDER BY.
func createCacheEvictionIndexes(tx *sql.Tx) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_analysis_cache_accessed ON analysis_cache(last_accessed_at, cache_key)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_cache_created ON analysis_cache(created_at, cache_key)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_cache_size ON analysis_cache(compressed_size DESC, cache_key)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_cache_cost ON analysis_cache(cost_hint DESC, cache_key)`,
	}
	for _, stmt := range indexes {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
