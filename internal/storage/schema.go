package storage

import (
	"database/sql"
	"fmt"
)

// Schema version tracking
const currentSchemaVersion = 3

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}
		if err := createRunsTables(tx); err != nil {
			return err
		}
		if err := createParseCacheTable(tx); err != nil {
			return err
		}
		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("Database schema initialized", "version", currentSchemaVersion)
		return nil
	})
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

	return db.WithTx(func(tx *sql.Tx) error {
		if version < 1 {
			if err := createSchemaVersionTable(tx); err != nil {
				return err
			}
			if err := createRunsTables(tx); err != nil {
				return err
			}
		}
		// v2 adds the parse cache; v3 keys it by extractor as well, and
		// entries of older extractors are dropped
		if version < 3 {
			if _, err := tx.Exec("DROP TABLE IF EXISTS parse_cache"); err != nil {
				return fmt.Errorf("failed to drop parse_cache table: %w", err)
			}
			if err := createParseCacheTable(tx); err != nil {
				return err
			}
		}
		return setSchemaVersion(tx, currentSchemaVersion)
	})
}

// getSchemaVersion gets the current schema version
func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
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

func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// createRunsTables creates the coverage history tables
func createRunsTables(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			root TEXT NOT NULL,
			created_at TEXT NOT NULL,
			files_scanned INTEGER NOT NULL,
			total_functions INTEGER NOT NULL,
			documented_count INTEGER NOT NULL,
			coverage_percent REAL NOT NULL,
			meets_threshold INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS run_files (
			run_id TEXT NOT NULL,
			file_path TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			total_functions INTEGER NOT NULL,
			documented_count INTEGER NOT NULL,
			coverage_percent REAL NOT NULL,
			PRIMARY KEY (run_id, file_path),
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		)
	`); err != nil {
		return fmt.Errorf("failed to create run_files table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_runs_root_created ON runs(root, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_run_files_path ON run_files(file_path)",
	}

	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create runs index: %w", err)
		}
	}

	return nil
}

func createParseCacheTable(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS parse_cache (
			file_path TEXT PRIMARY KEY,
			content_hash TEXT NOT NULL,
			extractor TEXT NOT NULL,
			report_json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create parse_cache table: %w", err)
	}
	return nil
}
