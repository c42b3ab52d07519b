package storage

import (
	"database/sql"
	"fmt"
)

const currentSchemaVersion = 1

// initializeSchema creates all tables for a new catalog.
func (c *Catalog) initializeSchema() error {
	return c.WithTx(func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}
		if err := createRepositoriesTable(tx); err != nil {
			return err
		}
		if err := createRunsTable(tx); err != nil {
			return err
		}
		return setSchemaVersion(tx, currentSchemaVersion)
	})
}

// runMigrations brings an existing catalog up to the current schema.
func (c *Catalog) runMigrations() error {
	version, err := c.getSchemaVersion()
	if err != nil {
		return err
	}
	if version == currentSchemaVersion {
		return nil
	}

	c.logger.Info("Migrating catalog schema", map[string]interface{}{
		"from_version": version,
		"to_version":   currentSchemaVersion,
	})

	// Migrations run sequentially as the schema evolves; none exist yet
	// beyond version 1, so an older file is rebuilt from scratch.
	if version < 1 {
		return c.initializeSchema()
	}
	return nil
}

func (c *Catalog) getSchemaVersion() (int, error) {
	var tableName string
	err := c.conn.QueryRow(`
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
	err = c.conn.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return version, nil
}

func setSchemaVersion(tx *sql.Tx, version int) error {
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
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

func createRepositoriesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS repositories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			root TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			remote_url TEXT NOT NULL DEFAULT '',
			branch TEXT NOT NULL DEFAULT '',
			last_run_id TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return fmt.Errorf("creating repositories table: %w", err)
	}
	return nil
}

func createRunsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			repository_id INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			files INTEGER NOT NULL,
			classes INTEGER NOT NULL,
			functions INTEGER NOT NULL,
			chunks INTEGER NOT NULL,
			nodes INTEGER NOT NULL,
			edges INTEGER NOT NULL,

			FOREIGN KEY (repository_id) REFERENCES repositories(id) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return fmt.Errorf("creating runs table: %w", err)
	}

	if _, err := tx.Exec(
		"CREATE INDEX IF NOT EXISTS idx_runs_repository_id ON runs(repository_id)",
	); err != nil {
		return fmt.Errorf("creating runs index: %w", err)
	}
	return nil
}
