// Package storage keeps the user-level catalog of analyzed repositories
// and their runs in SQLite.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"codeatlas/internal/logging"
)

// Catalog is the per-user bookkeeping database. One catalog serves every
// repository the user analyzes.
type Catalog struct {
	conn   *sql.DB
	logger *logging.Logger
	dbPath string
}

// Open opens or creates the catalog at ~/.codeatlas/catalog.db.
func Open(logger *logging.Logger) (*Catalog, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}
	return OpenAt(filepath.Join(home, ".codeatlas", "catalog.db"), logger)
}

// OpenAt opens or creates a catalog at an explicit path.
func OpenAt(dbPath string, logger *logging.Logger) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}

	dbExists := fileExists(dbPath)

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	c := &Catalog{conn: conn, logger: logger, dbPath: dbPath}

	if !dbExists {
		c.logger.Info("Creating catalog database", map[string]interface{}{
			"path": dbPath,
		})
		if err := c.initializeSchema(); err != nil {
			conn.Close()
			return nil, fmt.Errorf("initializing catalog schema: %w", err)
		}
	} else {
		if err := c.runMigrations(); err != nil {
			conn.Close()
			return nil, fmt.Errorf("migrating catalog schema: %w", err)
		}
	}

	return c, nil
}

// Close closes the catalog connection.
func (c *Catalog) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Path returns the catalog file location.
func (c *Catalog) Path() string {
	return c.dbPath
}

// WithTx runs fn inside a transaction, rolling back on error or panic.
func (c *Catalog) WithTx(fn func(*sql.Tx) error) error {
	tx, err := c.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			c.logger.Error("transaction rollback failed", map[string]interface{}{
				"error":          err.Error(),
				"rollback_error": rbErr.Error(),
			})
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
