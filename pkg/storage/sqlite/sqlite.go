// Package sqlite provides a SQLite-backed storage driver.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // register the pure-Go SQLite driver as "sqlite"

	"github.com/SaintNick1214/cortex/pkg/storage/sqldriver"
)

// Driver implements storage.Driver using SQLite via the shared SQL driver.
type Driver struct {
	*sqldriver.Driver
}

// NewDriver creates a new SQLite-backed driver.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewDriver(dbPath string) (*Driver, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite-specific pragmas
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	inner, err := sqldriver.New(db, sqldriver.DialectSQLite)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Driver{Driver: inner}, nil
}
