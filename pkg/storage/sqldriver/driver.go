// Package sqldriver implements storage.Driver over database/sql.
//
// Entities are stored as JSON documents with a small set of mirrored columns
// (space, lineage head markers, record version, parent id) so the atomic
// primitives can be expressed as guarded UPDATEs: the WHERE clause re-checks
// the precondition the caller read, and zero rows affected means a concurrent
// writer won, reported as CONFLICT. Filtering beyond the space column reuses
// the shared storage filters on the decoded documents, keeping SQL and
// in-memory backends behaviorally identical.
//
// The same implementation serves SQLite and Postgres; the dialect only
// decides placeholder style. Constructors live in pkg/storage/sqlite and
// pkg/storage/postgres.
package sqldriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SaintNick1214/cortex/pkg/storage"
)

// errNil guards the nil-entity programmer error shared by all Put methods.
var errNil = errors.New("cannot store nil entity")

// Dialect selects the SQL placeholder style.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// timeFormat is a fixed-width UTC layout so created_at columns sort
// lexicographically.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

// Driver implements storage.Driver over a *sql.DB.
type Driver struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps an open database handle and runs migrations.
func New(db *sql.DB, dialect Dialect) (*Driver, error) {
	d := &Driver{db: db, dialect: dialect}

	if err := d.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return d, nil
}

// migrate creates the necessary tables if they don't exist.
func (d *Driver) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS facts (
		id TEXT PRIMARY KEY,
		space TEXT NOT NULL,
		superseded_by TEXT,
		valid_until TEXT,
		doc TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_facts_space ON facts(space);

	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		space TEXT NOT NULL,
		version INTEGER NOT NULL,
		doc TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_records_space ON records(space);

	CREATE TABLE IF NOT EXISTS contexts (
		id TEXT PRIMARY KEY,
		space TEXT NOT NULL,
		parent_id TEXT,
		doc TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_contexts_space ON contexts(space);
	CREATE INDEX IF NOT EXISTS idx_contexts_parent ON contexts(parent_id);

	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		space TEXT NOT NULL,
		doc TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_space ON conversations(space);
	`

	_, err := d.db.Exec(schema)
	return err
}

// rebind converts ? placeholders to the dialect's style.
func (d *Driver) rebind(query string) string {
	if d.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Spaces returns the distinct memory space ids across all entity sets.
func (d *Driver) Spaces(ctx context.Context) ([]string, error) {
	query := `
		SELECT space FROM facts
		UNION SELECT space FROM records
		UNION SELECT space FROM contexts
		UNION SELECT space FROM conversations
		ORDER BY space
	`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query spaces: %w", err)
	}
	defer rows.Close()

	var spaces []string
	for rows.Next() {
		var space string
		if err := rows.Scan(&space); err != nil {
			return nil, fmt.Errorf("failed to scan space: %w", err)
		}
		spaces = append(spaces, space)
	}

	return spaces, rows.Err()
}

// Close closes the database connection.
func (d *Driver) Close() error {
	return d.db.Close()
}

// withTx runs fn inside a transaction, committing on nil error.
func (d *Driver) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// Ensure Driver implements storage.Driver.
var _ storage.Driver = (*Driver)(nil)
