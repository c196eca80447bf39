package sqldriver

import (
	"context"
	"database/sql"
	"encoding/json/v2"
	"errors"
	"fmt"
	"time"

	"github.com/SaintNick1214/cortex/pkg/memory"
	"github.com/SaintNick1214/cortex/pkg/storage"
)

func encodeFact(fact *memory.Fact) (string, error) {
	doc, err := json.Marshal(fact)
	if err != nil {
		return "", fmt.Errorf("failed to marshal fact: %w", err)
	}
	return string(doc), nil
}

func decodeFact(doc string) (*memory.Fact, error) {
	var fact memory.Fact
	if err := json.Unmarshal([]byte(doc), &fact); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fact: %w", err)
	}
	return &fact, nil
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// PutFact inserts a new fact row.
func (d *Driver) PutFact(ctx context.Context, fact *memory.Fact) error {
	if fact == nil {
		return errNil
	}

	doc, err := encodeFact(fact)
	if err != nil {
		return err
	}

	return d.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			d.rebind(`SELECT 1 FROM facts WHERE id = ?`), fact.FactID,
		).Scan(&exists)
		if err == nil {
			return memory.Validationf("fact %s already exists", fact.FactID)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check fact existence: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			d.rebind(`INSERT INTO facts (id, space, superseded_by, valid_until, doc, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
			fact.FactID, fact.MemorySpaceID,
			nullableString(fact.SupersededBy), nullableTime(fact.ValidUntil),
			doc, formatTime(fact.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert fact: %w", err)
		}
		return nil
	})
}

// GetFact retrieves a fact by id.
func (d *Driver) GetFact(ctx context.Context, id string) (*memory.Fact, error) {
	var doc string
	err := d.db.QueryRowContext(ctx,
		d.rebind(`SELECT doc FROM facts WHERE id = ?`), id,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, memory.NotFound(memory.KindFact, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan fact: %w", err)
	}

	return decodeFact(doc)
}

// ForkFact atomically inserts the successor and stamps the predecessor. The
// stamping UPDATE re-checks that the predecessor is still the lineage head;
// zero rows affected means a concurrent fork won and nothing is written.
func (d *Driver) ForkFact(ctx context.Context, predecessorID string, successor *memory.Fact, at time.Time) error {
	if successor == nil {
		return errNil
	}

	successorDoc, err := encodeFact(successor)
	if err != nil {
		return err
	}

	return d.withTx(ctx, func(tx *sql.Tx) error {
		var doc string
		err := tx.QueryRowContext(ctx,
			d.rebind(`SELECT doc FROM facts WHERE id = ?`), predecessorID,
		).Scan(&doc)
		if errors.Is(err, sql.ErrNoRows) {
			return memory.NotFound(memory.KindFact, predecessorID)
		}
		if err != nil {
			return fmt.Errorf("failed to scan fact: %w", err)
		}

		predecessor, err := decodeFact(doc)
		if err != nil {
			return err
		}
		if predecessor.SupersededBy != nil {
			return memory.NewError(memory.CodeConflict,
				"fact "+predecessorID+" is no longer the lineage head")
		}

		supersededBy := successor.FactID
		until := at
		predecessor.SupersededBy = &supersededBy
		predecessor.ValidUntil = &until
		predecessor.UpdatedAt = at

		updatedDoc, err := encodeFact(predecessor)
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			d.rebind(`UPDATE facts SET doc = ?, superseded_by = ?, valid_until = ? WHERE id = ? AND superseded_by IS NULL`),
			updatedDoc, supersededBy, formatTime(until), predecessorID,
		)
		if err != nil {
			return fmt.Errorf("failed to stamp predecessor: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}
		if affected == 0 {
			return memory.NewError(memory.CodeConflict,
				"fact "+predecessorID+" is no longer the lineage head")
		}

		_, err = tx.ExecContext(ctx,
			d.rebind(`INSERT INTO facts (id, space, superseded_by, valid_until, doc, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
			successor.FactID, successor.MemorySpaceID,
			nil, nullableTime(successor.ValidUntil),
			successorDoc, formatTime(successor.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert successor: %w", err)
		}
		return nil
	})
}

// MarkSuperseded stamps supersededBy and validUntil on a live head.
func (d *Driver) MarkSuperseded(ctx context.Context, id, supersededBy string, at time.Time) (bool, error) {
	marked := false
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		var doc string
		err := tx.QueryRowContext(ctx,
			d.rebind(`SELECT doc FROM facts WHERE id = ?`), id,
		).Scan(&doc)
		if errors.Is(err, sql.ErrNoRows) {
			return memory.NotFound(memory.KindFact, id)
		}
		if err != nil {
			return fmt.Errorf("failed to scan fact: %w", err)
		}

		fact, err := decodeFact(doc)
		if err != nil {
			return err
		}
		if fact.SupersededBy != nil || fact.ValidUntil != nil {
			return nil
		}

		by := supersededBy
		until := at
		fact.SupersededBy = &by
		fact.ValidUntil = &until
		fact.UpdatedAt = at

		updatedDoc, err := encodeFact(fact)
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			d.rebind(`UPDATE facts SET doc = ?, superseded_by = ?, valid_until = ? WHERE id = ? AND superseded_by IS NULL AND valid_until IS NULL`),
			updatedDoc, by, formatTime(until), id,
		)
		if err != nil {
			return fmt.Errorf("failed to mark fact: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}

		marked = affected > 0
		return nil
	})

	return marked, err
}

// SoftDeleteFact sets validUntil without creating a successor. A repeated
// soft delete never moves an already-set validUntil.
func (d *Driver) SoftDeleteFact(ctx context.Context, id string, at time.Time) (bool, error) {
	deleted := false
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		var doc string
		err := tx.QueryRowContext(ctx,
			d.rebind(`SELECT doc FROM facts WHERE id = ?`), id,
		).Scan(&doc)
		if errors.Is(err, sql.ErrNoRows) {
			return memory.NotFound(memory.KindFact, id)
		}
		if err != nil {
			return fmt.Errorf("failed to scan fact: %w", err)
		}

		fact, err := decodeFact(doc)
		if err != nil {
			return err
		}
		if fact.ValidUntil != nil {
			return nil
		}

		until := at
		fact.ValidUntil = &until
		fact.UpdatedAt = at

		updatedDoc, err := encodeFact(fact)
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			d.rebind(`UPDATE facts SET doc = ?, valid_until = ? WHERE id = ? AND valid_until IS NULL`),
			updatedDoc, formatTime(until), id,
		)
		if err != nil {
			return fmt.Errorf("failed to soft-delete fact: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}

		deleted = affected > 0
		return nil
	})

	return deleted, err
}

// UpdateFactEnrichment replaces the enrichment in place.
func (d *Driver) UpdateFactEnrichment(ctx context.Context, id string, enrichment memory.Enrichment) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		var doc string
		err := tx.QueryRowContext(ctx,
			d.rebind(`SELECT doc FROM facts WHERE id = ?`), id,
		).Scan(&doc)
		if errors.Is(err, sql.ErrNoRows) {
			return memory.NotFound(memory.KindFact, id)
		}
		if err != nil {
			return fmt.Errorf("failed to scan fact: %w", err)
		}

		fact, err := decodeFact(doc)
		if err != nil {
			return err
		}

		fact.Enrichment = enrichment
		fact.UpdatedAt = time.Now().UTC()

		updatedDoc, err := encodeFact(fact)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			d.rebind(`UPDATE facts SET doc = ? WHERE id = ?`), updatedDoc, id,
		)
		if err != nil {
			return fmt.Errorf("failed to update enrichment: %w", err)
		}
		return nil
	})
}

// ListFacts returns facts matching the filter, oldest first. The space
// column narrows the scan; the shared filter applies the rest on the decoded
// documents.
func (d *Driver) ListFacts(ctx context.Context, filter storage.FactFilter) ([]*memory.Fact, error) {
	matched, err := d.scanFacts(ctx, filter)
	if err != nil {
		return nil, err
	}
	return storage.Page(matched, filter.Limit, filter.Offset), nil
}

// CountFacts returns the number of facts matching the filter.
func (d *Driver) CountFacts(ctx context.Context, filter storage.FactFilter) (int, error) {
	matched, err := d.scanFacts(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

func (d *Driver) scanFacts(ctx context.Context, filter storage.FactFilter) ([]*memory.Fact, error) {
	query := `SELECT doc FROM facts ORDER BY created_at, id`
	var args []any
	if filter.MemorySpaceID != "" {
		query = d.rebind(`SELECT doc FROM facts WHERE space = ? ORDER BY created_at, id`)
		args = append(args, filter.MemorySpaceID)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query facts: %w", err)
	}
	defer rows.Close()

	var matched []*memory.Fact
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan fact: %w", err)
		}
		fact, err := decodeFact(doc)
		if err != nil {
			return nil, err
		}
		if filter.Matches(fact) {
			matched = append(matched, fact)
		}
	}

	return matched, rows.Err()
}
