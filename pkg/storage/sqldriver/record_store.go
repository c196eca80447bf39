package sqldriver

import (
	"context"
	"database/sql"
	"encoding/json/v2"
	"errors"
	"fmt"

	"github.com/SaintNick1214/cortex/pkg/memory"
	"github.com/SaintNick1214/cortex/pkg/storage"
)

func encodeRecord(record *memory.ContentRecord) (string, error) {
	doc, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to marshal memory: %w", err)
	}
	return string(doc), nil
}

func decodeRecord(doc string) (*memory.ContentRecord, error) {
	var record memory.ContentRecord
	if err := json.Unmarshal([]byte(doc), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal memory: %w", err)
	}
	return &record, nil
}

// PutRecord inserts a new content record.
func (d *Driver) PutRecord(ctx context.Context, record *memory.ContentRecord) error {
	if record == nil {
		return errNil
	}

	doc, err := encodeRecord(record)
	if err != nil {
		return err
	}

	return d.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			d.rebind(`SELECT 1 FROM records WHERE id = ?`), record.ID,
		).Scan(&exists)
		if err == nil {
			return memory.Validationf("memory %s already exists", record.ID)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check memory existence: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			d.rebind(`INSERT INTO records (id, space, version, doc, created_at) VALUES (?, ?, ?, ?, ?)`),
			record.ID, record.MemorySpaceID, record.Version,
			doc, formatTime(record.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert memory: %w", err)
		}
		return nil
	})
}

// GetRecord retrieves a content record by id.
func (d *Driver) GetRecord(ctx context.Context, id string) (*memory.ContentRecord, error) {
	var doc string
	err := d.db.QueryRowContext(ctx,
		d.rebind(`SELECT doc FROM records WHERE id = ?`), id,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, memory.NotFound(memory.KindRecord, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan memory: %w", err)
	}

	return decodeRecord(doc)
}

// UpdateRecord replaces the record in place, guarded by expectedVersion. The
// version column mirrors the document so the guard is a single UPDATE: zero
// rows affected means a concurrent writer bumped the version first.
func (d *Driver) UpdateRecord(ctx context.Context, record *memory.ContentRecord, expectedVersion int) error {
	if record == nil {
		return errNil
	}

	doc, err := encodeRecord(record)
	if err != nil {
		return err
	}

	return d.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			d.rebind(`SELECT 1 FROM records WHERE id = ?`), record.ID,
		).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return memory.NotFound(memory.KindRecord, record.ID)
		}
		if err != nil {
			return fmt.Errorf("failed to check memory existence: %w", err)
		}

		result, err := tx.ExecContext(ctx,
			d.rebind(`UPDATE records SET doc = ?, version = ? WHERE id = ? AND version = ?`),
			doc, record.Version, record.ID, expectedVersion,
		)
		if err != nil {
			return fmt.Errorf("failed to update memory: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}
		if affected == 0 {
			return memory.NewError(memory.CodeConflict,
				"memory "+record.ID+" was modified concurrently")
		}
		return nil
	})
}

// DeleteRecord removes the record. Returns false when the id does not exist.
func (d *Driver) DeleteRecord(ctx context.Context, id string) (bool, error) {
	result, err := d.db.ExecContext(ctx,
		d.rebind(`DELETE FROM records WHERE id = ?`), id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete memory: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListRecords returns records matching the filter, oldest first.
func (d *Driver) ListRecords(ctx context.Context, filter storage.RecordFilter) ([]*memory.ContentRecord, error) {
	matched, err := d.scanRecords(ctx, filter)
	if err != nil {
		return nil, err
	}
	return storage.Page(matched, filter.Limit, filter.Offset), nil
}

// CountRecords returns the number of records matching the filter.
func (d *Driver) CountRecords(ctx context.Context, filter storage.RecordFilter) (int, error) {
	matched, err := d.scanRecords(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

func (d *Driver) scanRecords(ctx context.Context, filter storage.RecordFilter) ([]*memory.ContentRecord, error) {
	query := `SELECT doc FROM records ORDER BY created_at, id`
	var args []any
	if filter.MemorySpaceID != "" {
		query = d.rebind(`SELECT doc FROM records WHERE space = ? ORDER BY created_at, id`)
		args = append(args, filter.MemorySpaceID)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var matched []*memory.ContentRecord
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		record, err := decodeRecord(doc)
		if err != nil {
			return nil, err
		}
		if filter.Matches(record) {
			matched = append(matched, record)
		}
	}

	return matched, rows.Err()
}
