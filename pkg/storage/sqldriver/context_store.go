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

func encodeContext(node *memory.Context) (string, error) {
	doc, err := json.Marshal(node)
	if err != nil {
		return "", fmt.Errorf("failed to marshal context: %w", err)
	}
	return string(doc), nil
}

func decodeContext(doc string) (*memory.Context, error) {
	var node memory.Context
	if err := json.Unmarshal([]byte(doc), &node); err != nil {
		return nil, fmt.Errorf("failed to unmarshal context: %w", err)
	}
	return &node, nil
}

func (d *Driver) getContextTx(ctx context.Context, tx *sql.Tx, id string) (*memory.Context, error) {
	var doc string
	err := tx.QueryRowContext(ctx,
		d.rebind(`SELECT doc FROM contexts WHERE id = ?`), id,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, memory.NotFound(memory.KindContext, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan context: %w", err)
	}
	return decodeContext(doc)
}

func (d *Driver) updateContextTx(ctx context.Context, tx *sql.Tx, node *memory.Context) error {
	doc, err := encodeContext(node)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		d.rebind(`UPDATE contexts SET doc = ?, parent_id = ? WHERE id = ?`),
		doc, nullableString(node.ParentID), node.ContextID,
	)
	if err != nil {
		return fmt.Errorf("failed to update context: %w", err)
	}
	return nil
}

// PutContext inserts a context node and links it to its parent in the same
// transaction, so both sides of the bidirectional link land together.
func (d *Driver) PutContext(ctx context.Context, node *memory.Context) error {
	if node == nil {
		return errNil
	}

	doc, err := encodeContext(node)
	if err != nil {
		return err
	}

	return d.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			d.rebind(`SELECT 1 FROM contexts WHERE id = ?`), node.ContextID,
		).Scan(&exists)
		if err == nil {
			return memory.Validationf("context %s already exists", node.ContextID)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check context existence: %w", err)
		}

		var parent *memory.Context
		if node.ParentID != nil {
			parent, err = d.getContextTx(ctx, tx, *node.ParentID)
			if err != nil {
				if memory.IsCode(err, memory.CodeContextNotFound) {
					return memory.NewError(memory.CodeParentNotFound,
						"parent context "+*node.ParentID+" not found")
				}
				return err
			}
		}

		_, err = tx.ExecContext(ctx,
			d.rebind(`INSERT INTO contexts (id, space, parent_id, doc, created_at) VALUES (?, ?, ?, ?, ?)`),
			node.ContextID, node.MemorySpaceID, nullableString(node.ParentID),
			doc, formatTime(node.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert context: %w", err)
		}

		if parent != nil && !parent.HasChild(node.ContextID) {
			parent.ChildIDs = append(parent.ChildIDs, node.ContextID)
			parent.UpdatedAt = node.CreatedAt
			if err := d.updateContextTx(ctx, tx, parent); err != nil {
				return err
			}
		}

		return nil
	})
}

// GetContext retrieves a context node by id.
func (d *Driver) GetContext(ctx context.Context, id string) (*memory.Context, error) {
	var doc string
	err := d.db.QueryRowContext(ctx,
		d.rebind(`SELECT doc FROM contexts WHERE id = ?`), id,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, memory.NotFound(memory.KindContext, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan context: %w", err)
	}

	return decodeContext(doc)
}

// UpdateContext replaces the node in place.
func (d *Driver) UpdateContext(ctx context.Context, node *memory.Context) error {
	if node == nil {
		return errNil
	}

	return d.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := d.getContextTx(ctx, tx, node.ContextID); err != nil {
			return err
		}
		return d.updateContextTx(ctx, tx, node)
	})
}

// DeleteContext removes the node and detaches it from its parent's childIds
// in the same transaction.
func (d *Driver) DeleteContext(ctx context.Context, id string) (bool, error) {
	deleted := false
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		node, err := d.getContextTx(ctx, tx, id)
		if err != nil {
			if memory.IsCode(err, memory.CodeContextNotFound) {
				return nil
			}
			return err
		}

		if node.ParentID != nil {
			parent, err := d.getContextTx(ctx, tx, *node.ParentID)
			if err == nil {
				parent.ChildIDs = removeString(parent.ChildIDs, id)
				if err := d.updateContextTx(ctx, tx, parent); err != nil {
					return err
				}
			} else if !memory.IsCode(err, memory.CodeContextNotFound) {
				return err
			}
		}

		_, err = tx.ExecContext(ctx,
			d.rebind(`DELETE FROM contexts WHERE id = ?`), id,
		)
		if err != nil {
			return fmt.Errorf("failed to delete context: %w", err)
		}

		deleted = true
		return nil
	})

	return deleted, err
}

// ListContexts returns context nodes matching the filter, oldest first.
func (d *Driver) ListContexts(ctx context.Context, filter storage.ContextFilter) ([]*memory.Context, error) {
	matched, err := d.scanContexts(ctx, filter)
	if err != nil {
		return nil, err
	}
	return storage.Page(matched, filter.Limit, filter.Offset), nil
}

// CountContexts returns the number of context nodes matching the filter.
func (d *Driver) CountContexts(ctx context.Context, filter storage.ContextFilter) (int, error) {
	matched, err := d.scanContexts(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

func (d *Driver) scanContexts(ctx context.Context, filter storage.ContextFilter) ([]*memory.Context, error) {
	query := `SELECT doc FROM contexts ORDER BY created_at, id`
	var args []any
	if filter.MemorySpaceID != "" {
		query = d.rebind(`SELECT doc FROM contexts WHERE space = ? ORDER BY created_at, id`)
		args = append(args, filter.MemorySpaceID)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query contexts: %w", err)
	}
	defer rows.Close()

	var matched []*memory.Context
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan context: %w", err)
		}
		node, err := decodeContext(doc)
		if err != nil {
			return nil, err
		}
		if filter.Matches(node) {
			matched = append(matched, node)
		}
	}

	return matched, rows.Err()
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
