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

func encodeConversation(conv *memory.Conversation) (string, error) {
	doc, err := json.Marshal(conv)
	if err != nil {
		return "", fmt.Errorf("failed to marshal conversation: %w", err)
	}
	return string(doc), nil
}

func decodeConversation(doc string) (*memory.Conversation, error) {
	var conv memory.Conversation
	if err := json.Unmarshal([]byte(doc), &conv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation: %w", err)
	}
	return &conv, nil
}

// PutConversation inserts a new conversation.
func (d *Driver) PutConversation(ctx context.Context, conv *memory.Conversation) error {
	if conv == nil {
		return errNil
	}

	doc, err := encodeConversation(conv)
	if err != nil {
		return err
	}

	return d.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			d.rebind(`SELECT 1 FROM conversations WHERE id = ?`), conv.ConversationID,
		).Scan(&exists)
		if err == nil {
			return memory.Validationf("conversation %s already exists", conv.ConversationID)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check conversation existence: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			d.rebind(`INSERT INTO conversations (id, space, doc, created_at) VALUES (?, ?, ?, ?)`),
			conv.ConversationID, conv.MemorySpaceID,
			doc, formatTime(conv.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert conversation: %w", err)
		}
		return nil
	})
}

// GetConversation retrieves a conversation by id.
func (d *Driver) GetConversation(ctx context.Context, id string) (*memory.Conversation, error) {
	var doc string
	err := d.db.QueryRowContext(ctx,
		d.rebind(`SELECT doc FROM conversations WHERE id = ?`), id,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, memory.NotFound(memory.KindConversation, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan conversation: %w", err)
	}

	return decodeConversation(doc)
}

// AppendMessage appends a message to the conversation's ordered list. The
// read-modify-write runs inside one transaction so concurrent appends both
// land.
func (d *Driver) AppendMessage(ctx context.Context, conversationID string, msg memory.Message) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		var doc string
		err := tx.QueryRowContext(ctx,
			d.rebind(`SELECT doc FROM conversations WHERE id = ?`), conversationID,
		).Scan(&doc)
		if errors.Is(err, sql.ErrNoRows) {
			return memory.NotFound(memory.KindConversation, conversationID)
		}
		if err != nil {
			return fmt.Errorf("failed to scan conversation: %w", err)
		}

		conv, err := decodeConversation(doc)
		if err != nil {
			return err
		}

		conv.Messages = append(conv.Messages, msg)
		conv.UpdatedAt = msg.Timestamp

		updatedDoc, err := encodeConversation(conv)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			d.rebind(`UPDATE conversations SET doc = ? WHERE id = ?`),
			updatedDoc, conversationID,
		)
		if err != nil {
			return fmt.Errorf("failed to append message: %w", err)
		}
		return nil
	})
}

// DeleteConversation removes the conversation and its messages.
func (d *Driver) DeleteConversation(ctx context.Context, id string) (bool, error) {
	result, err := d.db.ExecContext(ctx,
		d.rebind(`DELETE FROM conversations WHERE id = ?`), id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete conversation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListConversations returns conversations matching the filter, oldest first.
func (d *Driver) ListConversations(ctx context.Context, filter storage.ConversationFilter) ([]*memory.Conversation, error) {
	matched, err := d.scanConversations(ctx, filter)
	if err != nil {
		return nil, err
	}
	return storage.Page(matched, filter.Limit, filter.Offset), nil
}

// CountConversations returns the number of conversations matching the filter.
func (d *Driver) CountConversations(ctx context.Context, filter storage.ConversationFilter) (int, error) {
	matched, err := d.scanConversations(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

func (d *Driver) scanConversations(ctx context.Context, filter storage.ConversationFilter) ([]*memory.Conversation, error) {
	query := `SELECT doc FROM conversations ORDER BY created_at, id`
	var args []any
	if filter.MemorySpaceID != "" {
		query = d.rebind(`SELECT doc FROM conversations WHERE space = ? ORDER BY created_at, id`)
		args = append(args, filter.MemorySpaceID)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var matched []*memory.Conversation
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conv, err := decodeConversation(doc)
		if err != nil {
			return nil, err
		}
		if filter.Matches(conv) {
			matched = append(matched, conv)
		}
	}

	return matched, rows.Err()
}
