package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/andresthedesigner/videodaddychat/internal/dbx"
)

const messageColumns = `id, chat_id, user_id, role, content, parts, attachments, message_group_id, model, created_at`

// jsonOrNull keeps optional JSON columns valid when nothing was supplied.
func jsonOrNull(j types.JSONText) types.JSONText {
	if len(j) == 0 {
		return types.JSONText("null")
	}
	return j
}

// AddMessages inserts msgs in order and bumps the chat's updated_at. A
// message without CreatedAt gets now plus its index so batch order is kept.
func (s *sqlStore) AddMessages(ctx context.Context, chatID string, msgs []*Message) error {
	if len(msgs) == 0 {
		return nil
	}
	now := s.nowMillis()
	return dbx.WithTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		last := now
		for i, m := range msgs {
			if m.ID == "" {
				m.ID = newID()
			}
			m.ChatID = chatID
			if m.CreatedAt == 0 {
				m.CreatedAt = now + int64(i)
			}
			m.Parts = jsonOrNull(m.Parts)
			m.Attachments = jsonOrNull(m.Attachments)
			if m.CreatedAt > last {
				last = m.CreatedAt
			}
			_, err := s.exec(ctx, tx, `INSERT INTO messages (`+messageColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				m.ID, m.ChatID, m.UserID, m.Role, m.Content, string(m.Parts), string(m.Attachments),
				m.MessageGroupID, m.Model, m.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert message: %w", err)
			}
		}
		if _, err := s.exec(ctx, tx, "UPDATE chats SET updated_at = ? WHERE id = ?", last, chatID); err != nil {
			return fmt.Errorf("failed to touch chat: %w", err)
		}
		return nil
	})
}

// ListMessages returns the chat transcript in creation order.
func (s *sqlStore) ListMessages(ctx context.Context, chatID string) ([]Message, error) {
	msgs := []Message{}
	err := s.selectAll(ctx, s.db, &msgs,
		"SELECT "+messageColumns+" FROM messages WHERE chat_id = ? ORDER BY created_at ASC, id ASC", chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}

// LastMessages returns the newest n messages, oldest first.
func (s *sqlStore) LastMessages(ctx context.Context, chatID string, n int) ([]Message, error) {
	msgs := []Message{}
	err := s.selectAll(ctx, s.db, &msgs,
		"SELECT "+messageColumns+" FROM messages WHERE chat_id = ? ORDER BY created_at DESC, id DESC LIMIT ?", chatID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to list last messages: %w", err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// DeleteMessagesFrom removes every message created at or after from.
func (s *sqlStore) DeleteMessagesFrom(ctx context.Context, chatID string, from int64) (int64, error) {
	n, err := s.exec(ctx, s.db, "DELETE FROM messages WHERE chat_id = ? AND created_at >= ?", chatID, from)
	if err != nil {
		return 0, fmt.Errorf("failed to delete messages: %w", err)
	}
	return n, nil
}

func (s *sqlStore) ClearMessages(ctx context.Context, chatID string) (int64, error) {
	n, err := s.exec(ctx, s.db, "DELETE FROM messages WHERE chat_id = ?", chatID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear messages: %w", err)
	}
	return n, nil
}
