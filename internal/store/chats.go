package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/andresthedesigner/videodaddychat/internal/common"
	"github.com/andresthedesigner/videodaddychat/internal/dbx"
)

const chatColumns = `id, user_id, project_id, title, model, system_prompt, public, pinned, pinned_at, created_at, updated_at`

func (s *sqlStore) CreateChat(ctx context.Context, c *Chat) error {
	if c.ID == "" {
		c.ID = newID()
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = s.nowMillis()
	}
	if c.Title == "" {
		c.Title = common.DefaultChatTitle
	}
	_, err := s.exec(ctx, s.db, `INSERT INTO chats (`+chatColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.ProjectID, c.Title, c.Model, c.SystemPrompt,
		c.Public, c.Pinned, c.PinnedAt, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert chat: %w", err)
	}
	return nil
}

func (s *sqlStore) GetChat(ctx context.Context, id string) (*Chat, error) {
	var c Chat
	if err := s.get(ctx, s.db, &c, "SELECT "+chatColumns+" FROM chats WHERE id = ?", id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	return &c, nil
}

// ListChats returns every chat the user owns, newest first. Pinned ordering
// is applied by the caller.
func (s *sqlStore) ListChats(ctx context.Context, userID string) ([]Chat, error) {
	chats := []Chat{}
	err := s.selectAll(ctx, s.db, &chats,
		"SELECT "+chatColumns+" FROM chats WHERE user_id = ? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	return chats, nil
}

func (s *sqlStore) UpdateChatTitle(ctx context.Context, id, title string, at int64) error {
	return s.updateChat(ctx, "UPDATE chats SET title = ?, updated_at = ? WHERE id = ?", title, at, id)
}

func (s *sqlStore) UpdateChatModel(ctx context.Context, id, model string, at int64) error {
	return s.updateChat(ctx, "UPDATE chats SET model = ?, updated_at = ? WHERE id = ?", model, at, id)
}

func (s *sqlStore) SetChatPinned(ctx context.Context, id string, pinned bool, pinnedAt *int64) error {
	return s.updateChat(ctx, "UPDATE chats SET pinned = ?, pinned_at = ? WHERE id = ?", pinned, pinnedAt, id)
}

func (s *sqlStore) SetChatPublic(ctx context.Context, id string, public bool) error {
	return s.updateChat(ctx, "UPDATE chats SET public = ? WHERE id = ?", public, id)
}

func (s *sqlStore) updateChat(ctx context.Context, query string, args ...any) error {
	if err := s.execOne(ctx, s.db, query, args...); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fmt.Errorf("failed to update chat: %w", err)
	}
	return nil
}

// DeleteChat removes the chat, its messages and its attachment rows and
// returns the storage ids of the removed attachments.
func (s *sqlStore) DeleteChat(ctx context.Context, id string) ([]string, error) {
	var storageIDs []string
	err := dbx.WithTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		storageIDs = []string{}
		if err := s.selectAll(ctx, tx, &storageIDs,
			"SELECT storage_id FROM chat_attachments WHERE chat_id = ?", id); err != nil {
			return fmt.Errorf("failed to collect attachments: %w", err)
		}
		if _, err := s.exec(ctx, tx, "DELETE FROM chat_attachments WHERE chat_id = ?", id); err != nil {
			return err
		}
		if _, err := s.exec(ctx, tx, "DELETE FROM messages WHERE chat_id = ?", id); err != nil {
			return err
		}
		return s.execOne(ctx, tx, "DELETE FROM chats WHERE id = ?", id)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to delete chat: %w", err)
	}
	return storageIDs, nil
}
