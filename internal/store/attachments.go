package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/andresthedesigner/videodaddychat/internal/common"
)

const attachmentColumns = `id, chat_id, user_id, storage_id, file_url, file_name, file_type, file_size, created_at`

func (s *sqlStore) CreateAttachment(ctx context.Context, a *Attachment) error {
	if a.ID == "" {
		a.ID = newID()
	}
	if a.CreatedAt == 0 {
		a.CreatedAt = s.nowMillis()
	}
	_, err := s.exec(ctx, s.db, `INSERT INTO chat_attachments (`+attachmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ChatID, a.UserID, a.StorageID, a.FileURL, a.FileName, a.FileType, a.FileSize, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert attachment: %w", err)
	}
	return nil
}

func (s *sqlStore) GetAttachment(ctx context.Context, id string) (*Attachment, error) {
	var a Attachment
	if err := s.get(ctx, s.db, &a, "SELECT "+attachmentColumns+" FROM chat_attachments WHERE id = ?", id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	return &a, nil
}

func (s *sqlStore) ListAttachments(ctx context.Context, chatID string) ([]Attachment, error) {
	out := []Attachment{}
	err := s.selectAll(ctx, s.db, &out,
		"SELECT "+attachmentColumns+" FROM chat_attachments WHERE chat_id = ? ORDER BY created_at ASC", chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	return out, nil
}

// CountUploadsSince counts the user's attachments created at or after since.
func (s *sqlStore) CountUploadsSince(ctx context.Context, userID string, since int64) (int, error) {
	var n int
	err := s.get(ctx, s.db, &n,
		"SELECT COUNT(*) FROM chat_attachments WHERE user_id = ? AND created_at >= ?", userID, since)
	if err != nil {
		return 0, fmt.Errorf("failed to count uploads: %w", err)
	}
	return n, nil
}

func (s *sqlStore) DeleteAttachment(ctx context.Context, id string) error {
	if err := s.execOne(ctx, s.db, "DELETE FROM chat_attachments WHERE id = ?", id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	return nil
}
