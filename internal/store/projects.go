package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/andresthedesigner/videodaddychat/internal/common"
	"github.com/andresthedesigner/videodaddychat/internal/dbx"
)

func (s *sqlStore) CreateProject(ctx context.Context, p *Project) error {
	if p.ID == "" {
		p.ID = newID()
	}
	if p.CreatedAt == 0 {
		p.CreatedAt = s.nowMillis()
	}
	_, err := s.exec(ctx, s.db,
		"INSERT INTO projects (id, user_id, name, created_at) VALUES (?, ?, ?, ?)",
		p.ID, p.UserID, p.Name, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

func (s *sqlStore) GetProject(ctx context.Context, id string) (*Project, error) {
	var p Project
	if err := s.get(ctx, s.db, &p, "SELECT id, user_id, name, created_at FROM projects WHERE id = ?", id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &p, nil
}

// ListProjects returns the user's projects, newest first.
func (s *sqlStore) ListProjects(ctx context.Context, userID string) ([]Project, error) {
	projects := []Project{}
	err := s.selectAll(ctx, s.db, &projects,
		"SELECT id, user_id, name, created_at FROM projects WHERE user_id = ? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

func (s *sqlStore) RenameProject(ctx context.Context, id, name string) error {
	if err := s.execOne(ctx, s.db, "UPDATE projects SET name = ? WHERE id = ?", name, id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fmt.Errorf("failed to rename project: %w", err)
	}
	return nil
}

// DeleteProject removes the project together with its chats, their messages
// and their attachment rows. The storage ids of the removed attachments are
// returned so the caller can delete the blobs.
func (s *sqlStore) DeleteProject(ctx context.Context, id string) ([]string, error) {
	var storageIDs []string
	err := dbx.WithTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		storageIDs = []string{}
		err := s.selectAll(ctx, tx, &storageIDs, `SELECT storage_id FROM chat_attachments
			WHERE chat_id IN (SELECT id FROM chats WHERE project_id = ?)`, id)
		if err != nil {
			return fmt.Errorf("failed to collect attachments: %w", err)
		}
		cascade := []string{
			"DELETE FROM chat_attachments WHERE chat_id IN (SELECT id FROM chats WHERE project_id = ?)",
			"DELETE FROM messages WHERE chat_id IN (SELECT id FROM chats WHERE project_id = ?)",
			"DELETE FROM chats WHERE project_id = ?",
		}
		for _, q := range cascade {
			if _, err := s.exec(ctx, tx, q, id); err != nil {
				return fmt.Errorf("failed to delete project contents: %w", err)
			}
		}
		return s.execOne(ctx, tx, "DELETE FROM projects WHERE id = ?", id)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to delete project: %w", err)
	}
	return storageIDs, nil
}
