package store

import (
	"context"
	"fmt"
)

func (s *sqlStore) CreateFeedback(ctx context.Context, f *Feedback) error {
	if f.ID == "" {
		f.ID = newID()
	}
	f.CreatedAt = s.nowMillis()
	_, err := s.exec(ctx, s.db, "INSERT INTO feedback (id, user_id, message, created_at) VALUES (?, ?, ?, ?)",
		f.ID, f.UserID, f.Message, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	return nil
}

// ListFeedback returns the newest feedback entries across all users.
func (s *sqlStore) ListFeedback(ctx context.Context, limit int) ([]Feedback, error) {
	out := []Feedback{}
	err := s.selectAll(ctx, s.db, &out,
		"SELECT id, user_id, message, created_at FROM feedback ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return out, nil
}
