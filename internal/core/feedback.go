package core

import (
	"context"
	"strings"

	"github.com/andresthedesigner/videodaddychat/internal/common"
	"github.com/andresthedesigner/videodaddychat/internal/store"
)

const defaultFeedbackLimit = 100

type FeedbackService struct {
	store store.Store
}

func NewFeedbackService(s store.Store) *FeedbackService {
	return &FeedbackService{store: s}
}

func (s *FeedbackService) Submit(ctx context.Context, userID, message string) (*store.Feedback, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, common.NewValidationError("Feedback message is required")
	}
	f := &store.Feedback{UserID: userID, Message: message}
	if err := s.store.CreateFeedback(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// List returns the newest feedback entries for operators.
func (s *FeedbackService) List(ctx context.Context, limit int) ([]store.Feedback, error) {
	if limit <= 0 {
		limit = defaultFeedbackLimit
	}
	return s.store.ListFeedback(ctx, limit)
}
