package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/andresthedesigner/videodaddychat/internal/common"
)

const preferenceColumns = `user_id, layout, prompt_suggestions, show_tool_invocations,
	show_conversation_previews, multi_model_enabled, hidden_models, updated_at`

// GetPreferences returns the saved preferences, or common.ErrorNotFound when
// the user never saved any.
func (s *sqlStore) GetPreferences(ctx context.Context, userID string) (*UserPreferences, error) {
	var p UserPreferences
	err := s.get(ctx, s.db, &p, "SELECT "+preferenceColumns+" FROM user_preferences WHERE user_id = ?", userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}
	return &p, nil
}

func (s *sqlStore) SavePreferences(ctx context.Context, p *UserPreferences) error {
	p.UpdatedAt = s.nowMillis()
	_, err := s.exec(ctx, s.db, `INSERT INTO user_preferences (`+preferenceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			layout = excluded.layout,
			prompt_suggestions = excluded.prompt_suggestions,
			show_tool_invocations = excluded.show_tool_invocations,
			show_conversation_previews = excluded.show_conversation_previews,
			multi_model_enabled = excluded.multi_model_enabled,
			hidden_models = excluded.hidden_models,
			updated_at = excluded.updated_at`,
		p.UserID, p.Layout, p.PromptSuggestions, p.ShowToolInvocations,
		p.ShowConversationPreviews, p.MultiModelEnabled, p.HiddenModels, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}
