package core

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/andresthedesigner/videodaddychat/internal/common"
	"github.com/andresthedesigner/videodaddychat/internal/store"
)

// PreferencesPatch is a partial update; nil fields are left unchanged.
type PreferencesPatch struct {
	Layout                   *string
	PromptSuggestions        *bool
	ShowToolInvocations      *bool
	ShowConversationPreviews *bool
	MultiModelEnabled        *bool
	HiddenModels             []string
}

// ParsePreferencesPatch decodes a snake_case JSON object field by field so a
// wrongly typed field produces a message naming it. Unknown fields are
// ignored.
func ParsePreferencesPatch(raw map[string]json.RawMessage) (PreferencesPatch, error) {
	var p PreferencesPatch
	if v, ok := raw["layout"]; ok {
		if err := json.Unmarshal(v, &p.Layout); err != nil || p.Layout == nil {
			return p, common.NewValidationError("layout must be a string")
		}
	}
	if v, ok := raw["hidden_models"]; ok {
		if err := json.Unmarshal(v, &p.HiddenModels); err != nil || p.HiddenModels == nil {
			return p, common.NewValidationError("hidden_models must be an array")
		}
	}
	bools := []struct {
		name string
		dst  **bool
	}{
		{"prompt_suggestions", &p.PromptSuggestions},
		{"show_tool_invocations", &p.ShowToolInvocations},
		{"show_conversation_previews", &p.ShowConversationPreviews},
		{"multi_model_enabled", &p.MultiModelEnabled},
	}
	for _, b := range bools {
		v, ok := raw[b.name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, b.dst); err != nil || *b.dst == nil {
			return p, common.NewValidationError("%s must be a boolean", b.name)
		}
	}
	return p, nil
}

type PreferencesService struct {
	store store.Store
}

func NewPreferencesService(s store.Store) *PreferencesService {
	return &PreferencesService{store: s}
}

// Get returns the saved preferences, or the defaults when none were saved.
func (s *PreferencesService) Get(ctx context.Context, userID string) (*store.UserPreferences, error) {
	p, err := s.store.GetPreferences(ctx, userID)
	if errors.Is(err, common.ErrorNotFound) {
		d := store.DefaultPreferences(userID)
		return &d, nil
	}
	return p, err
}

func (s *PreferencesService) Update(ctx context.Context, userID string, patch PreferencesPatch) (*store.UserPreferences, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if patch.Layout != nil {
		p.Layout = *patch.Layout
	}
	if patch.PromptSuggestions != nil {
		p.PromptSuggestions = *patch.PromptSuggestions
	}
	if patch.ShowToolInvocations != nil {
		p.ShowToolInvocations = *patch.ShowToolInvocations
	}
	if patch.ShowConversationPreviews != nil {
		p.ShowConversationPreviews = *patch.ShowConversationPreviews
	}
	if patch.MultiModelEnabled != nil {
		p.MultiModelEnabled = *patch.MultiModelEnabled
	}
	if patch.HiddenModels != nil {
		p.HiddenModels = patch.HiddenModels
	}
	if err := s.store.SavePreferences(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
