package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/andresthedesigner/videodaddychat/internal/common"
)

const userColumns = `id, external_id, email, display_name, profile_image, anonymous, premium,
	message_count, daily_message_count, daily_reset, daily_pro_message_count, daily_pro_reset,
	last_active_at, favorite_models, system_prompt, created_at`

func (s *sqlStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	var u User
	if err := s.get(ctx, s.db, &u, "SELECT "+userColumns+" FROM users WHERE id = ?", id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &u, nil
}

func (s *sqlStore) GetUserByExternalID(ctx context.Context, externalID string) (*User, error) {
	var u User
	if err := s.get(ctx, s.db, &u, "SELECT "+userColumns+" FROM users WHERE external_id = ?", externalID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &u, nil
}

// UpsertUser inserts a user for p.ExternalID or refreshes the profile fields
// of the existing row. Counters and preferences are left untouched.
func (s *sqlStore) UpsertUser(ctx context.Context, p UserProfile) (*User, error) {
	if p.ExternalID == "" {
		return nil, errors.New("external id is required")
	}
	now := s.nowMillis()
	_, err := s.exec(ctx, s.db, `
		INSERT INTO users (id, external_id, email, display_name, profile_image, anonymous, favorite_models, created_at, last_active_at)
		VALUES (?, ?, ?, ?, ?, ?, '[]', ?, ?)
		ON CONFLICT (external_id) DO UPDATE SET
			email = COALESCE(excluded.email, users.email),
			display_name = COALESCE(excluded.display_name, users.display_name),
			profile_image = COALESCE(excluded.profile_image, users.profile_image),
			anonymous = excluded.anonymous`,
		newID(), p.ExternalID, p.Email, p.DisplayName, p.ProfileImage, p.Anonymous, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return s.GetUserByExternalID(ctx, p.ExternalID)
}

// TouchUser records activity. countMessage also bumps the lifetime message
// counter.
func (s *sqlStore) TouchUser(ctx context.Context, userID string, at int64, countMessage bool) error {
	query := "UPDATE users SET last_active_at = ? WHERE id = ?"
	if countMessage {
		query = "UPDATE users SET last_active_at = ?, message_count = message_count + 1 WHERE id = ?"
	}
	if err := s.execOne(ctx, s.db, query, at, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fmt.Errorf("failed to touch user: %w", err)
	}
	return nil
}

func (s *sqlStore) UpdateFavoriteModels(ctx context.Context, userID string, models []string) error {
	if err := s.execOne(ctx, s.db, "UPDATE users SET favorite_models = ? WHERE id = ?", StringList(models), userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fmt.Errorf("failed to update favorite models: %w", err)
	}
	return nil
}

func (s *sqlStore) UpdateSystemPrompt(ctx context.Context, userID string, prompt *string) error {
	if err := s.execOne(ctx, s.db, "UPDATE users SET system_prompt = ? WHERE id = ?", prompt, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fmt.Errorf("failed to update system prompt: %w", err)
	}
	return nil
}
