package core

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/andresthedesigner/videodaddychat/internal/auth"
	"github.com/andresthedesigner/videodaddychat/internal/common"
	"github.com/andresthedesigner/videodaddychat/internal/logging"
	"github.com/andresthedesigner/videodaddychat/internal/store"
)

var guestIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_\-:@.]{1,128}$`)

type UserService struct {
	store store.Store
	log   logging.Logger
	now   func() time.Time
}

func NewUserService(s store.Store, log logging.Logger) *UserService {
	return &UserService{store: s, log: log, now: time.Now}
}

// EnsureUser returns the user row for an identity, creating it from the
// token claims on first sight.
func (s *UserService) EnsureUser(ctx context.Context, id *auth.Identity) (*store.User, error) {
	if id == nil {
		return nil, common.ErrorUnauthenticated
	}
	u, err := s.store.GetUserByExternalID(ctx, id.Subject)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	u, err = s.CreateOrUpdate(ctx, ProfileFromIdentity(id))
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "user created", "user_id", u.ID, "external_id", u.ExternalID)
	return u, nil
}

// ProfileFromIdentity maps token claims to the synced profile fields. Empty
// claims leave the stored values untouched.
func ProfileFromIdentity(id *auth.Identity) store.UserProfile {
	return store.UserProfile{
		ExternalID:   id.Subject,
		Email:        optional(id.Email),
		DisplayName:  optional(id.Name),
		ProfileImage: optional(id.Picture),
	}
}

func (s *UserService) CreateOrUpdate(ctx context.Context, p store.UserProfile) (*store.User, error) {
	if strings.TrimSpace(p.ExternalID) == "" {
		return nil, common.NewValidationError("external id is required")
	}
	u, err := s.store.UpsertUser(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return u, nil
}

func (s *UserService) GetByExternalID(ctx context.Context, externalID string) (*store.User, error) {
	return s.store.GetUserByExternalID(ctx, externalID)
}

// Current resolves the caller to a user row.
func (s *UserService) Current(ctx context.Context, c Caller) (*store.User, error) {
	if !c.Authenticated() {
		return nil, common.ErrorUnauthenticated
	}
	u, err := s.store.GetUserByExternalID(ctx, c.Identity.Subject)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrorUserNotFound
	}
	return u, err
}

func (s *UserService) TouchLastActive(ctx context.Context, userID string) error {
	return s.store.TouchUser(ctx, userID, s.now().UnixMilli(), false)
}

func (s *UserService) UpdateFavoriteModels(ctx context.Context, userID string, models []string) error {
	if models == nil {
		models = []string{}
	}
	return s.store.UpdateFavoriteModels(ctx, userID, models)
}

// UpdateSystemPrompt stores a per-user system prompt. A blank prompt clears
// the override.
func (s *UserService) UpdateSystemPrompt(ctx context.Context, userID, prompt string) error {
	var p *string
	if strings.TrimSpace(prompt) != "" {
		p = &prompt
	}
	return s.store.UpdateSystemPrompt(ctx, userID, p)
}

// GuestUser is the profile handed to a browser that has not signed in. Guests
// are tracked by their id alone; no row is stored.
type GuestUser struct {
	ID                string `json:"id"`
	Anonymous         bool   `json:"anonymous"`
	MessageCount      int64  `json:"message_count"`
	DailyMessageCount int64  `json:"daily_message_count"`
}

func (s *UserService) CreateGuest(_ context.Context, guestID string) (*GuestUser, error) {
	id := strings.TrimSpace(guestID)
	if id == "" {
		return nil, common.NewValidationError("Missing userId")
	}
	if !guestIDPattern.MatchString(id) {
		return nil, common.NewValidationError("Invalid userId format")
	}
	return &GuestUser{ID: id, Anonymous: true}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
