package core

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx/types"

	"github.com/andresthedesigner/videodaddychat/internal/common"
	"github.com/andresthedesigner/videodaddychat/internal/store"
)

const defaultLastMessages = 2

// NewMessage is one message to append to a chat.
type NewMessage struct {
	Role           string          `json:"role"`
	Content        string          `json:"content"`
	Parts          json.RawMessage `json:"parts,omitempty"`
	Attachments    json.RawMessage `json:"attachments,omitempty"`
	MessageGroupID *string         `json:"message_group_id,omitempty"`
	Model          *string         `json:"model,omitempty"`
}

type MessageService struct {
	store store.Store
	chats *ChatService
}

func NewMessageService(s store.Store, chats *ChatService) *MessageService {
	return &MessageService{store: s, chats: chats}
}

// ListForChat returns a visible chat's messages, oldest first.
func (s *MessageService) ListForChat(ctx context.Context, userID, chatID string) ([]store.Message, error) {
	if _, err := s.chats.Get(ctx, userID, chatID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, chatID)
}

// ListPublic serves the share view: only public chats are readable.
func (s *MessageService) ListPublic(ctx context.Context, chatID string) ([]store.Message, error) {
	return s.ListForChat(ctx, "", chatID)
}

// LastMessages returns the newest limit messages in chronological order.
func (s *MessageService) LastMessages(ctx context.Context, userID, chatID string, limit int) ([]store.Message, error) {
	if limit <= 0 {
		limit = defaultLastMessages
	}
	if _, err := s.chats.Get(ctx, userID, chatID); err != nil {
		return nil, err
	}
	return s.store.LastMessages(ctx, chatID, limit)
}

func (s *MessageService) Add(ctx context.Context, userID, chatID string, m NewMessage) (*store.Message, error) {
	msgs, err := s.AddBatch(ctx, userID, chatID, []NewMessage{m})
	if err != nil {
		return nil, err
	}
	return msgs[0], nil
}

// AddBatch appends messages in order and bumps the chat's updated_at. Only
// user messages carry the author's id.
func (s *MessageService) AddBatch(ctx context.Context, userID, chatID string, in []NewMessage) ([]*store.Message, error) {
	if len(in) == 0 {
		return nil, common.NewValidationError("No messages to add")
	}
	msgs := make([]*store.Message, 0, len(in))
	for _, m := range in {
		if !store.ValidRole(m.Role) {
			return nil, common.NewValidationError("Invalid message role: %s", m.Role)
		}
		msg := &store.Message{
			Role:           m.Role,
			Content:        m.Content,
			Parts:          types.JSONText(m.Parts),
			Attachments:    types.JSONText(m.Attachments),
			MessageGroupID: m.MessageGroupID,
			Model:          m.Model,
		}
		if m.Role == store.RoleUser {
			msg.UserID = &userID
		}
		msgs = append(msgs, msg)
	}

	if _, err := s.chats.owned(ctx, userID, chatID); err != nil {
		return nil, err
	}
	if err := s.store.AddMessages(ctx, chatID, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// DeleteFromTimestamp removes messages created at or after from, for edits.
// It returns how many were removed.
func (s *MessageService) DeleteFromTimestamp(ctx context.Context, userID, chatID string, from int64) (int64, error) {
	if _, err := s.chats.owned(ctx, userID, chatID); err != nil {
		return 0, err
	}
	return s.store.DeleteMessagesFrom(ctx, chatID, from)
}

func (s *MessageService) Clear(ctx context.Context, userID, chatID string) (int64, error) {
	if _, err := s.chats.owned(ctx, userID, chatID); err != nil {
		return 0, err
	}
	return s.store.ClearMessages(ctx, chatID)
}
