package core

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/andresthedesigner/videodaddychat/internal/blob"
	"github.com/andresthedesigner/videodaddychat/internal/common"
	"github.com/andresthedesigner/videodaddychat/internal/logging"
	"github.com/andresthedesigner/videodaddychat/internal/store"
)

type ChatService struct {
	store store.Store
	usage *UsageService
	blobs blob.Store
	log   logging.Logger
	now   func() time.Time
}

// NewChatService builds the chat service. blobs may be nil when attachment
// storage is not configured.
func NewChatService(s store.Store, usage *UsageService, blobs blob.Store, log logging.Logger) *ChatService {
	return &ChatService{store: s, usage: usage, blobs: blobs, log: log, now: time.Now}
}

// ListForUser returns pinned chats first, most recently pinned on top, then
// the rest by last activity.
func (s *ChatService) ListForUser(ctx context.Context, userID string) ([]store.Chat, error) {
	chats, err := s.store.ListChats(ctx, userID)
	if err != nil {
		return nil, err
	}
	SortChats(chats)
	return chats, nil
}

// SortChats orders chats in place the way the sidebar shows them: pinned
// first, most recently pinned on top, then the rest by last activity.
func SortChats(chats []store.Chat) {
	sort.SliceStable(chats, func(i, j int) bool {
		a, b := chats[i], chats[j]
		if a.Pinned != b.Pinned {
			return a.Pinned
		}
		if a.Pinned {
			return pinnedAt(a) > pinnedAt(b)
		}
		return a.LastActivity() > b.LastActivity()
	})
}

func pinnedAt(c store.Chat) int64 {
	if c.PinnedAt == nil {
		return 0
	}
	return *c.PinnedAt
}

// Get returns a chat the user owns or that has been made public. Anything
// else reads as not found. userID may be empty for anonymous readers.
func (s *ChatService) Get(ctx context.Context, userID, chatID string) (*store.Chat, error) {
	chat, err := s.store.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.Public || (userID != "" && chat.UserID == userID) {
		return chat, nil
	}
	return nil, common.ErrorNotFound
}

// owned loads a chat for mutation by its owner.
func (s *ChatService) owned(ctx context.Context, userID, chatID string) (*store.Chat, error) {
	chat, err := s.store.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.UserID != userID {
		return nil, common.ErrorForbidden
	}
	return chat, nil
}

type CreateChatInput struct {
	Title        string
	Model        string
	ProjectID    *string
	SystemPrompt *string
}

// Create starts a chat after checking that the caller still has quota for
// the chosen model.
func (s *ChatService) Create(ctx context.Context, c Caller, userID string, in CreateChatInput) (*store.Chat, error) {
	if in.Model == "" {
		in.Model = common.ModelDefault
	}
	if strings.TrimSpace(in.Title) == "" {
		in.Title = common.DefaultChatTitle
	}
	if in.ProjectID != nil && *in.ProjectID != "" {
		p, err := s.store.GetProject(ctx, *in.ProjectID)
		if err != nil {
			return nil, err
		}
		if p.UserID != userID {
			return nil, common.ErrorForbidden
		}
	} else {
		in.ProjectID = nil
	}

	pro := common.IsProModel(in.Model)
	status, err := s.usage.Check(ctx, c, pro)
	if err != nil {
		return nil, err
	}
	if status.Error != "" {
		return nil, usageError(&statusError{status.Error})
	}
	if !status.CanSend {
		return nil, &common.UsageLimitError{Limit: status.Limit, Pro: pro}
	}

	chat := &store.Chat{
		UserID:       userID,
		ProjectID:    in.ProjectID,
		Title:        in.Title,
		Model:        in.Model,
		SystemPrompt: in.SystemPrompt,
	}
	if err := s.store.CreateChat(ctx, chat); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "chat created", "chat_id", chat.ID, "user_id", userID, "model", chat.Model)
	return chat, nil
}

func (s *ChatService) UpdateTitle(ctx context.Context, userID, chatID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return common.NewValidationError("Title is required")
	}
	if _, err := s.owned(ctx, userID, chatID); err != nil {
		return err
	}
	return s.store.UpdateChatTitle(ctx, chatID, title, s.now().UnixMilli())
}

func (s *ChatService) UpdateModel(ctx context.Context, userID, chatID, model string) error {
	if _, err := s.owned(ctx, userID, chatID); err != nil {
		return err
	}
	return s.store.UpdateChatModel(ctx, chatID, model, s.now().UnixMilli())
}

// TogglePin sets the pinned flag; pinned_at is stamped when pinning and
// cleared when unpinning.
func (s *ChatService) TogglePin(ctx context.Context, userID, chatID string, pinned bool) error {
	if _, err := s.owned(ctx, userID, chatID); err != nil {
		return err
	}
	var at *int64
	if pinned {
		now := s.now().UnixMilli()
		at = &now
	}
	return s.store.SetChatPinned(ctx, chatID, pinned, at)
}

func (s *ChatService) SetPublic(ctx context.Context, userID, chatID string, public bool) error {
	if _, err := s.owned(ctx, userID, chatID); err != nil {
		return err
	}
	return s.store.SetChatPublic(ctx, chatID, public)
}

// Delete removes a chat with its messages and attachments, then the stored
// attachment blobs.
func (s *ChatService) Delete(ctx context.Context, userID, chatID string) error {
	if _, err := s.owned(ctx, userID, chatID); err != nil {
		return err
	}
	storageIDs, err := s.store.DeleteChat(ctx, chatID)
	if err != nil {
		return err
	}
	deleteBlobs(ctx, s.blobs, s.log, storageIDs)
	s.log.Info(ctx, "chat deleted", "chat_id", chatID, "attachments", len(storageIDs))
	return nil
}

// deleteBlobs removes attachment objects. Rows are already gone, so failures
// only leave orphaned objects and are logged.
func deleteBlobs(ctx context.Context, blobs blob.Store, log logging.Logger, storageIDs []string) {
	if blobs == nil {
		return
	}
	for _, id := range storageIDs {
		if err := blobs.Delete(ctx, id); err != nil {
			log.Warn(ctx, "failed to delete attachment blob", "storage_id", id, "error", err)
		}
	}
}
