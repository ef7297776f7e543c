package core

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/andresthedesigner/videodaddychat/internal/catalog"
	"github.com/andresthedesigner/videodaddychat/internal/common"
	"github.com/andresthedesigner/videodaddychat/internal/compaction"
	"github.com/andresthedesigner/videodaddychat/internal/llm"
	"github.com/andresthedesigner/videodaddychat/internal/logging"
	"github.com/andresthedesigner/videodaddychat/internal/store"
)

const (
	titleTimeout = 30 * time.Second
	// TitleModel names the model used for automatic chat titles.
	TitleModel = common.ModelDefault
)

type ChatRequest struct {
	Messages       []llm.Message `json:"messages"`
	ChatID         string        `json:"chatId"`
	UserID         string        `json:"userId"`
	Model          string        `json:"model"`
	SystemPrompt   string        `json:"systemPrompt"`
	EnableSearch   bool          `json:"enableSearch"`
	MessageGroupID *string       `json:"message_group_id"`
}

type AssistantMessage struct {
	ID      string `json:"id,omitempty"`
	Role    string `json:"role"`
	Content string `json:"content"`
	Model   string `json:"model"`
}

type ChatResponse struct {
	Message    AssistantMessage   `json:"message"`
	Compaction *compaction.Result `json:"compaction,omitempty"`
}

// CompletionService runs one chat turn: access and quota checks, persistence
// of both sides of the exchange, and the provider call.
type CompletionService struct {
	store    store.Store
	usage    *UsageService
	chats    *ChatService
	keys     *KeyService
	catalog  *catalog.Catalog
	registry *llm.Registry
	log      logging.Logger

	timeout    time.Duration
	compaction compaction.Config

	// titles tracks background title generation.
	titles sync.WaitGroup
}

func NewCompletionService(
	s store.Store,
	usage *UsageService,
	chats *ChatService,
	keys *KeyService,
	cat *catalog.Catalog,
	registry *llm.Registry,
	log logging.Logger,
) *CompletionService {
	return &CompletionService{
		store:      s,
		usage:      usage,
		chats:      chats,
		keys:       keys,
		catalog:    cat,
		registry:   registry,
		log:        log,
		timeout:    common.ChatMaxDuration,
		compaction: compaction.DefaultConfig(),
	}
}

// Send answers the last message of req. user is nil for anonymous callers,
// whose conversations are not stored.
func (s *CompletionService) Send(ctx context.Context, c Caller, user *store.User, req ChatRequest) (*ChatResponse, error) {
	if !c.Authenticated() && c.AnonymousID == "" {
		c.AnonymousID = req.UserID
	}
	if len(req.Messages) == 0 || req.ChatID == "" || (!c.Authenticated() && c.AnonymousID == "") {
		return nil, common.NewValidationError("Error, missing information")
	}
	last := req.Messages[len(req.Messages)-1]
	if utf8.RuneCountInString(last.Content) > common.MessageMaxLength {
		return nil, common.NewValidationError("Message exceeds maximum length of %d characters", common.MessageMaxLength)
	}
	if req.Model == "" {
		req.Model = common.ModelDefault
	}

	userID := ""
	if user != nil {
		userID = user.ID
	}
	if err := s.usage.ValidateModelAccess(ctx, c, userID, req.Model); err != nil {
		return nil, err
	}
	model, ok, err := s.catalog.Find(ctx, req.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to load models: %w", err)
	}
	if !ok {
		return nil, common.NewValidationError("Model %s not found", req.Model)
	}

	var chat *store.Chat
	if user != nil {
		if chat, err = s.chats.owned(ctx, user.ID, req.ChatID); err != nil {
			return nil, err
		}
	}
	if err := s.usage.Consume(ctx, c, common.IsProModel(req.Model)); err != nil {
		return nil, err
	}

	if chat != nil && last.Role == store.RoleUser {
		err := s.store.AddMessages(ctx, chat.ID, []*store.Message{{
			UserID:         &user.ID,
			Role:           store.RoleUser,
			Content:        last.Content,
			MessageGroupID: req.MessageGroupID,
			Model:          &req.Model,
		}})
		if err != nil {
			return nil, fmt.Errorf("failed to store user message: %w", err)
		}
	}

	system := req.SystemPrompt
	if system == "" && user != nil && user.SystemPrompt != nil {
		system = *user.SystemPrompt
	}
	if system == "" {
		system = common.SystemPromptDefault
	}

	compacted := compaction.Compact(toCompactionMessages(req.Messages), s.compaction)
	if compacted.Compacted {
		s.log.Info(ctx, "conversation compacted",
			"chat_id", req.ChatID, "original", compacted.OriginalCount, "final", compacted.FinalCount,
			"tokens_saved", compacted.TokensSaved)
	}

	text, err := s.complete(ctx, userID, model, system, fromCompactionMessages(compacted.Messages))
	if err != nil {
		s.log.Error(ctx, "completion failed", "chat_id", req.ChatID, "model", req.Model, "error", err)
		return nil, err
	}

	resp := &ChatResponse{Message: AssistantMessage{Role: store.RoleAssistant, Content: text, Model: req.Model}}
	if compacted.Compacted {
		resp.Compaction = &compacted
	}
	if chat == nil {
		return resp, nil
	}

	reply := &store.Message{
		Role:           store.RoleAssistant,
		Content:        text,
		MessageGroupID: req.MessageGroupID,
		Model:          &req.Model,
	}
	if err := s.store.AddMessages(ctx, chat.ID, []*store.Message{reply}); err != nil {
		return nil, fmt.Errorf("failed to store assistant message: %w", err)
	}
	resp.Message.ID = reply.ID

	if chat.Title == common.DefaultChatTitle && last.Role == store.RoleUser {
		s.titles.Add(1)
		go s.generateAndSaveChatTitle(chat.ID, user.ID, last.Content)
	}
	return resp, nil
}

func (s *CompletionService) complete(ctx context.Context, userID string, model catalog.Model, system string, msgs []llm.Message) (string, error) {
	provider, err := s.registry.Get(model.Provider)
	if err != nil {
		return "", err
	}
	apiKey, err := s.keys.EffectiveKey(ctx, userID, model.Provider)
	if err != nil {
		return "", err
	}

	req := llm.Request{
		Model:    model.ID,
		APIKey:   apiKey,
		System:   system,
		Messages: msgs,
	}
	if model.Provider == catalog.ProviderAnthropic {
		req.Headers = compaction.BetaHeaders(compaction.BetaOptions{ContextManagement: true})
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := provider.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s completion failed: %w", model.Provider, err)
	}
	return resp.Text, nil
}

// generateAndSaveChatTitle runs detached from the request, bounded by its
// own deadline. Failures only leave the default title in place.
func (s *CompletionService) generateAndSaveChatTitle(chatID, userID, content string) {
	defer s.titles.Done()

	ctx, cancel := context.WithTimeout(context.Background(), titleTimeout)
	defer cancel()

	providerName := catalog.ProviderFor(TitleModel)
	provider, err := s.registry.Get(providerName)
	if err != nil {
		s.log.Warn(ctx, "no provider for title generation", "chat_id", chatID, "error", err)
		return
	}
	apiKey, err := s.keys.EffectiveKey(ctx, userID, providerName)
	if err != nil {
		s.log.Warn(ctx, "failed to resolve title key", "chat_id", chatID, "error", err)
		return
	}

	title, err := llm.GenerateTitle(ctx, provider, TitleModel, apiKey, content)
	if err != nil {
		s.log.Warn(ctx, "failed to generate title", "chat_id", chatID, "error", err)
		return
	}
	if err := s.store.UpdateChatTitle(ctx, chatID, title, time.Now().UnixMilli()); err != nil {
		s.log.Warn(ctx, "failed to save generated title", "chat_id", chatID, "title", title, "error", err)
		return
	}
	s.log.Debug(ctx, "chat title generated", "chat_id", chatID, "title", title)
}

// Wait blocks until background title generation has finished.
func (s *CompletionService) Wait() {
	s.titles.Wait()
}

func toCompactionMessages(msgs []llm.Message) []compaction.Message {
	out := make([]compaction.Message, len(msgs))
	for i, m := range msgs {
		out[i] = compaction.Message{Role: m.Role, Content: m.Content}
	}
	return out
}

func fromCompactionMessages(msgs []compaction.Message) []llm.Message {
	out := make([]llm.Message, len(msgs))
	for i, m := range msgs {
		out[i] = llm.Message{Role: m.Role, Content: m.Content}
	}
	return out
}
