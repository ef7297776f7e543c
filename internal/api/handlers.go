package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/andresthedesigner/videodaddychat/internal/agents"
	"github.com/andresthedesigner/videodaddychat/internal/catalog"
	"github.com/andresthedesigner/videodaddychat/internal/core"
	"github.com/andresthedesigner/videodaddychat/internal/logging"
	"github.com/andresthedesigner/videodaddychat/internal/store"
)

// Services bundles everything the handlers call into.
type Services struct {
	Users        *core.UserService
	Usage        *core.UsageService
	Chats        *core.ChatService
	Messages     *core.MessageService
	Projects     *core.ProjectService
	Keys         *core.KeyService
	Preferences  *core.PreferencesService
	Feedback     *core.FeedbackService
	Files        *core.FileService
	Completion   *core.CompletionService
	Catalog      *catalog.Catalog
	Orchestrator *agents.Orchestrator

	// Checks are dependency probes reported by the health endpoint.
	Checks map[string]func(context.Context) error
}

type APIHandler struct {
	Services
	log           logging.Logger
	webhookSecret string
}

func NewAPIHandler(svc Services, log logging.Logger, webhookSecret string) *APIHandler {
	return &APIHandler{Services: svc, log: log, webhookSecret: webhookSecret}
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	failed := map[string]string{}
	for name, check := range h.Checks {
		if err := check(r.Context()); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		h.log.Warn(r.Context(), "health check failed", "checks", failed)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "checks": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req core.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, _ := userFrom(r.Context())
	caller := core.CallerFrom(r.Context(), req.UserID)
	resp, err := h.Completion.Send(r.Context(), caller, user, req)
	if err != nil {
		h.fail(w, r, err, "Chat")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *APIHandler) RateLimitsHandler(w http.ResponseWriter, r *http.Request) {
	caller := core.CallerFrom(r.Context(), r.URL.Query().Get("userId"))
	limits, err := h.Usage.RateLimits(r.Context(), caller)
	if err != nil {
		h.fail(w, r, err, "User")
		return
	}
	writeJSON(w, http.StatusOK, limits)
}

// accessibleModels marks the catalog for the current caller.
func (h *APIHandler) accessibleModels(r *http.Request) ([]catalog.Model, error) {
	models, err := h.Catalog.All(r.Context())
	if err != nil {
		return nil, err
	}
	user, ok := userFrom(r.Context())
	if !ok {
		return catalog.WithAccess(models, false, nil), nil
	}
	providers, err := h.Keys.List(r.Context(), user.ID)
	if err != nil {
		return nil, err
	}
	return catalog.WithAccess(models, true, providers), nil
}

func (h *APIHandler) ListModelsHandler(w http.ResponseWriter, r *http.Request) {
	models, err := h.accessibleModels(r)
	if err != nil {
		h.fail(w, r, err, "Models")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

func (h *APIHandler) RefreshModelsHandler(w http.ResponseWriter, r *http.Request) {
	h.Catalog.Refresh()
	models, err := h.accessibleModels(r)
	if err != nil {
		h.fail(w, r, err, "Models")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Models cache refreshed",
		"models":    models,
		"timestamp": timestamp(),
		"count":     len(models),
	})
}

func (h *APIHandler) CreateGuestHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	guest, err := h.Users.CreateGuest(r.Context(), req.UserID)
	if err != nil {
		h.fail(w, r, err, "User")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": guest})
}

type userWebhookRequest struct {
	ExternalID   string  `json:"external_id"`
	Email        *string `json:"email"`
	DisplayName  *string `json:"display_name"`
	ProfileImage *string `json:"profile_image"`
	Anonymous    bool    `json:"anonymous"`
}

// UserWebhookHandler syncs a profile pushed by the identity provider.
func (h *APIHandler) UserWebhookHandler(w http.ResponseWriter, r *http.Request) {
	got := r.Header.Get("X-Webhook-Secret")
	if h.webhookSecret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookSecret)) != 1 {
		writeError(w, http.StatusUnauthorized, "Invalid webhook secret")
		return
	}

	var req userWebhookRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.Users.CreateOrUpdate(r.Context(), store.UserProfile{
		ExternalID:   strings.TrimSpace(req.ExternalID),
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		ProfileImage: req.ProfileImage,
		Anonymous:    req.Anonymous,
	})
	if err != nil {
		h.fail(w, r, err, "User")
		return
	}
	h.log.Info(r.Context(), "user synced from webhook", "user_id", user.ID)
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *APIHandler) CurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	user, err := h.Users.Current(r.Context(), core.CallerFrom(r.Context(), ""))
	if err != nil {
		h.fail(w, r, err, "User")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *APIHandler) UpdateSystemPromptHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SystemPrompt string `json:"system_prompt"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.Users.UpdateSystemPrompt(r.Context(), mustUser(r).ID, req.SystemPrompt); err != nil {
		h.fail(w, r, err, "User")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type agentRequest struct {
	Request             string              `json:"request"`
	ConversationContext string              `json:"conversationContext,omitempty"`
	Attachments         []agents.Attachment `json:"attachments,omitempty"`
}

func (h *APIHandler) ClassifyHandler(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Request) == "" {
		writeError(w, http.StatusBadRequest, "Request is required")
		return
	}
	writeJSON(w, http.StatusOK, agents.ClassifyDetailed(req.Request))
}

func (h *APIHandler) ProcessHandler(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Request) == "" {
		writeError(w, http.StatusBadRequest, "Request is required")
		return
	}
	result, err := h.Orchestrator.Process(r.Context(), agents.TaskInput{
		UserRequest:         req.Request,
		ConversationContext: req.ConversationContext,
		Attachments:         req.Attachments,
	})
	if err != nil {
		h.fail(w, r, err, "Agent")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *APIHandler) AgentConfigHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Orchestrator.Config())
}
