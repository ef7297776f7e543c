package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/andresthedesigner/videodaddychat/internal/core"
	"github.com/andresthedesigner/videodaddychat/internal/reconcile"
)

type createChatRequest struct {
	Title        string  `json:"title"`
	Model        string  `json:"model"`
	ProjectID    *string `json:"projectId"`
	SystemPrompt *string `json:"systemPrompt"`
}

func (h *APIHandler) CreateChatHandler(w http.ResponseWriter, r *http.Request) {
	var req createChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	chat, err := h.Chats.Create(r.Context(), core.CallerFrom(r.Context(), ""), mustUser(r).ID, core.CreateChatInput{
		Title:        req.Title,
		Model:        req.Model,
		ProjectID:    req.ProjectID,
		SystemPrompt: req.SystemPrompt,
	})
	if err != nil {
		h.fail(w, r, err, "Project")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"chat": chat})
}

func (h *APIHandler) ListChatsHandler(w http.ResponseWriter, r *http.Request) {
	chats, err := h.Chats.ListForUser(r.Context(), mustUser(r).ID)
	if err != nil {
		h.fail(w, r, err, "Chat")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"chats": chats})
}

// SyncChatsHandler replays the client's pending optimistic operations over
// the stored chat list.
func (h *APIHandler) SyncChatsHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ops []reconcile.Op `json:"ops"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	chats, err := h.Chats.ListForUser(r.Context(), mustUser(r).ID)
	if err != nil {
		h.fail(w, r, err, "Chat")
		return
	}
	chats = reconcile.Reconcile(chats, req.Ops)
	core.SortChats(chats)
	writeJSON(w, http.StatusOK, map[string]any{"chats": chats})
}

func (h *APIHandler) GetChatDetailsHandler(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	userID := mustUser(r).ID

	chat, err := h.Chats.Get(r.Context(), userID, chatID)
	if err != nil {
		h.fail(w, r, err, "Chat")
		return
	}
	messages, err := h.Messages.ListForChat(r.Context(), userID, chatID)
	if err != nil {
		h.fail(w, r, err, "Chat")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"chat": chat, "messages": messages})
}

func (h *APIHandler) UpdateChatHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title  *string `json:"title"`
		Public *bool   `json:"public"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Title == nil && req.Public == nil {
		writeError(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	chatID := chi.URLParam(r, "chatID")
	userID := mustUser(r).ID
	if req.Title != nil {
		if err := h.Chats.UpdateTitle(r.Context(), userID, chatID, *req.Title); err != nil {
			h.fail(w, r, err, "Chat")
			return
		}
	}
	if req.Public != nil {
		if err := h.Chats.SetPublic(r.Context(), userID, chatID, *req.Public); err != nil {
			h.fail(w, r, err, "Chat")
			return
		}
	}

	chat, err := h.Chats.Get(r.Context(), userID, chatID)
	if err != nil {
		h.fail(w, r, err, "Chat")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"chat": chat})
}

func (h *APIHandler) DeleteChatHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Chats.Delete(r.Context(), mustUser(r).ID, chi.URLParam(r, "chatID")); err != nil {
		h.fail(w, r, err, "Chat")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *APIHandler) TogglePinHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChatID string `json:"chatId"`
		Pinned *bool  `json:"pinned"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ChatID == "" || req.Pinned == nil {
		writeError(w, http.StatusBadRequest, "Missing chatId or pinned")
		return
	}
	if err := h.Chats.TogglePin(r.Context(), mustUser(r).ID, req.ChatID, *req.Pinned); err != nil {
		h.fail(w, r, err, "Chat")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *APIHandler) UpdateChatModelHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChatID string `json:"chatId"`
		Model  string `json:"model"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ChatID == "" || strings.TrimSpace(req.Model) == "" {
		writeError(w, http.StatusBadRequest, "Missing chatId or model")
		return
	}
	if err := h.Chats.UpdateModel(r.Context(), mustUser(r).ID, req.ChatID, req.Model); err != nil {
		h.fail(w, r, err, "Chat")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *APIHandler) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	messages, err := h.Messages.ListForChat(r.Context(), mustUser(r).ID, chi.URLParam(r, "chatID"))
	if err != nil {
		h.fail(w, r, err, "Chat")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (h *APIHandler) PublicMessagesHandler(w http.ResponseWriter, r *http.Request) {
	messages, err := h.Messages.ListPublic(r.Context(), chi.URLParam(r, "chatID"))
	if err != nil {
		h.fail(w, r, err, "Chat")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (h *APIHandler) LastMessagesHandler(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	messages, err := h.Messages.LastMessages(r.Context(), mustUser(r).ID, chi.URLParam(r, "chatID"), limit)
	if err != nil {
		h.fail(w, r, err, "Chat")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (h *APIHandler) PostMessagesHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Messages []core.NewMessage `json:"messages"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	messages, err := h.Messages.AddBatch(r.Context(), mustUser(r).ID, chi.URLParam(r, "chatID"), req.Messages)
	if err != nil {
		h.fail(w, r, err, "Chat")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"messages": messages})
}

// DeleteMessagesHandler removes messages created at or after ?from=<ms>, or
// every message when from is absent.
func (h *APIHandler) DeleteMessagesHandler(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	userID := mustUser(r).ID

	var (
		deleted int64
		err     error
	)
	if raw := r.URL.Query().Get("from"); raw != "" {
		from, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "from must be a timestamp in milliseconds")
			return
		}
		deleted, err = h.Messages.DeleteFromTimestamp(r.Context(), userID, chatID, from)
	} else {
		deleted, err = h.Messages.Clear(r.Context(), userID, chatID)
	}
	if err != nil {
		h.fail(w, r, err, "Chat")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "deleted": deleted})
}

func (h *APIHandler) ListAttachmentsHandler(w http.ResponseWriter, r *http.Request) {
	attachments, err := h.Files.ListForChat(r.Context(), mustUser(r).ID, chi.URLParam(r, "chatID"))
	if err != nil {
		h.fail(w, r, err, "Chat")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attachments": attachments})
}
