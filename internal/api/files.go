package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/andresthedesigner/videodaddychat/internal/core"
)

func (h *APIHandler) UploadURLHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ContentType string `json:"contentType"`
	}
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	upload, err := h.Files.GenerateUploadURL(r.Context(), req.ContentType)
	if err != nil {
		h.fail(w, r, err, "File")
		return
	}
	writeJSON(w, http.StatusOK, upload)
}

func (h *APIHandler) SaveAttachmentHandler(w http.ResponseWriter, r *http.Request) {
	var req core.SaveAttachmentInput
	if !decodeJSON(w, r, &req) {
		return
	}
	attachment, err := h.Files.SaveAttachment(r.Context(), mustUser(r).ID, req)
	if err != nil {
		h.fail(w, r, err, "Chat")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"attachment": attachment})
}

func (h *APIHandler) UploadLimitHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := h.Files.CheckUploadLimit(r.Context(), mustUser(r).ID)
	if err != nil {
		h.fail(w, r, err, "User")
		return
	}
	writeJSON(w, http.StatusOK, limit)
}

func (h *APIHandler) FileURLHandler(w http.ResponseWriter, r *http.Request) {
	storageID := r.URL.Query().Get("storageId")
	if storageID == "" {
		writeError(w, http.StatusBadRequest, "storageId is required")
		return
	}
	url, err := h.Files.URL(r.Context(), storageID)
	if err != nil {
		h.fail(w, r, err, "File")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *APIHandler) DeleteAttachmentHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Files.DeleteAttachment(r.Context(), mustUser(r).ID, chi.URLParam(r, "attachmentID")); err != nil {
		h.fail(w, r, err, "Attachment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
