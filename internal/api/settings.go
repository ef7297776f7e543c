package api

import (
	"encoding/json"
	"net/http"

	"github.com/andresthedesigner/videodaddychat/internal/core"
)

func (h *APIHandler) SaveUserKeyHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string `json:"provider"`
		APIKey   string `json:"apiKey"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	isNew, err := h.Keys.Upsert(r.Context(), mustUser(r).ID, req.Provider, req.APIKey)
	if err != nil {
		h.fail(w, r, err, "Key")
		return
	}
	message := "API key updated successfully."
	if isNew {
		message = "API key saved successfully."
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "isNewKey": isNew, "message": message})
}

func (h *APIHandler) DeleteUserKeyHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string `json:"provider"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.Keys.Remove(r.Context(), mustUser(r).ID, req.Provider); err != nil {
		h.fail(w, r, err, "Key")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *APIHandler) UserKeyStatusHandler(w http.ResponseWriter, r *http.Request) {
	status, err := h.Keys.ProviderStatus(r.Context(), mustUser(r).ID)
	if err != nil {
		h.fail(w, r, err, "Key")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *APIHandler) ProviderStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string `json:"provider"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Provider == "" {
		writeError(w, http.StatusBadRequest, "Provider is required")
		return
	}
	status, err := h.Keys.Status(r.Context(), mustUser(r).ID, req.Provider)
	if err != nil {
		h.fail(w, r, err, "Key")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *APIHandler) GetPreferencesHandler(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.Preferences.Get(r.Context(), mustUser(r).ID)
	if err != nil {
		h.fail(w, r, err, "Preferences")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (h *APIHandler) UpdatePreferencesHandler(w http.ResponseWriter, r *http.Request) {
	var raw map[string]json.RawMessage
	if !decodeJSON(w, r, &raw) {
		return
	}
	patch, err := core.ParsePreferencesPatch(raw)
	if err != nil {
		h.fail(w, r, err, "Preferences")
		return
	}
	prefs, err := h.Preferences.Update(r.Context(), mustUser(r).ID, patch)
	if err != nil {
		h.fail(w, r, err, "Preferences")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (h *APIHandler) GetFavoriteModelsHandler(w http.ResponseWriter, r *http.Request) {
	favorites := []string(mustUser(r).FavoriteModels)
	if favorites == nil {
		favorites = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"favorite_models": favorites})
}

func (h *APIHandler) UpdateFavoriteModelsHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FavoriteModels json.RawMessage `json:"favorite_models"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	var items []any
	if err := json.Unmarshal(req.FavoriteModels, &items); err != nil || items == nil {
		writeError(w, http.StatusBadRequest, "favorite_models must be an array")
		return
	}
	favorites := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			writeError(w, http.StatusBadRequest, "All favorite_models must be strings")
			return
		}
		favorites = append(favorites, s)
	}

	if err := h.Users.UpdateFavoriteModels(r.Context(), mustUser(r).ID, favorites); err != nil {
		h.fail(w, r, err, "User")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "favorite_models": favorites})
}

func (h *APIHandler) FeedbackHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	fb, err := h.Feedback.Submit(r.Context(), mustUser(r).ID, req.Message)
	if err != nil {
		h.fail(w, r, err, "Feedback")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "feedback": fb})
}
