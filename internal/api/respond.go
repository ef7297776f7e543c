package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/andresthedesigner/videodaddychat/internal/common"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Hint  string `json:"hint,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// decodeJSON reads the request body into v, answering 400 itself on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// fail maps a service error to its status code. notFound names the entity
// in the 404 message. Unexpected errors are logged and hidden.
func (h *APIHandler) fail(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var (
		ve  *common.ValidationError
		ae  *common.AccessError
		ule *common.UsageLimitError
		upl *common.UploadLimitError
	)
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Message)
	case errors.As(err, &ule):
		writeJSON(w, http.StatusForbidden, errorBody{Error: ule.Error(), Code: ule.Code()})
	case errors.As(err, &upl):
		writeJSON(w, http.StatusForbidden, errorBody{Error: upl.Error(), Code: upl.Code()})
	case errors.As(err, &ae):
		writeError(w, http.StatusForbidden, ae.Message)
	case errors.Is(err, common.ErrorUnauthenticated):
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, common.ErrorUserNotFound):
		writeError(w, http.StatusUnauthorized, "User not found")
	case errors.Is(err, common.ErrorForbidden):
		writeError(w, http.StatusForbidden, "Not authorized")
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, notFound+" not found")
	case errors.Is(err, common.ErrorStorageDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.log.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
