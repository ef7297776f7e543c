package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// The unversioned collection is retired in favour of /api/v1/projects.
func (h *APIHandler) DeprecatedListProjectsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusGone, errorBody{
		Error: "This endpoint is deprecated. Use GET /api/v1/projects instead.",
		Hint:  "Projects are now listed for the current user through the versioned API.",
	})
}

func (h *APIHandler) DeprecatedCreateProjectHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusGone, errorBody{
		Error: "This endpoint is deprecated. Use POST /api/v1/projects instead.",
		Hint:  "Projects are now created through the versioned API.",
	})
}

func (h *APIHandler) ListProjectsHandler(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Projects.List(r.Context(), mustUser(r).ID)
	if err != nil {
		h.fail(w, r, err, "Project")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

type projectRequest struct {
	Name string `json:"name"`
}

func (h *APIHandler) CreateProjectHandler(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	project, err := h.Projects.Create(r.Context(), mustUser(r).ID, req.Name)
	if err != nil {
		h.fail(w, r, err, "Project")
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (h *APIHandler) GetProjectHandler(w http.ResponseWriter, r *http.Request) {
	project, err := h.Projects.Get(r.Context(), mustUser(r).ID, chi.URLParam(r, "projectID"))
	if err != nil {
		h.fail(w, r, err, "Project")
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *APIHandler) RenameProjectHandler(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	project, err := h.Projects.Rename(r.Context(), mustUser(r).ID, chi.URLParam(r, "projectID"), req.Name)
	if err != nil {
		h.fail(w, r, err, "Project")
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *APIHandler) DeleteProjectHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Projects.Delete(r.Context(), mustUser(r).ID, chi.URLParam(r, "projectID")); err != nil {
		h.fail(w, r, err, "Project")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
