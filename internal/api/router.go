package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/andresthedesigner/videodaddychat/internal/auth"
)

func NewRouter(h *APIHandler, tm *auth.TokenManager, limiter *RateLimiter) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HealthHandler)
		r.Post("/webhooks/users", h.UserWebhookHandler)

		// Routes below accept a bearer token but do not require one.
		r.Group(func(r chi.Router) {
			r.Use(Authenticate(tm))
			r.Use(h.LoadUser)

			// Public routes
			r.With(limiter.Middleware).Post("/chat", h.ChatHandler)
			r.Get("/rate-limits", h.RateLimitsHandler)
			r.Get("/models", h.ListModelsHandler)
			r.Post("/create-guest", h.CreateGuestHandler)
			r.Get("/public/chats/{chatID}/messages", h.PublicMessagesHandler)
			r.Get("/projects", h.DeprecatedListProjectsHandler)
			r.Post("/projects", h.DeprecatedCreateProjectHandler)
			r.Post("/agents/classify", h.ClassifyHandler)
			r.Post("/agents/process", h.ProcessHandler)
			r.Get("/agents/config", h.AgentConfigHandler)

			// User-authenticated routes
			r.Group(func(r chi.Router) {
				r.Use(h.RequireUser)

				r.Post("/models", h.RefreshModelsHandler)
				r.Get("/me", h.CurrentUserHandler)
				r.Put("/me/system-prompt", h.UpdateSystemPromptHandler)

				r.Post("/create-chat", h.CreateChatHandler)
				r.Post("/toggle-chat-pin", h.TogglePinHandler)
				r.Post("/update-chat-model", h.UpdateChatModelHandler)
				r.Get("/chats", h.ListChatsHandler)
				r.Post("/chats/sync", h.SyncChatsHandler)
				r.Route("/chats/{chatID}", func(r chi.Router) {
					r.Get("/", h.GetChatDetailsHandler)
					r.Patch("/", h.UpdateChatHandler)
					r.Delete("/", h.DeleteChatHandler)
					r.Get("/messages", h.ListMessagesHandler)
					r.Post("/messages", h.PostMessagesHandler)
					r.Delete("/messages", h.DeleteMessagesHandler)
					r.Get("/messages/last", h.LastMessagesHandler)
					r.Get("/attachments", h.ListAttachmentsHandler)
				})

				r.Get("/v1/projects", h.ListProjectsHandler)
				r.Post("/v1/projects", h.CreateProjectHandler)
				r.Get("/projects/{projectID}", h.GetProjectHandler)
				r.Put("/projects/{projectID}", h.RenameProjectHandler)
				r.Delete("/projects/{projectID}", h.DeleteProjectHandler)

				r.Post("/user-keys", h.SaveUserKeyHandler)
				r.Delete("/user-keys", h.DeleteUserKeyHandler)
				r.Get("/user-key-status", h.UserKeyStatusHandler)
				r.Post("/providers", h.ProviderStatusHandler)

				r.Get("/user-preferences", h.GetPreferencesHandler)
				r.Put("/user-preferences", h.UpdatePreferencesHandler)
				r.Get("/user-preferences/favorite-models", h.GetFavoriteModelsHandler)
				r.Post("/user-preferences/favorite-models", h.UpdateFavoriteModelsHandler)

				r.Post("/files/upload-url", h.UploadURLHandler)
				r.Post("/files", h.SaveAttachmentHandler)
				r.Get("/files/limit", h.UploadLimitHandler)
				r.Get("/files/url", h.FileURLHandler)
				r.Delete("/files/{attachmentID}", h.DeleteAttachmentHandler)

				r.Post("/feedback", h.FeedbackHandler)
			})
		})
	})

	return r
}
