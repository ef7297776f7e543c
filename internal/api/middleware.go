package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/andresthedesigner/videodaddychat/internal/auth"
	"github.com/andresthedesigner/videodaddychat/internal/store"
)

type ctxKey int

const userKey ctxKey = iota

// Authenticate validates a bearer token when one is sent and puts the
// identity on the request context. Requests without a token pass through
// anonymously; a bad token is rejected.
func Authenticate(tm *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				writeError(w, http.StatusUnauthorized, "Invalid authorization header")
				return
			}
			id, err := tm.ValidateJWT(tokenString)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// LoadUser resolves an authenticated caller to a user row, creating it on
// first sight.
func (h *APIHandler) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFrom(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		user, err := h.Users.EnsureUser(r.Context(), id)
		if err != nil {
			h.log.Error(r.Context(), "failed to load user", "external_id", id.Subject, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to process user identity")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

// RequireUser rejects requests LoadUser left without a user.
func (h *APIHandler) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := userFrom(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userFrom(ctx context.Context) (*store.User, bool) {
	u, ok := ctx.Value(userKey).(*store.User)
	return u, ok && u != nil
}

// userID is the signed-in user's id, or "" for anonymous requests.
func userID(r *http.Request) string {
	if u, ok := userFrom(r.Context()); ok {
		return u.ID
	}
	return ""
}

// mustUser is for handlers behind RequireUser.
func mustUser(r *http.Request) *store.User {
	u, _ := userFrom(r.Context())
	return u
}
