// Package core holds the application services behind the HTTP API: users,
// usage accounting, chats, messages, projects, keys, files and completions.
package core

import (
	"context"

	"github.com/andresthedesigner/videodaddychat/internal/auth"
)

// Caller is who a request acts for. Identity is nil for anonymous callers,
// who may instead carry a client-generated AnonymousID.
type Caller struct {
	Identity    *auth.Identity
	AnonymousID string
}

// CallerFrom builds a Caller from the identity the auth middleware placed on
// ctx. anonymousID is only kept when there is no identity.
func CallerFrom(ctx context.Context, anonymousID string) Caller {
	if id, ok := auth.IdentityFrom(ctx); ok {
		return Caller{Identity: id}
	}
	return Caller{AnonymousID: anonymousID}
}

func (c Caller) Authenticated() bool {
	return c.Identity != nil
}
