// Package reconcile merges a server snapshot of chats with the client's
// pending optimistic operations into the list the client should display.
package reconcile

import (
	"slices"
	"strings"

	"github.com/andresthedesigner/videodaddychat/internal/store"
)

// OptimisticPrefix marks chat ids minted by the client before the server
// confirmed the chat.
const OptimisticPrefix = "optimistic-"

type OpType string

const (
	OpAdd    OpType = "add"
	OpUpdate OpType = "update"
	OpDelete OpType = "delete"
)

// Changes is a partial chat update; nil fields are left alone.
type Changes struct {
	Title     *string `json:"title,omitempty"`
	Model     *string `json:"model,omitempty"`
	ProjectID *string `json:"project_id,omitempty"`
	Public    *bool   `json:"public,omitempty"`
	Pinned    *bool   `json:"pinned,omitempty"`
	PinnedAt  *int64  `json:"pinned_at,omitempty"`
	UpdatedAt *int64  `json:"updated_at,omitempty"`
}

type Op struct {
	Type    OpType      `json:"type"`
	ID      string      `json:"id,omitempty"`
	Chat    *store.Chat `json:"chat,omitempty"`
	Changes *Changes    `json:"changes,omitempty"`
}

// Reconcile applies ops in order over a copy of server and returns the result
// ordered by last activity, newest first. Ties keep their relative order.
func Reconcile(server []store.Chat, ops []Op) []store.Chat {
	result := slices.Clone(server)
	if result == nil {
		result = []store.Chat{}
	}

	for _, op := range ops {
		switch op.Type {
		case OpAdd:
			if op.Chat == nil {
				continue
			}
			id := op.Chat.ID
			if strings.HasPrefix(id, OptimisticPrefix) || !containsID(result, id) {
				result = slices.DeleteFunc(result, func(c store.Chat) bool { return c.ID == id })
				result = slices.Insert(result, 0, *op.Chat)
			}
		case OpUpdate:
			if op.Changes == nil {
				continue
			}
			for i := range result {
				if result[i].ID == op.ID {
					apply(&result[i], op.Changes)
				}
			}
		case OpDelete:
			result = slices.DeleteFunc(result, func(c store.Chat) bool { return c.ID == op.ID })
		}
	}

	slices.SortStableFunc(result, func(a, b store.Chat) int {
		la, lb := a.LastActivity(), b.LastActivity()
		switch {
		case la > lb:
			return -1
		case la < lb:
			return 1
		}
		return 0
	})
	return result
}

func containsID(chats []store.Chat, id string) bool {
	return slices.ContainsFunc(chats, func(c store.Chat) bool { return c.ID == id })
}

func apply(c *store.Chat, ch *Changes) {
	if ch.Title != nil {
		c.Title = *ch.Title
	}
	if ch.Model != nil {
		c.Model = *ch.Model
	}
	if ch.ProjectID != nil {
		c.ProjectID = ch.ProjectID
	}
	if ch.Public != nil {
		c.Public = *ch.Public
	}
	if ch.Pinned != nil {
		c.Pinned = *ch.Pinned
	}
	if ch.PinnedAt != nil {
		c.PinnedAt = ch.PinnedAt
	}
	if ch.UpdatedAt != nil {
		c.UpdatedAt = ch.UpdatedAt
	}
}
