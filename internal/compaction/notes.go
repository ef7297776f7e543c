package compaction

import (
	"fmt"
	"strings"
	"time"
)

type NoteCategory string

const (
	NoteDiscovery NoteCategory = "discovery"
	NoteDecision  NoteCategory = "decision"
	NotePattern   NoteCategory = "pattern"
	NoteIssue     NoteCategory = "issue"
	NoteTodo      NoteCategory = "todo"
)

var noteEmoji = map[NoteCategory]string{
	NoteDiscovery: "🔍",
	NoteDecision:  "✅",
	NotePattern:   "📋",
	NoteIssue:     "⚠️",
	NoteTodo:      "📝",
}

type Note struct {
	Timestamp time.Time      `json:"timestamp"`
	Category  NoteCategory   `json:"category"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// FormatNote renders a note as one markdown list item dated in UTC.
func FormatNote(n Note) string {
	date := n.Timestamp.UTC().Format(time.DateOnly)
	if emoji, ok := noteEmoji[n.Category]; ok {
		return fmt.Sprintf("- %s **%s** [%s]: %s", emoji, date, n.Category, n.Content)
	}
	return fmt.Sprintf("- **%s** [%s]: %s", date, n.Category, n.Content)
}

// Anthropic beta feature flags sent in the anthropic-beta header.
const (
	BetaContextManagement = "context-management-2025-06-27"
	BetaTokenEfficient    = "token-efficient-tools-2025-02-19"
	BetaExtendedContext   = "context-1m-2025-08-07"
)

type BetaOptions struct {
	ContextManagement bool
	TokenEfficient    bool
	ExtendedContext   bool
}

// BetaHeaders returns the anthropic-beta header for the enabled features, or
// an empty map when none are.
func BetaHeaders(opts BetaOptions) map[string]string {
	var features []string
	if opts.ContextManagement {
		features = append(features, BetaContextManagement)
	}
	if opts.TokenEfficient {
		features = append(features, BetaTokenEfficient)
	}
	if opts.ExtendedContext {
		features = append(features, BetaExtendedContext)
	}

	headers := map[string]string{}
	if len(features) > 0 {
		headers["anthropic-beta"] = strings.Join(features, ",")
	}
	return headers
}
