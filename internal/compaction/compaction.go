// Package compaction estimates conversation size in tokens and replaces
// older messages with a summary once a threshold is crossed.
package compaction

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf16"
)

const (
	charsPerToken = 4

	DefaultCompactionThreshold = 100_000
	DefaultPreserveRecent      = 10
)

type Message struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

type RoleTokens struct {
	System    int `json:"system"`
	User      int `json:"user"`
	Assistant int `json:"assistant"`
	Tool      int `json:"tool"`
}

type TokenEstimate struct {
	Total  int        `json:"total"`
	ByRole RoleTokens `json:"byRole"`
}

// EstimateTokens approximates the token count at four characters per token.
// Characters are UTF-16 code units, so a character outside the BMP counts
// twice.
func EstimateTokens(text string) int {
	n := 0
	for _, r := range text {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return (n + charsPerToken - 1) / charsPerToken
}

// EstimateMessageTokens sums message estimates. Roles outside the four known
// ones count toward Total only.
func EstimateMessageTokens(msgs []Message) TokenEstimate {
	var est TokenEstimate
	for _, m := range msgs {
		tokens := EstimateTokens(m.Content)
		est.Total += tokens
		switch m.Role {
		case "system":
			est.ByRole.System += tokens
		case "user":
			est.ByRole.User += tokens
		case "assistant":
			est.ByRole.Assistant += tokens
		case "tool":
			est.ByRole.Tool += tokens
		}
	}
	return est
}

// ShouldCompact reports whether msgs exceed threshold tokens.
func ShouldCompact(msgs []Message, threshold int) bool {
	return EstimateMessageTokens(msgs).Total > threshold
}

// Config controls Compact. Values are taken literally: a zero threshold
// compacts any non-empty conversation and a zero PreserveRecentMessages
// keeps no message verbatim. Start from DefaultConfig for the usual limits.
type Config struct {
	CompactionThreshold    int
	PreserveRecentMessages int
	Now                    func() time.Time
}

func DefaultConfig() Config {
	return Config{
		CompactionThreshold:    DefaultCompactionThreshold,
		PreserveRecentMessages: DefaultPreserveRecent,
		Now:                    time.Now,
	}
}

func (c Config) normalize() Config {
	c.PreserveRecentMessages = max(0, c.PreserveRecentMessages)
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

type Result struct {
	Messages      []Message `json:"-"`
	Compacted     bool      `json:"compacted"`
	OriginalCount int       `json:"originalCount"`
	FinalCount    int       `json:"finalCount"`
	TokensSaved   int       `json:"tokensSaved"`
	Summary       string    `json:"summary,omitempty"`
}

// Compact keeps the newest PreserveRecentMessages messages and folds the
// rest into one system message. The input is returned unchanged when it is
// under the threshold or there is nothing older than the preserved window.
func Compact(msgs []Message, cfg Config) Result {
	cfg = cfg.normalize()

	unchanged := Result{
		Messages:      msgs,
		OriginalCount: len(msgs),
		FinalCount:    len(msgs),
	}
	before := EstimateMessageTokens(msgs)
	if before.Total <= cfg.CompactionThreshold {
		return unchanged
	}

	split := max(0, len(msgs)-cfg.PreserveRecentMessages)
	older, recent := msgs[:split], msgs[split:]
	if len(older) == 0 {
		return unchanged
	}

	summary := placeholderSummary(older)
	out := make([]Message, 0, len(recent)+1)
	out = append(out, Message{
		ID:      fmt.Sprintf("summary-%d", cfg.Now().UnixMilli()),
		Role:    "system",
		Content: "[Context Summary]\n" + summary,
	})
	out = append(out, recent...)

	return Result{
		Messages:      out,
		Compacted:     true,
		OriginalCount: len(msgs),
		FinalCount:    len(out),
		TokensSaved:   before.Total - EstimateMessageTokens(out).Total,
		Summary:       summary,
	}
}

func placeholderSummary(msgs []Message) string {
	var users, assistants int
	for _, m := range msgs {
		switch m.Role {
		case "user":
			users++
		case "assistant":
			assistants++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Previous conversation context (%d messages):\n", len(msgs))
	fmt.Fprintf(&b, "- User messages: %d\n", users)
	fmt.Fprintf(&b, "- Assistant responses: %d\n", assistants)
	b.WriteString("- Topics discussed: [pending LLM summarization]\n")
	b.WriteString("- Key decisions: [pending LLM extraction]\n")
	b.WriteString("- Action items: [pending LLM extraction]\n\n")
	b.WriteString("Note: This is a placeholder summary generated without a model.")
	return b.String()
}
