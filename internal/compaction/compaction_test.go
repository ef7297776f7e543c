package compaction

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
	assert.Equal(t, 4, EstimateTokens("Hello, world!"))
}

func TestEstimateTokens_CountsUTF16Units(t *testing.T) {
	assert.Equal(t, 2, EstimateTokens("abc😀"))
	assert.Equal(t, 2, EstimateTokens("😀😀😀"))
	assert.Equal(t, 2, EstimateTokens("héllo"))
}

func TestEstimateMessageTokens_ByRole(t *testing.T) {
	est := EstimateMessageTokens([]Message{
		{Role: "system", Content: "abcd"},
		{Role: "user", Content: "abcdefgh"},
		{Role: "assistant", Content: "a"},
		{Role: "tool", Content: "abcde"},
		{Role: "data", Content: "abcd"},
	})
	assert.Equal(t, 7, est.Total)
	assert.Equal(t, RoleTokens{System: 1, User: 2, Assistant: 1, Tool: 2}, est.ByRole)
}

func TestShouldCompact(t *testing.T) {
	msgs := []Message{{Role: "user", Content: strings.Repeat("a", 40)}}
	assert.False(t, ShouldCompact(msgs, 10))
	assert.True(t, ShouldCompact(msgs, 9))
}

func conversation(n, size int) []Message {
	msgs := make([]Message, n)
	for i := range msgs {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		msgs[i] = Message{ID: string(rune('a' + i)), Role: role, Content: strings.Repeat("x", size)}
	}
	return msgs
}

func TestCompact_UnderThreshold(t *testing.T) {
	msgs := conversation(4, 8)
	res := Compact(msgs, Config{CompactionThreshold: 100})
	assert.False(t, res.Compacted)
	assert.Equal(t, msgs, res.Messages)
	assert.Equal(t, 4, res.OriginalCount)
	assert.Equal(t, 4, res.FinalCount)
	assert.Zero(t, res.TokensSaved)
}

func TestCompact_NothingOlderThanWindow(t *testing.T) {
	msgs := conversation(3, 400)
	res := Compact(msgs, Config{CompactionThreshold: 10, PreserveRecentMessages: 5})
	assert.False(t, res.Compacted)
	assert.Len(t, res.Messages, 3)
}

func TestCompact_SummarisesOlderMessages(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	msgs := conversation(6, 400) // 100 tokens each
	res := Compact(msgs, Config{
		CompactionThreshold:    150,
		PreserveRecentMessages: 2,
		Now:                    func() time.Time { return now },
	})

	require.True(t, res.Compacted)
	assert.Equal(t, 6, res.OriginalCount)
	assert.Equal(t, 3, res.FinalCount)
	require.Len(t, res.Messages, 3)

	summary := res.Messages[0]
	assert.Equal(t, "summary-1700000000000", summary.ID)
	assert.Equal(t, "system", summary.Role)
	assert.True(t, strings.HasPrefix(summary.Content, "[Context Summary]\n"))
	assert.Contains(t, res.Summary, "Previous conversation context (4 messages):")
	assert.Contains(t, res.Summary, "- User messages: 2")
	assert.Contains(t, res.Summary, "- Assistant responses: 2")
	assert.Equal(t, msgs[4:], res.Messages[1:])

	want := 600 - (200 + EstimateTokens(summary.Content))
	assert.Equal(t, want, res.TokensSaved)
}

func TestCompact_ZeroValuesAreLiteral(t *testing.T) {
	msgs := conversation(3, 4)

	res := Compact(msgs, Config{CompactionThreshold: 0, PreserveRecentMessages: 0})
	require.True(t, res.Compacted)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "system", res.Messages[0].Role)
	assert.Contains(t, res.Summary, "(3 messages)")

	res = Compact(msgs, Config{CompactionThreshold: 0, PreserveRecentMessages: 1})
	require.True(t, res.Compacted)
	assert.Equal(t, msgs[2:], res.Messages[1:])

	assert.False(t, Compact(nil, Config{}).Compacted)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultCompactionThreshold, cfg.CompactionThreshold)
	assert.Equal(t, DefaultPreserveRecent, cfg.PreserveRecentMessages)
	assert.False(t, Compact(conversation(20, 40), cfg).Compacted)
}

func TestFormatNote(t *testing.T) {
	ts := time.Date(2025, 1, 15, 23, 30, 0, 0, time.FixedZone("X", -3*3600))
	got := FormatNote(Note{Timestamp: ts, Category: NoteDecision, Content: "ship it"})
	assert.Equal(t, "- ✅ **2025-01-16** [decision]: ship it", got)

	got = FormatNote(Note{Timestamp: ts, Category: NoteIssue, Content: "flaky"})
	assert.Equal(t, "- ⚠️ **2025-01-16** [issue]: flaky", got)
}

func TestBetaHeaders(t *testing.T) {
	assert.Empty(t, BetaHeaders(BetaOptions{}))
	assert.Equal(t,
		map[string]string{"anthropic-beta": "context-management-2025-06-27,context-1m-2025-08-07"},
		BetaHeaders(BetaOptions{ContextManagement: true, ExtendedContext: true}))
}
