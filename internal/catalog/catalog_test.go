package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderFor(t *testing.T) {
	tests := map[string]string{
		"openrouter:deepseek/deepseek-r1:free": ProviderOpenRouter,
		"gpt-4.1-nano":                         ProviderOpenAI,
		"o4-mini":                              ProviderOpenAI,
		"mistral-large-latest":                 ProviderMistral,
		"pixtral-large-latest":                 ProviderMistral,
		"claude-haiku-4-5-20250929":            ProviderAnthropic,
		"gemini-2.0-flash":                     ProviderGoogle,
		"grok-3":                               ProviderXAI,
		"sonar":                                ProviderPerplexity,
		"llama3.2:latest":                      ProviderOllama,
	}
	for id, want := range tests {
		assert.Equal(t, want, ProviderFor(id), id)
	}
}

func TestCatalog_CachesUntilRefresh(t *testing.T) {
	calls := 0
	c := New(func(context.Context) ([]Model, error) {
		calls++
		return []Model{{ID: "gpt-4.1-nano"}, {ID: "qwen2.5"}}, nil
	})
	now := time.Unix(0, 0)
	c.now = func() time.Time { return now }

	models, err := c.All(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, ProviderOpenAI, models[0].Provider)
	assert.Equal(t, ProviderOllama, models[1].Provider)

	_, err = c.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	c.Refresh()
	_, err = c.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	now = now.Add(defaultTTL)
	_, err = c.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestCatalog_LoaderError(t *testing.T) {
	boom := errors.New("boom")
	c := New(func(context.Context) ([]Model, error) { return nil, boom })
	_, err := c.All(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestCatalog_Find(t *testing.T) {
	c := New(nil)
	m, ok, err := c.Find(context.Background(), "sonar")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ProviderPerplexity, m.Provider)

	_, ok, err = c.Find(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWithAccess(t *testing.T) {
	models := []Model{
		{ID: "gpt-4.1-nano", Provider: ProviderOpenAI},
		{ID: "claude-sonnet-4-5-20250929", Provider: ProviderAnthropic},
		{ID: "llama3", Provider: ProviderOllama},
	}

	anon := WithAccess(models, false, nil)
	assert.True(t, anon[0].Accessible)
	assert.False(t, anon[1].Accessible)
	assert.False(t, anon[2].Accessible)

	user := WithAccess(models, true, []string{ProviderAnthropic})
	assert.True(t, user[1].Accessible)
	assert.True(t, user[2].Accessible)
	assert.False(t, models[1].Accessible)
}
