package core

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresthedesigner/videodaddychat/internal/store"
)

func TestPreferences_DefaultsThenPatch(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u, _ := e.user(t, "ext-1")

	p, err := e.prefs.Get(ctx, u.ID)
	require.NoError(t, err)
	want := store.DefaultPreferences(u.ID)
	assert.Equal(t, &want, p)

	layout := "sidebar"
	off := false
	_, err = e.prefs.Update(ctx, u.ID, PreferencesPatch{Layout: &layout, PromptSuggestions: &off, HiddenModels: []string{"grok-3"}})
	require.NoError(t, err)

	p, err = e.prefs.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "sidebar", p.Layout)
	assert.False(t, p.PromptSuggestions)
	assert.True(t, p.ShowToolInvocations)
	assert.Equal(t, []string{"grok-3"}, []string(p.HiddenModels))
}

func TestParsePreferencesPatch(t *testing.T) {
	raw := func(s string) map[string]json.RawMessage {
		var m map[string]json.RawMessage
		require.NoError(t, json.Unmarshal([]byte(s), &m))
		return m
	}

	p, err := ParsePreferencesPatch(raw(`{"layout":"fullscreen","multi_model_enabled":true,"unknown":1}`))
	require.NoError(t, err)
	assert.Equal(t, "fullscreen", *p.Layout)
	assert.True(t, *p.MultiModelEnabled)
	assert.Nil(t, p.PromptSuggestions)
	assert.Nil(t, p.HiddenModels)

	for body, msg := range map[string]string{
		`{"layout":3}`:                 "layout must be a string",
		`{"layout":null}`:              "layout must be a string",
		`{"hidden_models":"grok-3"}`:   "hidden_models must be an array",
		`{"prompt_suggestions":"yes"}`: "prompt_suggestions must be a boolean",
	} {
		_, err := ParsePreferencesPatch(raw(body))
		assert.EqualError(t, err, msg, body)
	}
}

func TestFeedback(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u, _ := e.user(t, "ext-1")

	_, err := e.feedback.Submit(ctx, u.ID, " ")
	assert.Error(t, err)

	f, err := e.feedback.Submit(ctx, u.ID, "Love the thumbnail tips")
	require.NoError(t, err)
	assert.NotEmpty(t, f.ID)

	list, err := e.feedback.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Love the thumbnail tips", list[0].Message)
}
