package core

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresthedesigner/videodaddychat/internal/auth"
	"github.com/andresthedesigner/videodaddychat/internal/common"
)

func TestEnsureUser(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	id := &auth.Identity{Subject: "ext-1", Email: "a@example.com", Name: "Ada"}

	u, err := e.users.EnsureUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ext-1", u.ExternalID)
	assert.Equal(t, "Ada", *u.DisplayName)
	assert.Nil(t, u.ProfileImage)

	again, err := e.users.EnsureUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)

	_, err = e.users.EnsureUser(ctx, nil)
	assert.ErrorIs(t, err, common.ErrorUnauthenticated)
}

func TestCurrent(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	_, err := e.users.Current(ctx, Caller{AnonymousID: "g"})
	assert.ErrorIs(t, err, common.ErrorUnauthenticated)

	_, err = e.users.Current(ctx, callerFor("ghost"))
	assert.ErrorIs(t, err, common.ErrorUserNotFound)

	u, c := e.user(t, "ext-1")
	got, err := e.users.Current(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestUserSettings(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u, _ := e.user(t, "ext-1")

	require.NoError(t, e.users.UpdateSystemPrompt(ctx, u.ID, "Talk like a pirate."))
	require.NoError(t, e.users.UpdateFavoriteModels(ctx, u.ID, []string{"gpt-4.1-nano", "grok-3"}))
	require.NoError(t, e.users.TouchLastActive(ctx, u.ID))

	got, err := e.store.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Talk like a pirate.", *got.SystemPrompt)
	assert.Equal(t, []string{"gpt-4.1-nano", "grok-3"}, []string(got.FavoriteModels))
	assert.NotZero(t, got.LastActiveAt)

	require.NoError(t, e.users.UpdateSystemPrompt(ctx, u.ID, "   "))
	got, err = e.store.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got.SystemPrompt)

	assert.ErrorIs(t, e.users.TouchLastActive(ctx, "missing"), common.ErrorNotFound)
}

func TestCreateGuest(t *testing.T) {
	e := newTestEnv(t)

	g, err := e.users.CreateGuest(context.Background(), " guest_123:abc@x.y ")
	require.NoError(t, err)
	assert.Equal(t, &GuestUser{ID: "guest_123:abc@x.y", Anonymous: true}, g)

	for in, msg := range map[string]string{
		"":                       "Missing userId",
		"has space":              "Invalid userId format",
		"semi;colon":             "Invalid userId format",
		strings.Repeat("a", 129): "Invalid userId format",
	} {
		_, err := e.users.CreateGuest(context.Background(), in)
		assert.EqualError(t, err, msg, "input %q", in)
	}
}
