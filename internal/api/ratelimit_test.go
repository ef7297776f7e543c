package api

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/andresthedesigner/videodaddychat/internal/auth"
)

func TestRateLimiter_PerClient(t *testing.T) {
	l := NewRateLimiter(0.001, 2)
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	l := NewRateLimiter(1, 1)
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("old")
	now = now.Add(20 * time.Minute)
	l.Allow("fresh")

	assert.Equal(t, 1, l.Cleanup(limiterIdleTTL))
	assert.Equal(t, 1, l.size())
}

func TestClientKey(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/chat", nil)
	r.RemoteAddr = "203.0.113.7:5123"
	assert.Equal(t, "ip:203.0.113.7", clientKey(r))

	r = r.WithContext(auth.WithIdentity(r.Context(), &auth.Identity{Subject: "u1"}))
	assert.Equal(t, "user:u1", clientKey(r))
}
