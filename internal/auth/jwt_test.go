package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresthedesigner/videodaddychat/internal/common"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager("test-secret")

	token, err := m.GenerateJWT(Identity{Subject: "user_123", Email: "a@example.com", Name: "Ann"})
	require.NoError(t, err)

	id, err := m.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "user_123", id.Subject)
	assert.Equal(t, "a@example.com", id.Email)
	assert.Equal(t, "Ann", id.Name)
}

func TestTokenManager_RequiresSubject(t *testing.T) {
	_, err := NewTokenManager("s").GenerateJWT(Identity{})
	require.Error(t, err)
}

func TestTokenManager_WrongSecret(t *testing.T) {
	token, err := NewTokenManager("one").GenerateJWT(Identity{Subject: "u"})
	require.NoError(t, err)

	_, err = NewTokenManager("two").ValidateJWT(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidToken))
}

func TestTokenManager_Expired(t *testing.T) {
	m := NewTokenManager("s")
	m.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	token, err := m.GenerateJWT(Identity{Subject: "u"})
	require.NoError(t, err)

	_, err = NewTokenManager("s").ValidateJWT(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidToken))
}

func TestTokenManager_RejectsNoneAlg(t *testing.T) {
	claims := jwt.MapClaims{"sub": "u", "exp": time.Now().Add(time.Hour).Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenManager("s").ValidateJWT(token)
	require.Error(t, err)
}

func TestContextHelpers(t *testing.T) {
	ctx := WithIdentity(t.Context(), &Identity{Subject: "u1"})
	id, ok := IdentityFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", id.Subject)

	_, ok = IdentityFrom(t.Context())
	assert.False(t, ok)
}
