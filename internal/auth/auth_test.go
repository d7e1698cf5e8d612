package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner(t *testing.T) {
	s := NewSigner([]byte("topsecret"), time.Hour)

	token, err := s.Sign("user-1", true)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := s.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.True(t, claims.IsAdmin)

	// A different secret must not validate.
	other := NewSigner([]byte("othersecret"), time.Hour)
	_, err = other.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSignerExpiry(t *testing.T) {
	s := NewSigner([]byte("topsecret"), -time.Minute)
	token, err := s.Sign("user-1", false)
	require.NoError(t, err)

	_, err = s.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("gege1234")
	require.NoError(t, err)
	assert.NotEqual(t, "gege1234", hash)

	assert.True(t, CheckPassword(hash, "gege1234"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("not-a-hash", "gege1234"))
}

func TestContextClaims(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithClaims(context.Background(), &Claims{UserID: "u"})
	c, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u", c.UserID)
}
