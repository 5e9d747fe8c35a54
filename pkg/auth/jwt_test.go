package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hms-console/internal/model"
)

func newSession(ttl time.Duration) *model.Session {
	now := time.Now().UTC().Truncate(time.Second)
	return &model.Session{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Email:     "ada@example.com",
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestTokenRoundTrip(t *testing.T) {
	svc := NewJWTService("secret", "hms-console")
	s := newSession(time.Hour)

	token, err := svc.GenerateAccessToken(s)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)

	restored := SessionFromClaims(claims, token)
	assert.Equal(t, s.ID, restored.ID)
	assert.Equal(t, s.UserID, restored.UserID)
	assert.Equal(t, s.Email, restored.Email)
	assert.True(t, s.ExpiresAt.Equal(restored.ExpiresAt))
	assert.Equal(t, token, restored.Token)
}

func TestValidateTokenRejects(t *testing.T) {
	svc := NewJWTService("secret", "hms-console")

	expired, err := svc.GenerateAccessToken(newSession(-time.Minute))
	require.NoError(t, err)
	_, err = svc.ValidateToken(expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	foreign, err := NewJWTService("other", "hms-console").GenerateAccessToken(newSession(time.Hour))
	require.NoError(t, err)
	_, err = svc.ValidateToken(foreign)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	otherIssuer, err := NewJWTService("secret", "elsewhere").GenerateAccessToken(newSession(time.Hour))
	require.NoError(t, err)
	_, err = svc.ValidateToken(otherIssuer)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	_, err = svc.ValidateToken("garbage")
	assert.Error(t, err)
}
