package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)

	token, err := tm.GenerateToken("telegram-adapter", RoleBot)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, "telegram-adapter", claims.Subject)
	require.Equal(t, RoleBot, claims.Role)
	require.NotNil(t, claims.ExpiresAt)
	require.True(t, claims.ExpiresAt.After(time.Now()))
}

func TestNonExpiringToken(t *testing.T) {
	tm := NewTokenManager("test-secret", 0)

	token, err := tm.GenerateToken("ops", RoleAdmin)
	require.NoError(t, err)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, RoleAdmin, claims.Role)
	require.Nil(t, claims.ExpiresAt)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenManager("secret-one", 60).GenerateToken("ops", RoleAdmin)
	require.NoError(t, err)

	_, err = NewTokenManager("secret-two", 60).ParseToken(token)
	require.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)

	_, err := tm.ParseToken("not-a-token")
	require.Error(t, err)
	_, err = tm.ParseToken("")
	require.Error(t, err)
}
