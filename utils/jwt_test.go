package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	token, err := tm.GenerateToken(7, "ama", "cashier", "remote-abc")
	require.NoError(t, err)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "ama", claims.Username)
	assert.Equal(t, "cashier", claims.Role)
	assert.Equal(t, "remote-abc", claims.RemoteToken)
}

func TestTokenManager_RejectsForeignSecret(t *testing.T) {
	token, err := NewTokenManager("one", time.Hour).GenerateToken(1, "a", "admin", "")
	require.NoError(t, err)

	_, err = NewTokenManager("two", time.Hour).ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_Expired(t *testing.T) {
	tm := NewTokenManager("s", time.Minute)
	issued := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return issued }
	token, err := tm.GenerateToken(1, "a", "admin", "")
	require.NoError(t, err)

	tm.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = tm.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_Revoke(t *testing.T) {
	tm := NewTokenManager("s", time.Hour)
	token, err := tm.GenerateToken(3, "kofi", "kitchen", "")
	require.NoError(t, err)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	tm.Revoke(claims)

	_, err = tm.ParseToken(token)
	assert.ErrorIs(t, err, ErrTokenBlacklisted)
}
