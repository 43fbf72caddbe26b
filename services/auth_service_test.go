package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/pos-terminal/models"
	"github.com/yeremiapane/pos-terminal/utils"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuth(t *testing.T) (*AuthService, *fakeRemote, *utils.TokenManager) {
	t.Helper()
	remote := newFakeRemote()
	remote.accounts["ama"] = fakeAccount{
		password: "s3cret",
		user:     RemoteUser{ID: 7, Username: "ama", Email: "ama@example.com", Role: models.RoleCashier, IsActive: true},
	}
	tokens := utils.NewTokenManager("test-secret", time.Hour)
	auth := NewAuthService(newTestDB(t), remote, tokens, newFakeClock())
	auth.hashCost = bcrypt.MinCost
	return auth, remote, tokens
}

func TestAuthService_OnlineLogin(t *testing.T) {
	auth, _, tokens := newTestAuth(t)

	res, err := auth.Login(context.Background(), "ama", "s3cret")
	require.NoError(t, err)
	assert.False(t, res.Offline)
	assert.Equal(t, uint(7), res.User.ID)

	claims, err := tokens.ParseToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "remote-ama", claims.RemoteToken)
	assert.Equal(t, models.RoleCashier, claims.Role)

	var cached models.User
	require.NoError(t, auth.db.Where("username = ?", "ama").First(&cached).Error)
	assert.NotEqual(t, "s3cret", cached.PasswordHash)
}

func TestAuthService_RejectedLoginDoesNotFallBack(t *testing.T) {
	auth, _, _ := newTestAuth(t)

	_, err := auth.Login(context.Background(), "ama", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = auth.Login(context.Background(), "", "x")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAuthService_OfflineLogin(t *testing.T) {
	auth, remote, tokens := newTestAuth(t)
	ctx := context.Background()

	_, err := auth.Login(ctx, "ama", "s3cret")
	require.NoError(t, err)

	remote.loginErr = fmt.Errorf("%w: dial tcp: connection refused", ErrTransientNetwork)

	res, err := auth.Login(ctx, "ama", "s3cret")
	require.NoError(t, err)
	assert.True(t, res.Offline)
	claims, err := tokens.ParseToken(res.Token)
	require.NoError(t, err)
	assert.Empty(t, claims.RemoteToken)
	assert.Equal(t, uint(7), claims.UserID)

	_, err = auth.Login(ctx, "ama", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = auth.Login(ctx, "kofi", "whatever")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthService_DisabledAccount(t *testing.T) {
	auth, remote, _ := newTestAuth(t)
	acct := remote.accounts["ama"]
	acct.user.IsActive = false
	remote.accounts["ama"] = acct

	_, err := auth.Login(context.Background(), "ama", "s3cret")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthService_MeAndLogout(t *testing.T) {
	auth, remote, tokens := newTestAuth(t)
	ctx := context.Background()

	res, err := auth.Login(ctx, "ama", "s3cret")
	require.NoError(t, err)
	claims, err := tokens.ParseToken(res.Token)
	require.NoError(t, err)

	me, err := auth.Me(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, "ama@example.com", me.Email)

	remote.meErr = ErrTransientNetwork
	me, err = auth.Me(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, "ama", me.Username)

	remote.meErr = ErrUnauthorized
	_, err = auth.Me(ctx, claims)
	assert.ErrorIs(t, err, ErrUnauthorized)

	auth.Logout(claims)
	_, err = tokens.ParseToken(res.Token)
	assert.ErrorIs(t, err, utils.ErrTokenBlacklisted)

	op := OperatorFromClaims(claims)
	assert.Equal(t, "remote-ama", op.Token)
	assert.Equal(t, Actor{UserID: 7, Role: models.RoleCashier}, op.Actor())
}
