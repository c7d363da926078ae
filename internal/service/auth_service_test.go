package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/cardmarket/internal/domain"
)

func TestLoginWithDemoAccounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, email := range []string{"admin@site.com", "SELLER@site.com", "buyer@site.com"} {
		res, err := env.auth.Login(ctx, email, DemoPassword)
		require.NoError(t, err, email)
		assert.NotEmpty(t, res.Token)
		assert.NotNil(t, res.User.LastLoginAt)

		claims, err := env.auth.TokenManager().ParseToken(res.Token)
		require.NoError(t, err)
		assert.Equal(t, res.User.ID, claims.Subject)
		assert.Equal(t, res.User.Roles, claims.Roles)

		_, err = env.sessions.Lookup(ctx, claims.SessionID())
		assert.NoError(t, err)
	}
}

func TestLoginFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Login(ctx, "buyer@site.com", "wrong")
	requireCode(t, err, "UNAUTHORIZED")

	_, err = env.auth.Login(ctx, "nobody@site.com", DemoPassword)
	requireCode(t, err, "UNAUTHORIZED")

	_, err = env.users.Block(ctx, env.admin(t), "3")
	require.NoError(t, err)
	_, err = env.auth.Login(ctx, "buyer@site.com", DemoPassword)
	requireCode(t, err, "FORBIDDEN")
}

func TestRegisterCreatesBuyer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.auth.Register(ctx, "newbie", "newbie@site.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, domain.NewRoleSet(domain.RoleBuyer), res.User.Roles)
	assert.True(t, res.User.BuyerBalance.IsZero())
	assert.Nil(t, res.User.SellerBalance)

	_, err = env.auth.Login(ctx, "newbie@site.com", "secret1")
	require.NoError(t, err)

	_, err = env.auth.Register(ctx, "other", "NEWBIE@site.com", "secret1")
	requireCode(t, err, "CONFLICT")

	_, err = env.auth.Register(ctx, "Buyer", "fresh@site.com", "secret1")
	requireCode(t, err, "CONFLICT")

	_, err = env.auth.Register(ctx, "x", "not-an-email", "123")
	requireCode(t, err, "VALIDATION_FAILED")
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	token, err := env.auth.RequestPasswordReset(ctx, "unknown@site.com")
	require.NoError(t, err)
	assert.Nil(t, token)

	old, err := env.auth.Login(ctx, "buyer@site.com", DemoPassword)
	require.NoError(t, err)

	token, err = env.auth.RequestPasswordReset(ctx, "buyer@site.com")
	require.NoError(t, err)
	require.NotNil(t, token)

	require.NoError(t, env.auth.ConfirmPasswordReset(ctx, token.Token, "brandnew"))
	err = env.auth.ConfirmPasswordReset(ctx, token.Token, "again123")
	requireCode(t, err, "VALIDATION_FAILED")

	claims, err := env.auth.TokenManager().ParseToken(old.Token)
	require.NoError(t, err)
	_, err = env.sessions.Lookup(ctx, claims.SessionID())
	assert.Error(t, err, "reset revokes existing sessions")

	_, err = env.auth.Login(ctx, "buyer@site.com", DemoPassword)
	requireCode(t, err, "UNAUTHORIZED")
	_, err = env.auth.Login(ctx, "buyer@site.com", "brandnew")
	require.NoError(t, err)
}

func TestChangePasswordKeepsCurrentSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	current, err := env.auth.Login(ctx, "seller@site.com", DemoPassword)
	require.NoError(t, err)
	other, err := env.auth.Login(ctx, "seller@site.com", DemoPassword)
	require.NoError(t, err)

	currentClaims, err := env.auth.TokenManager().ParseToken(current.Token)
	require.NoError(t, err)
	keep, err := env.sessions.Lookup(ctx, currentClaims.SessionID())
	require.NoError(t, err)

	err = env.auth.ChangePassword(ctx, env.seller(t), keep, "wrong", "newpass1")
	requireCode(t, err, "VALIDATION_FAILED")

	require.NoError(t, env.auth.ChangePassword(ctx, env.seller(t), keep, DemoPassword, "newpass1"))

	_, err = env.sessions.Lookup(ctx, keep.ID)
	assert.NoError(t, err)
	otherClaims, err := env.auth.TokenManager().ParseToken(other.Token)
	require.NoError(t, err)
	_, err = env.sessions.Lookup(ctx, otherClaims.SessionID())
	assert.Error(t, err)
}

func TestLogoutEndsSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.auth.Login(ctx, "admin@site.com", DemoPassword)
	require.NoError(t, err)
	claims, err := env.auth.TokenManager().ParseToken(res.Token)
	require.NoError(t, err)

	require.NoError(t, env.auth.Logout(ctx, claims.SessionID()))
	_, err = env.sessions.Lookup(ctx, claims.SessionID())
	assert.Error(t, err)
	assert.NoError(t, env.auth.Logout(ctx, claims.SessionID()))
}
