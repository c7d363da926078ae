package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/cardmarket/internal/domain"
)

func testSession(userID string, ttl time.Duration) *domain.Session {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.Session{ID: "sess-1", UserID: userID, IssuedAt: now, ExpiresAt: now.Add(ttl)}
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 30)
	assert.Equal(t, 30*time.Minute, tm.TTL())

	user := &domain.User{ID: "2", Roles: domain.NewRoleSet(domain.RoleSeller, domain.RoleBuyer)}
	sess := testSession(user.ID, time.Hour)

	token, exp, err := tm.GenerateToken(user, sess)
	require.NoError(t, err)
	assert.True(t, exp.Equal(sess.ExpiresAt))

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "2", claims.Subject)
	assert.Equal(t, "sess-1", claims.SessionID())
	assert.True(t, claims.Roles.Has(domain.RoleSeller))
}

func TestTokenRejected(t *testing.T) {
	user := &domain.User{ID: "3", Roles: domain.NewRoleSet(domain.RoleBuyer)}

	token, _, err := NewTokenManager("secret", 30).GenerateToken(user, testSession(user.ID, time.Hour))
	require.NoError(t, err)
	_, err = NewTokenManager("other", 30).ParseToken(token)
	assert.Error(t, err, "wrong secret")

	expired, _, err := NewTokenManager("secret", 30).GenerateToken(user, testSession(user.ID, -time.Minute))
	require.NoError(t, err)
	_, err = NewTokenManager("secret", 30).ParseToken(expired)
	assert.Error(t, err, "expired")

	_, err = NewTokenManager("secret", 30).ParseToken("not-a-token")
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("test123", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "test123", hash)
	assert.NoError(t, ComparePassword(hash, "test123"))
	assert.Error(t, ComparePassword(hash, "test124"))

	fallback, err := HashPassword("test123", 0)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(fallback))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func TestPasswordPolicy(t *testing.T) {
	assert.NoError(t, CheckPasswordPolicy("test123", 6))
	assert.ErrorIs(t, CheckPasswordPolicy("abc", 6), ErrPasswordTooShort)
	assert.ErrorIs(t, CheckPasswordPolicy(strings.Repeat("x", 73), 6), ErrPasswordTooLong)
}
