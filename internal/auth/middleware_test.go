package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/cardmarket/internal/domain"
	"github.com/spec-kit/cardmarket/internal/repository/memory"
	"github.com/spec-kit/cardmarket/internal/session"
	apperrors "github.com/spec-kit/cardmarket/pkg/util"
)

type middlewareFixture struct {
	app      *fiber.App
	tokens   *TokenManager
	sessions *session.Manager
	users    map[string]*domain.User
}

func newMiddlewareFixture(t *testing.T) *middlewareFixture {
	t.Helper()
	ctx := context.Background()
	repos := memory.NewStore(0).Repositories()
	f := &middlewareFixture{
		tokens:   NewTokenManager("secret", 60),
		sessions: session.NewManager(session.NewMemoryStore(), time.Hour),
		users: map[string]*domain.User{
			"1": {ID: "1", Username: "admin", Email: "admin@site.com", Roles: domain.NewRoleSet(domain.RoleAdmin), Status: domain.UserStatusActive},
			"3": {ID: "3", Username: "buyer", Email: "buyer@site.com", Roles: domain.NewRoleSet(domain.RoleBuyer), Status: domain.UserStatusActive},
			"4": {ID: "4", Username: "gone", Email: "gone@site.com", Roles: domain.NewRoleSet(domain.RoleBuyer), Status: domain.UserStatusBlocked},
		},
	}
	for _, u := range f.users {
		require.NoError(t, repos.Users.Create(ctx, u))
	}

	mw := NewAuthMiddleware(f.tokens, f.sessions, repos.Users)
	f.app = fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	f.app.Get("/me", mw.Handle, RequireAnyRole(), func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.User.ID)
	})
	f.app.Get("/admin", mw.Handle, RequireRole(domain.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return f
}

func (f *middlewareFixture) token(t *testing.T, userID string) (string, *domain.Session) {
	t.Helper()
	sess, err := f.sessions.Start(context.Background(), userID)
	require.NoError(t, err)
	token, _, err := f.tokens.GenerateToken(f.users[userID], sess)
	require.NoError(t, err)
	return token, sess
}

func (f *middlewareFixture) status(t *testing.T, path, header string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestAuthMiddleware(t *testing.T) {
	f := newMiddlewareFixture(t)
	buyer, buyerSess := f.token(t, "3")
	admin, _ := f.token(t, "1")

	assert.Equal(t, fiber.StatusUnauthorized, f.status(t, "/me", ""))
	assert.Equal(t, fiber.StatusUnauthorized, f.status(t, "/me", "Token "+buyer))
	assert.Equal(t, fiber.StatusUnauthorized, f.status(t, "/me", "Bearer garbage"))
	assert.Equal(t, fiber.StatusOK, f.status(t, "/me", "Bearer "+buyer))
	assert.Equal(t, fiber.StatusOK, f.status(t, "/me", "bearer "+buyer))

	assert.Equal(t, fiber.StatusForbidden, f.status(t, "/admin", "Bearer "+buyer))
	assert.Equal(t, fiber.StatusNoContent, f.status(t, "/admin", "Bearer "+admin))

	require.NoError(t, f.sessions.End(context.Background(), buyerSess.ID))
	assert.Equal(t, fiber.StatusUnauthorized, f.status(t, "/me", "Bearer "+buyer), "revoked session")
}

func TestAuthMiddlewareRejectsBlockedUser(t *testing.T) {
	f := newMiddlewareFixture(t)
	token, sess := f.token(t, "4")

	assert.Equal(t, fiber.StatusUnauthorized, f.status(t, "/me", "Bearer "+token))
	_, err := f.sessions.Lookup(context.Background(), sess.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
}
