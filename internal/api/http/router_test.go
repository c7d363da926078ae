package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/cardmarket/internal/api/http/handlers"
	"github.com/spec-kit/cardmarket/internal/auth"
	"github.com/spec-kit/cardmarket/internal/config"
	"github.com/spec-kit/cardmarket/internal/events"
	"github.com/spec-kit/cardmarket/internal/observability"
	"github.com/spec-kit/cardmarket/internal/repository/memory"
	"github.com/spec-kit/cardmarket/internal/service"
	"github.com/spec-kit/cardmarket/internal/session"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	cfg := config.Config{
		App: config.AppConfig{Name: "cardmarket", Version: "test"},
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret",
			AccessTokenTTLMinutes:   60,
			PasswordResetTTLMinutes: 30,
			BcryptCost:              bcrypt.MinCost,
			MinPasswordLength:       6,
		},
		Market: config.MarketConfig{DefaultCommission: decimal.NewFromInt(10), OrderAutoComplete: true},
	}
	logger := zap.NewNop()
	repos := memory.NewStore(0).Repositories()
	require.NoError(t, service.SeedDemoData(context.Background(), repos, cfg.Auth.BcryptCost, logger))

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	sessions := session.NewManager(session.NewMemoryStore(), tokens.TTL())
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	authService := service.NewAuthService(cfg, service.AuthDependencies{Repos: repos, Sessions: sessions, Tokens: tokens, Logger: logger})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, nil, nil, metrics),
		Auth:   handlers.NewAuthHandler(authService),
		Cards: handlers.NewCardsHandler(service.NewCardService(service.CardDependencies{
			Repos: repos, Dispatcher: dispatcher, AutoComplete: true,
		})),
		Orders: handlers.NewOrdersHandler(service.NewOrderService(service.OrderDependencies{Repos: repos, Dispatcher: dispatcher})),
		Users: handlers.NewUsersHandler(service.NewUserService(service.UserDependencies{
			Repos: repos, Sessions: sessions, Market: cfg.Market, Dispatcher: dispatcher,
		})),
		Withdrawals: handlers.NewWithdrawalsHandler(service.NewWithdrawalService(service.WithdrawalDependencies{Repos: repos, Dispatcher: dispatcher})),
		Deposits: handlers.NewDepositsHandler(service.NewDepositService(service.DepositDependencies{
			Repos: repos, Market: cfg.Market, Dispatcher: dispatcher,
		})),
		Tickets:        handlers.NewTicketsHandler(service.NewTicketService(service.TicketDependencies{Repos: repos, Dispatcher: dispatcher})),
		Dashboard:      handlers.NewDashboardHandler(service.NewDashboardService(repos)),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, sessions, repos.Users),
	})
	return app
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Meta  map[string]int  `json:"meta"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func do(t *testing.T, app *fiber.App, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func login(t *testing.T, app *fiber.App, email string) string {
	t.Helper()
	status, env := do(t, app, fiber.MethodPost, "/auth/login", "", map[string]string{
		"email": email, "password": service.DemoPassword,
	})
	require.Equal(t, fiber.StatusOK, status)
	var data struct {
		Auth struct {
			Token string `json:"token"`
		} `json:"auth"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Auth.Token)
	return data.Auth.Token
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t)

	status, _ := do(t, app, fiber.MethodGet, "/health/live", "", nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = do(t, app, fiber.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestErrorEnvelope(t *testing.T) {
	app := newTestApp(t)

	status, env := do(t, app, fiber.MethodGet, "/api/cards", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	status, env = do(t, app, fiber.MethodGet, "/nope", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	status, env = do(t, app, fiber.MethodPost, "/auth/login", "", map[string]string{"email": "buyer@site.com", "password": "bad"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "invalid credentials", env.Error.Message)
}

func TestBuyerFlow(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app, "buyer@site.com")

	status, env := do(t, app, fiber.MethodGet, "/api/cards?sort=-price&page_size=1", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 2, env.Meta["total"])
	assert.Equal(t, 1, env.Meta["page_size"])

	status, env = do(t, app, fiber.MethodGet, "/api/users", token, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	status, _ = do(t, app, fiber.MethodPost, "/api/cards/c1/purchase", token, nil)
	assert.Equal(t, fiber.StatusCreated, status)

	status, env = do(t, app, fiber.MethodPost, "/api/cards/c1/purchase", token, nil)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	status, env = do(t, app, fiber.MethodGet, "/api/orders", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 2, env.Meta["total"])

	status, _ = do(t, app, fiber.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = do(t, app, fiber.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestAdminBlocksUser(t *testing.T) {
	app := newTestApp(t)
	adminToken := login(t, app, "admin@site.com")
	buyerToken := login(t, app, "buyer@site.com")

	status, _ := do(t, app, fiber.MethodPost, "/api/users/3/block", adminToken, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, env := do(t, app, fiber.MethodGet, "/api/users/3", adminToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	var user struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, "blocked", user.Status)

	status, _ = do(t, app, fiber.MethodGet, "/api/cards", buyerToken, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestSellerWithdrawalValidation(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app, "seller@site.com")

	status, env := do(t, app, fiber.MethodPost, "/api/withdrawals", token, map[string]any{"amount": "0"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	assert.Contains(t, env.Error.Details, "amount")

	status, env = do(t, app, fiber.MethodPost, "/api/withdrawals", token, map[string]any{"amount": "250.50"})
	require.Equal(t, fiber.StatusCreated, status)
	var w struct {
		Received string `json:"received"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &w))
	assert.Equal(t, "225.45", w.Received)
}

func TestHugePageIsEmpty(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app, "buyer@site.com")

	status, env := do(t, app, fiber.MethodGet, "/api/cards?page=92233720368547760&page_size=100", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 2, env.Meta["total"])
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestDepositConfirmFlow(t *testing.T) {
	app := newTestApp(t)
	buyer := login(t, app, "buyer@site.com")
	admin := login(t, app, "admin@site.com")

	status, env := do(t, app, fiber.MethodGet, "/api/deposits/addresses", buyer, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, env = do(t, app, fiber.MethodPost, "/api/deposits", buyer, map[string]any{
		"amount": "100", "currency": "USDT", "tx_hash": "abc123",
	})
	require.Equal(t, fiber.StatusCreated, status)
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "pending", created.Status)

	status, env = do(t, app, fiber.MethodPost, "/api/deposits/"+created.ID+"/confirm", buyer, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	status, env = do(t, app, fiber.MethodPost, "/api/deposits/"+created.ID+"/confirm", admin, nil)
	require.Equal(t, fiber.StatusOK, status)
	var confirmed struct {
		Status       string `json:"status"`
		BalanceAfter string `json:"balance_after"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &confirmed))
	assert.Equal(t, "completed", confirmed.Status)
	assert.Equal(t, "350", confirmed.BalanceAfter)

	status, env = do(t, app, fiber.MethodPost, "/api/deposits/"+created.ID+"/reject", admin, nil)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	status, env = do(t, app, fiber.MethodGet, "/api/deposits", buyer, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 2, env.Meta["total"])
}

func TestTicketReplyAndClose(t *testing.T) {
	app := newTestApp(t)
	buyer := login(t, app, "buyer@site.com")
	admin := login(t, app, "admin@site.com")

	status, env := do(t, app, fiber.MethodPost, "/api/tickets", buyer, map[string]string{
		"title": "Want to sell", "reason": "Become Seller Request", "message": "Please promote me",
	})
	require.Equal(t, fiber.StatusCreated, status)
	var ticket struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		Messages []struct {
			Sender  string `json:"sender"`
			Message string `json:"message"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &ticket))
	require.Len(t, ticket.Messages, 1)

	status, env = do(t, app, fiber.MethodPost, "/api/tickets/"+ticket.ID+"/messages", admin, map[string]string{"message": "Done"})
	require.Equal(t, fiber.StatusCreated, status)
	require.NoError(t, json.Unmarshal(env.Data, &ticket))
	require.Len(t, ticket.Messages, 2)
	assert.Equal(t, "admin", ticket.Messages[1].Sender)

	status, _ = do(t, app, fiber.MethodPost, "/api/tickets/"+ticket.ID+"/close", buyer, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, env = do(t, app, fiber.MethodPost, "/api/tickets/"+ticket.ID+"/close", admin, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &ticket))
	assert.Equal(t, "closed", ticket.Status)

	status, env = do(t, app, fiber.MethodPost, "/api/tickets/"+ticket.ID+"/messages", buyer, map[string]string{"message": "Thanks"})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	status, env = do(t, app, fiber.MethodGet, "/api/tickets", buyer, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 2, env.Meta["total"])
}
