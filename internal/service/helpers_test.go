package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/cardmarket/internal/auth"
	"github.com/spec-kit/cardmarket/internal/config"
	"github.com/spec-kit/cardmarket/internal/domain"
	"github.com/spec-kit/cardmarket/internal/events"
	"github.com/spec-kit/cardmarket/internal/repository"
	"github.com/spec-kit/cardmarket/internal/repository/memory"
	"github.com/spec-kit/cardmarket/internal/session"
	apperrors "github.com/spec-kit/cardmarket/pkg/util"
)

type testEnv struct {
	repos      repository.Set
	sessions   *session.Manager
	dispatcher events.Dispatcher
	cfg        config.Config

	auth        *AuthService
	cards       *CardService
	orders      *OrderService
	users       *UserService
	withdrawals *WithdrawalService
	deposits    *DepositService
	tickets     *TicketService
	dashboard   *DashboardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvOn(t, memory.NewStore(0).Repositories())
}

// newTestEnvOn seeds repos with the demo data and wires every service over
// them.
func newTestEnvOn(t *testing.T, repos repository.Set) *testEnv {
	t.Helper()
	ctx := context.Background()

	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret",
			AccessTokenTTLMinutes:   60,
			PasswordResetTTLMinutes: 30,
			BcryptCost:              bcrypt.MinCost,
			MinPasswordLength:       6,
		},
		Market: config.MarketConfig{
			DefaultCommission:  decimal.NewFromInt(10),
			OrderAutoComplete:  true,
			DepositAddressBTC:  "bc1qtest",
			DepositAddressUSDT: "Ttest",
		},
	}

	require.NoError(t, SeedDemoData(ctx, repos, cfg.Auth.BcryptCost, nil))

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	sessions := session.NewManager(session.NewMemoryStore(), time.Hour)
	dispatcher := events.NewInMemoryDispatcher()

	return &testEnv{
		repos:      repos,
		sessions:   sessions,
		dispatcher: dispatcher,
		cfg:        cfg,
		auth: NewAuthService(cfg, AuthDependencies{
			Repos: repos, Sessions: sessions, Tokens: tokens,
		}),
		cards: NewCardService(CardDependencies{
			Repos: repos, Dispatcher: dispatcher, AutoComplete: cfg.Market.OrderAutoComplete,
		}),
		orders: NewOrderService(OrderDependencies{Repos: repos, Dispatcher: dispatcher}),
		users: NewUserService(UserDependencies{
			Repos: repos, Sessions: sessions, Market: cfg.Market, Dispatcher: dispatcher,
		}),
		withdrawals: NewWithdrawalService(WithdrawalDependencies{Repos: repos, Dispatcher: dispatcher}),
		deposits:    NewDepositService(DepositDependencies{Repos: repos, Market: cfg.Market, Dispatcher: dispatcher}),
		tickets:     NewTicketService(TicketDependencies{Repos: repos, Dispatcher: dispatcher}),
		dashboard:   NewDashboardService(repos),
	}
}

// user reloads a seeded account: "1" admin, "2" seller, "3" buyer.
func (e *testEnv) user(t *testing.T, id string) *domain.User {
	t.Helper()
	u, err := e.repos.Users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (e *testEnv) admin(t *testing.T) *domain.User  { return e.user(t, "1") }
func (e *testEnv) seller(t *testing.T) *domain.User { return e.user(t, "2") }
func (e *testEnv) buyer(t *testing.T) *domain.User  { return e.user(t, "3") }

// record captures every event of the given types.
func (e *testEnv) record(types ...events.EventType) *[]events.Event {
	var got []events.Event
	for _, et := range types {
		e.dispatcher.Subscribe(et, func(_ context.Context, ev events.Event) error {
			got = append(got, ev)
			return nil
		})
	}
	return &got
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, apperrors.IsCode(err, code), "want %s, got %v", code, err)
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }
