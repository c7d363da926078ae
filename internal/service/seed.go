package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/cardmarket/internal/auth"
	"github.com/spec-kit/cardmarket/internal/domain"
	"github.com/spec-kit/cardmarket/internal/repository"
)

// DemoPassword is shared by every seeded account.
const DemoPassword = "test123"

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func money(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func ptr[T any](v T) *T { return &v }

// SeedDemoData loads the demo admin, seller and buyer with a few cards and
// payouts. It does nothing when the admin account already exists.
func SeedDemoData(ctx context.Context, repos repository.Set, bcryptCost int, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := repos.Users.GetByID(ctx, "1"); err == nil {
		logger.Debug("demo data already present")
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(DemoPassword, bcryptCost)
	if err != nil {
		return err
	}
	lastLogin := day("2025-06-13")

	users := []domain.User{
		{
			ID: "1", Username: "admin", Email: "admin@site.com",
			Roles:        domain.NewRoleSet(domain.RoleAdmin),
			BuyerBalance: money(1000),
			RegisteredAt: day("2024-01-01"),
		},
		{
			ID: "2", Username: "seller", Email: "seller@site.com",
			Roles:         domain.NewRoleSet(domain.RoleSeller),
			BuyerBalance:  money(500),
			SellerBalance: ptr(money(2000)),
			Commission:    ptr(money(10)),
			WalletAddress: "0xsellerwallet",
			RegisteredAt:  day("2024-03-15"),
		},
		{
			ID: "3", Username: "buyer", Email: "buyer@site.com",
			Roles:        domain.NewRoleSet(domain.RoleBuyer),
			BuyerBalance: money(250),
			RegisteredAt: day("2024-05-10"),
		},
	}

	cards := []domain.Card{
		{ID: "c1", SellerID: "2", CardNumber: "4111111111111111", Expiration: "12/26", CVV: "123", Price: money(100), Status: domain.CardStatusActive},
		{ID: "c2", SellerID: "2", CardNumber: "5555555555554444", Expiration: "11/25", CVV: "321", Price: money(80), Status: domain.CardStatusSold},
	}

	// The sold card carries the completed order so every sold card has
	// exactly one order.
	order := domain.Order{
		ID: "o1", CardID: "c2", BuyerID: "3", SellerID: "2",
		Price: money(80), Status: domain.OrderStatusCompleted,
		CreatedAt: day("2025-06-13"),
	}

	withdrawal := domain.Withdrawal{
		SellerID:   "2",
		Amount:     money(100),
		Commission: money(10),
		Received:   domain.NetOfCommission(money(100), money(10)),
		Address:    "0xsellerwallet",
		Status:     domain.PayoutStatusCompleted,
		TxID:       ptr("TX123456"),
		CreatedAt:  day("2025-06-10"),
		DecidedAt:  ptr(day("2025-06-11")),
	}

	deposit := domain.Deposit{
		UserID:    "3",
		Amount:    money(120),
		Currency:  domain.CurrencyUSDT,
		TxHash:    "f1e2d3c4b5a6",
		Status:    domain.PayoutStatusPending,
		CreatedAt: day("2025-06-12"),
	}

	ticket := domain.Ticket{
		OwnerID: "3",
		Title:   "Payment not received",
		Reason:  domain.TicketReasonPayment,
		Status:  domain.TicketStatusOpen,
		Messages: []domain.TicketMessage{
			{SenderID: "3", Sender: "buyer", Text: "I paid but the card is not in my orders.", Time: day("2025-05-01")},
			{SenderID: "1", Sender: "admin", Text: "We are checking the payment.", Time: day("2025-05-02")},
		},
		CreatedAt: day("2025-05-01"),
	}

	err = repos.Tx.RunInTx(ctx, func(ctx context.Context) error {
		for i := range users {
			u := &users[i]
			u.PasswordHash = hash
			u.Status = domain.UserStatusActive
			u.LastLoginAt = &lastLogin
			if u.Roles.Has(domain.RoleSeller) {
				u.SellerID = ptr(u.ID)
			}
			if err := repos.Users.Create(ctx, u); err != nil {
				return err
			}
		}
		for i := range cards {
			if err := repos.Cards.Create(ctx, &cards[i]); err != nil {
				return err
			}
		}
		if err := repos.Orders.Create(ctx, &order); err != nil {
			return err
		}
		if err := repos.Withdrawals.Create(ctx, &withdrawal); err != nil {
			return err
		}
		if err := repos.Deposits.Create(ctx, &deposit); err != nil {
			return err
		}
		return repos.Tickets.Create(ctx, &ticket)
	})
	if err != nil {
		return err
	}

	logger.Info("demo data seeded",
		zap.Int("users", len(users)),
		zap.Int("cards", len(cards)))
	return nil
}
