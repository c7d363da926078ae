package service

import (
	"context"
	"maps"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/cardmarket/internal/access"
	"github.com/spec-kit/cardmarket/internal/config"
	"github.com/spec-kit/cardmarket/internal/domain"
	"github.com/spec-kit/cardmarket/internal/events"
	"github.com/spec-kit/cardmarket/internal/listing"
	"github.com/spec-kit/cardmarket/internal/repository"
	apperrors "github.com/spec-kit/cardmarket/pkg/util"
)

// DepositService funds buyer balances.
type DepositService struct {
	deposits  repository.DepositRepository
	users     repository.UserRepository
	tx        repository.TxRunner
	addresses map[domain.DepositCurrency]string
	events    publisher
}

// DepositDependencies bundles collaborators for the deposit service.
type DepositDependencies struct {
	Repos      repository.Set
	Market     config.MarketConfig
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

var depositFields = listing.Fields[domain.Deposit]{
	Search: []func(*domain.Deposit) string{
		func(d *domain.Deposit) string { return d.ID },
		func(d *domain.Deposit) string { return d.TxHash },
	},
	Filter: map[string]func(*domain.Deposit) string{
		"status":   func(d *domain.Deposit) string { return string(d.Status) },
		"currency": func(d *domain.Deposit) string { return string(d.Currency) },
		"user_id":  func(d *domain.Deposit) string { return d.UserID },
	},
	Sort: map[string]func(a, b *domain.Deposit) int{
		"amount":     func(a, b *domain.Deposit) int { return a.Amount.Cmp(b.Amount) },
		"created_at": func(a, b *domain.Deposit) int { return compareTime(a.CreatedAt, b.CreatedAt) },
		"status":     func(a, b *domain.Deposit) int { return compareString(a.Status, b.Status) },
	},
}

// NewDepositService constructs the service.
func NewDepositService(deps DepositDependencies) *DepositService {
	return &DepositService{
		deposits: deps.Repos.Deposits,
		users:    deps.Repos.Users,
		tx:       deps.Repos.Tx,
		addresses: map[domain.DepositCurrency]string{
			domain.CurrencyBTC:  deps.Market.DepositAddressBTC,
			domain.CurrencyUSDT: deps.Market.DepositAddressUSDT,
		},
		events: newPublisher(deps.Dispatcher, deps.Logger),
	}
}

// Addresses returns the receiving address per currency.
func (s *DepositService) Addresses() map[domain.DepositCurrency]string {
	return maps.Clone(s.addresses)
}

// Request records a pending deposit the buyer claims to have sent.
func (s *DepositService) Request(ctx context.Context, actor *domain.User, amount decimal.Decimal, currency, txHash string) (*domain.Deposit, error) {
	if err := access.Authorize(actor, access.ActionDepositRequest); err != nil {
		return nil, err
	}
	problems := map[string]any{}
	if !amount.IsPositive() {
		problems["amount"] = "amount must be greater than zero"
	}
	cur, err := domain.ParseDepositCurrency(currency)
	if err != nil {
		problems["currency"] = "currency must be BTC or USDT"
	}
	txHash = strings.TrimSpace(txHash)
	if txHash == "" {
		problems["tx_hash"] = "transaction hash is required"
	}
	if len(problems) > 0 {
		return nil, apperrors.NewValidationError("invalid deposit", problems)
	}

	d := &domain.Deposit{
		UserID:   actor.ID,
		Amount:   amount,
		Currency: cur,
		TxHash:   txHash,
		Status:   domain.PayoutStatusPending,
	}
	if err := s.deposits.Create(ctx, d); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.events.publish(ctx, events.New(events.EventDepositRequested, d.ID, actor.ID, depositPayload(d)))
	return d, nil
}

// List returns deposits visible to actor.
func (s *DepositService) List(ctx context.Context, actor *domain.User, q listing.Query) (listing.Page[domain.Deposit], error) {
	all, err := s.deposits.List(ctx)
	if err != nil {
		return listing.Page[domain.Deposit]{}, apperrors.MapError(err)
	}
	return listing.Apply(access.VisibleDeposits(actor, all), q, depositFields)
}

// Confirm credits the buyer balance and records it before and after.
func (s *DepositService) Confirm(ctx context.Context, actor *domain.User, id string) (*domain.Deposit, error) {
	return s.decide(ctx, actor, id, domain.PayoutStatusCompleted, func(ctx context.Context, d *domain.Deposit) error {
		user, err := s.users.GetByID(ctx, d.UserID)
		if err != nil {
			return apperrors.MapNotFound(err, "user", d.UserID)
		}
		before := user.BuyerBalance
		after := before.Add(d.Amount)
		user.BuyerBalance = after
		d.BalanceBefore = &before
		d.BalanceAfter = &after
		return s.users.Update(ctx, user)
	})
}

// Reject refuses a pending deposit.
func (s *DepositService) Reject(ctx context.Context, actor *domain.User, id string) (*domain.Deposit, error) {
	return s.decide(ctx, actor, id, domain.PayoutStatusRejected, func(context.Context, *domain.Deposit) error { return nil })
}

func (s *DepositService) decide(ctx context.Context, actor *domain.User, id string, next domain.PayoutStatus, settle func(context.Context, *domain.Deposit) error) (*domain.Deposit, error) {
	if err := access.Authorize(actor, access.ActionDepositDecide); err != nil {
		return nil, err
	}
	var d *domain.Deposit
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		d, err = s.deposits.GetByID(ctx, id)
		if err != nil {
			return apperrors.MapNotFound(err, "deposit", id)
		}
		if d.Status != domain.PayoutStatusPending {
			return apperrors.NewConflict("deposit is already "+string(d.Status), map[string]any{"id": id})
		}
		if err := settle(ctx, d); err != nil {
			return err
		}
		decided := utcNow()
		d.Status = next
		d.DecidedAt = &decided
		return s.deposits.Update(ctx, d)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.events.publish(ctx, events.New(events.EventDepositDecided, d.ID, actor.ID, depositPayload(d)))
	return d, nil
}

func depositPayload(d *domain.Deposit) events.DepositPayload {
	return events.DepositPayload{
		UserID:   d.UserID,
		Amount:   d.Amount,
		Currency: d.Currency,
		Status:   d.Status,
	}
}
