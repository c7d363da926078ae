package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/cardmarket/internal/access"
	"github.com/spec-kit/cardmarket/internal/domain"
	"github.com/spec-kit/cardmarket/internal/events"
	"github.com/spec-kit/cardmarket/internal/listing"
	"github.com/spec-kit/cardmarket/internal/repository"
	apperrors "github.com/spec-kit/cardmarket/pkg/util"
)

// WithdrawalService handles seller payouts.
type WithdrawalService struct {
	withdrawals repository.WithdrawalRepository
	users       repository.UserRepository
	tx          repository.TxRunner
	events      publisher
}

// WithdrawalDependencies bundles collaborators for the withdrawal service.
type WithdrawalDependencies struct {
	Repos      repository.Set
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

var withdrawalFields = listing.Fields[domain.Withdrawal]{
	Search: []func(*domain.Withdrawal) string{
		func(w *domain.Withdrawal) string { return w.ID },
		func(w *domain.Withdrawal) string { return w.Address },
	},
	Filter: map[string]func(*domain.Withdrawal) string{
		"status":    func(w *domain.Withdrawal) string { return string(w.Status) },
		"seller_id": func(w *domain.Withdrawal) string { return w.SellerID },
	},
	Sort: map[string]func(a, b *domain.Withdrawal) int{
		"amount":     func(a, b *domain.Withdrawal) int { return a.Amount.Cmp(b.Amount) },
		"created_at": func(a, b *domain.Withdrawal) int { return compareTime(a.CreatedAt, b.CreatedAt) },
		"status":     func(a, b *domain.Withdrawal) int { return compareString(a.Status, b.Status) },
	},
}

// NewWithdrawalService constructs the service.
func NewWithdrawalService(deps WithdrawalDependencies) *WithdrawalService {
	return &WithdrawalService{
		withdrawals: deps.Repos.Withdrawals,
		users:       deps.Repos.Users,
		tx:          deps.Repos.Tx,
		events:      newPublisher(deps.Dispatcher, deps.Logger),
	}
}

// Request creates a pending withdrawal and holds amount from the seller
// balance. An empty address falls back to the seller's wallet.
func (s *WithdrawalService) Request(ctx context.Context, actor *domain.User, amount decimal.Decimal, address string) (*domain.Withdrawal, error) {
	if err := access.Authorize(actor, access.ActionWithdrawalRequest); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, apperrors.NewFieldError("amount", "amount must be greater than zero")
	}

	var w *domain.Withdrawal
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		seller, err := s.users.GetByID(ctx, actor.ID)
		if err != nil {
			return apperrors.MapNotFound(err, "user", actor.ID)
		}
		balance := seller.AvailableSellerBalance()
		if amount.GreaterThan(balance) {
			return apperrors.NewValidationError("amount exceeds seller balance", map[string]any{
				"amount":  "amount exceeds seller balance",
				"balance": balance.StringFixed(2),
			})
		}
		address = strings.TrimSpace(address)
		if address == "" {
			address = seller.WalletAddress
		}
		if address == "" {
			return apperrors.NewFieldError("address", "payout address is required")
		}

		seller.CreditSeller(amount.Neg())
		if err := s.users.Update(ctx, seller); err != nil {
			return err
		}

		commission := seller.CommissionRate()
		w = &domain.Withdrawal{
			SellerID:   seller.SellerKey(),
			Amount:     amount,
			Commission: commission,
			Received:   domain.NetOfCommission(amount, commission),
			Address:    address,
			Status:     domain.PayoutStatusPending,
		}
		return s.withdrawals.Create(ctx, w)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.events.publish(ctx, events.New(events.EventWithdrawalRequested, w.ID, actor.ID, withdrawalPayload(w)))
	return w, nil
}

// List returns withdrawals visible to actor. Buyers are denied.
func (s *WithdrawalService) List(ctx context.Context, actor *domain.User, q listing.Query) (listing.Page[domain.Withdrawal], error) {
	all, err := s.withdrawals.List(ctx)
	if err != nil {
		return listing.Page[domain.Withdrawal]{}, apperrors.MapError(err)
	}
	visible, ok := access.VisibleWithdrawals(actor, all)
	if !ok {
		return listing.Page[domain.Withdrawal]{}, apperrors.NewForbidden("unauthorized")
	}
	return listing.Apply(visible, q, withdrawalFields)
}

// Approve marks a pending withdrawal paid. A blank txID gets a generated one.
func (s *WithdrawalService) Approve(ctx context.Context, actor *domain.User, id, txID string) (*domain.Withdrawal, error) {
	txID = strings.TrimSpace(txID)
	if txID == "" {
		txID = "tx_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	return s.decide(ctx, actor, id, domain.PayoutStatusCompleted, func(_ context.Context, w *domain.Withdrawal) error {
		w.TxID = &txID
		return nil
	})
}

// Reject refuses a pending withdrawal and returns the held amount.
func (s *WithdrawalService) Reject(ctx context.Context, actor *domain.User, id string) (*domain.Withdrawal, error) {
	return s.decide(ctx, actor, id, domain.PayoutStatusRejected, func(ctx context.Context, w *domain.Withdrawal) error {
		return creditSeller(ctx, s.users, w.SellerID, w.Amount)
	})
}

func (s *WithdrawalService) decide(ctx context.Context, actor *domain.User, id string, next domain.PayoutStatus, settle func(context.Context, *domain.Withdrawal) error) (*domain.Withdrawal, error) {
	if err := access.Authorize(actor, access.ActionWithdrawalDecide); err != nil {
		return nil, err
	}
	var w *domain.Withdrawal
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		w, err = s.withdrawals.GetByID(ctx, id)
		if err != nil {
			return apperrors.MapNotFound(err, "withdrawal", id)
		}
		if w.Status != domain.PayoutStatusPending {
			return apperrors.NewConflict("withdrawal is already "+string(w.Status), map[string]any{"id": id})
		}
		if err := settle(ctx, w); err != nil {
			return err
		}
		decided := utcNow()
		w.Status = next
		w.DecidedAt = &decided
		return s.withdrawals.Update(ctx, w)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.events.publish(ctx, events.New(events.EventWithdrawalDecided, w.ID, actor.ID, withdrawalPayload(w)))
	return w, nil
}

func withdrawalPayload(w *domain.Withdrawal) events.WithdrawalPayload {
	return events.WithdrawalPayload{
		SellerID: w.SellerID,
		Amount:   w.Amount,
		Received: w.Received,
		Status:   w.Status,
	}
}
