package service

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/cardmarket/internal/access"
	"github.com/spec-kit/cardmarket/internal/config"
	"github.com/spec-kit/cardmarket/internal/domain"
	"github.com/spec-kit/cardmarket/internal/events"
	"github.com/spec-kit/cardmarket/internal/listing"
	"github.com/spec-kit/cardmarket/internal/repository"
	"github.com/spec-kit/cardmarket/internal/session"
	apperrors "github.com/spec-kit/cardmarket/pkg/util"
)

// UserService manages accounts and seller settings on behalf of admins.
type UserService struct {
	users             repository.UserRepository
	tx                repository.TxRunner
	sessions          *session.Manager
	defaultCommission decimal.Decimal
	events            publisher
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	Repos      repository.Set
	Sessions   *session.Manager
	Market     config.MarketConfig
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

var hundred = decimal.NewFromInt(100)

var userFields = listing.Fields[domain.User]{
	Search: []func(*domain.User) string{
		func(u *domain.User) string { return u.Username },
		func(u *domain.User) string { return u.Email },
		func(u *domain.User) string { return u.ID },
	},
	Filter: map[string]func(*domain.User) string{
		"status": func(u *domain.User) string { return string(u.Status) },
		"role": func(u *domain.User) string {
			if r, ok := u.Roles.Primary(); ok {
				return r.String()
			}
			return ""
		},
	},
	Sort: map[string]func(a, b *domain.User) int{
		"username":      func(a, b *domain.User) int { return compareString(a.Username, b.Username) },
		"email":         func(a, b *domain.User) int { return compareString(a.Email, b.Email) },
		"registered_at": func(a, b *domain.User) int { return compareTime(a.RegisteredAt, b.RegisteredAt) },
		"last_login_at": func(a, b *domain.User) int { return compareOptionalTime(a.LastLoginAt, b.LastLoginAt) },
		"buyer_balance": func(a, b *domain.User) int { return a.BuyerBalance.Cmp(b.BuyerBalance) },
	},
}

var sellerFields = listing.Fields[domain.User]{
	Search: userFields.Search,
	Filter: map[string]func(*domain.User) string{
		"status": func(u *domain.User) string { return string(u.Status) },
	},
	Sort: map[string]func(a, b *domain.User) int{
		"username":       userFields.Sort["username"],
		"registered_at":  userFields.Sort["registered_at"],
		"seller_balance": func(a, b *domain.User) int { return a.AvailableSellerBalance().Cmp(b.AvailableSellerBalance()) },
		"commission":     func(a, b *domain.User) int { return a.CommissionRate().Cmp(b.CommissionRate()) },
	},
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	return &UserService{
		users:             deps.Repos.Users,
		tx:                deps.Repos.Tx,
		sessions:          deps.Sessions,
		defaultCommission: deps.Market.DefaultCommission,
		events:            newPublisher(deps.Dispatcher, deps.Logger),
	}
}

// List returns all users to admins. Everyone else is denied.
func (s *UserService) List(ctx context.Context, actor *domain.User, q listing.Query) (listing.Page[domain.User], error) {
	all, err := s.users.List(ctx)
	if err != nil {
		return listing.Page[domain.User]{}, apperrors.MapError(err)
	}
	visible, ok := access.VisibleUsers(actor, all)
	if !ok {
		return listing.Page[domain.User]{}, apperrors.NewForbidden("unauthorized")
	}
	return listing.Apply(visible, q, userFields)
}

// Get returns one user to an admin.
func (s *UserService) Get(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	if err := access.Authorize(actor, access.ActionUserManage); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapNotFound(err, "user", id)
	}
	return user, nil
}

// Block disables an account and revokes its sessions.
func (s *UserService) Block(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	if err := access.Authorize(actor, access.ActionUserManage); err != nil {
		return nil, err
	}
	if actor.ID == id {
		return nil, apperrors.NewFieldError("id", "admins cannot block themselves")
	}
	user, err := s.setStatus(ctx, actor, id, domain.UserStatusBlocked)
	if err != nil {
		return nil, err
	}
	if s.sessions != nil {
		if err := s.sessions.EndAll(ctx, id); err != nil {
			s.events.logger.Warn("revoke sessions failed", zap.String("user_id", id), zap.Error(err))
		}
	}
	return user, nil
}

// Unblock re-enables an account.
func (s *UserService) Unblock(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	return s.setStatus(ctx, actor, id, domain.UserStatusActive)
}

func (s *UserService) setStatus(ctx context.Context, actor *domain.User, id string, next domain.UserStatus) (*domain.User, error) {
	if err := access.Authorize(actor, access.ActionUserManage); err != nil {
		return nil, err
	}
	var (
		user     *domain.User
		previous domain.UserStatus
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.users.GetByID(ctx, id)
		if err != nil {
			return apperrors.MapNotFound(err, "user", id)
		}
		previous = user.Status
		if previous == next {
			return nil
		}
		user.Status = next
		return s.users.Update(ctx, user)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if previous != next {
		s.events.publish(ctx, events.New(events.EventUserStatusChanged, id, actor.ID, events.UserStatusChangedPayload{
			OldStatus: previous,
			NewStatus: next,
		}))
	}
	return user, nil
}

// Promote grants the seller role. A nil commission uses the market default.
func (s *UserService) Promote(ctx context.Context, actor *domain.User, id string, commission *decimal.Decimal) (*domain.User, error) {
	if err := access.Authorize(actor, access.ActionUserManage); err != nil {
		return nil, err
	}
	rate := s.defaultCommission
	if commission != nil {
		rate = *commission
	}
	if err := validateCommission(rate); err != nil {
		return nil, err
	}

	var user *domain.User
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.users.GetByID(ctx, id)
		if err != nil {
			return apperrors.MapNotFound(err, "user", id)
		}
		if user.IsSeller() {
			return apperrors.NewConflict("user is already a seller", map[string]any{"id": id})
		}
		user.PromoteToSeller(rate)
		return s.users.Update(ctx, user)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.events.publish(ctx, events.New(events.EventSellerPromoted, id, actor.ID, events.SellerPromotedPayload{Commission: rate}))
	return user, nil
}

// ListSellers returns every seller to admins and a seller its own record.
func (s *UserService) ListSellers(ctx context.Context, actor *domain.User, q listing.Query) (listing.Page[domain.User], error) {
	all, err := s.users.List(ctx)
	if err != nil {
		return listing.Page[domain.User]{}, apperrors.MapError(err)
	}
	visible, ok := access.VisibleSellers(actor, all)
	if !ok {
		return listing.Page[domain.User]{}, apperrors.NewForbidden("unauthorized")
	}
	return listing.Apply(visible, q, sellerFields)
}

// SetCommission changes a seller's commission percent.
func (s *UserService) SetCommission(ctx context.Context, actor *domain.User, sellerID string, commission decimal.Decimal) (*domain.User, error) {
	if err := access.Authorize(actor, access.ActionSellerCommission); err != nil {
		return nil, err
	}
	if err := validateCommission(commission); err != nil {
		return nil, err
	}

	var user *domain.User
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.users.GetByID(ctx, sellerID)
		if err != nil {
			return apperrors.MapNotFound(err, "seller", sellerID)
		}
		if !user.IsSeller() {
			return apperrors.NewNotFound("seller", map[string]any{"id": sellerID})
		}
		rate := commission
		user.Commission = &rate
		return s.users.Update(ctx, user)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

func validateCommission(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return apperrors.NewFieldError("commission", "commission must be between 0 and 100")
	}
	return nil
}
