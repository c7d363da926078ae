package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/cardmarket/internal/access"
	"github.com/spec-kit/cardmarket/internal/domain"
	"github.com/spec-kit/cardmarket/internal/repository"
	apperrors "github.com/spec-kit/cardmarket/pkg/util"
)

// Dashboard summarises what the actor can see.
type Dashboard struct {
	Roles              domain.RoleSet
	Cards              map[domain.CardStatus]int
	Orders             map[domain.OrderStatus]int
	Revenue            decimal.Decimal
	Spent              decimal.Decimal
	BuyerBalance       decimal.Decimal
	SellerBalance      *decimal.Decimal
	PendingWithdrawals int
	PendingDeposits    int
	OpenTickets        int
	Users              *int
}

// DashboardService computes per-actor summaries.
type DashboardService struct {
	repos repository.Set
}

// NewDashboardService constructs the service.
func NewDashboardService(repos repository.Set) *DashboardService {
	return &DashboardService{repos: repos}
}

// Summary counts over the visible sets only, so it never leaks records the
// actor could not list.
func (s *DashboardService) Summary(ctx context.Context, actor *domain.User) (*Dashboard, error) {
	cards, err := s.repos.Cards.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	orders, err := s.repos.Orders.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	withdrawals, err := s.repos.Withdrawals.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	deposits, err := s.repos.Deposits.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	tickets, err := s.repos.Tickets.List(ctx, repository.TicketFilter{})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	d := &Dashboard{
		Roles:        actor.Roles,
		Cards:        map[domain.CardStatus]int{},
		Orders:       map[domain.OrderStatus]int{},
		Revenue:      decimal.Zero,
		Spent:        decimal.Zero,
		BuyerBalance: actor.BuyerBalance,
	}
	if actor.IsSeller() {
		balance := actor.AvailableSellerBalance()
		d.SellerBalance = &balance
	}

	for _, c := range access.VisibleCards(actor, cards, orders) {
		d.Cards[c.Status]++
	}
	for _, o := range access.VisibleOrders(actor, orders) {
		d.Orders[o.Status]++
		if o.Status != domain.OrderStatusCompleted {
			continue
		}
		if actor.IsAdmin() || o.SellerID == actor.ID {
			d.Revenue = d.Revenue.Add(o.Price)
		}
		if o.BuyerID == actor.ID {
			d.Spent = d.Spent.Add(o.Price)
		}
	}
	if visible, ok := access.VisibleWithdrawals(actor, withdrawals); ok {
		for _, w := range visible {
			if w.Status == domain.PayoutStatusPending {
				d.PendingWithdrawals++
			}
		}
	}
	for _, dep := range access.VisibleDeposits(actor, deposits) {
		if dep.Status == domain.PayoutStatusPending {
			d.PendingDeposits++
		}
	}
	for _, t := range access.VisibleTickets(actor, tickets) {
		if t.Status == domain.TicketStatusOpen {
			d.OpenTickets++
		}
	}
	if actor.IsAdmin() {
		users, err := s.repos.Users.List(ctx)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if visible, ok := access.VisibleUsers(actor, users); ok {
			n := len(visible)
			d.Users = &n
		}
	}
	return d, nil
}
