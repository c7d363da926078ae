package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/cardmarket/internal/access"
	"github.com/spec-kit/cardmarket/internal/domain"
	"github.com/spec-kit/cardmarket/internal/events"
	"github.com/spec-kit/cardmarket/internal/listing"
	"github.com/spec-kit/cardmarket/internal/repository"
	apperrors "github.com/spec-kit/cardmarket/pkg/util"
)

// OrderService exposes order history and admin fulfilment.
type OrderService struct {
	orders repository.OrderRepository
	users  repository.UserRepository
	tx     repository.TxRunner
	events publisher
}

// OrderDependencies bundles collaborators for the order service.
type OrderDependencies struct {
	Repos      repository.Set
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

var orderFields = listing.Fields[domain.Order]{
	Search: []func(*domain.Order) string{
		func(o *domain.Order) string { return o.ID },
		func(o *domain.Order) string { return o.CardID },
	},
	Filter: map[string]func(*domain.Order) string{
		"status":    func(o *domain.Order) string { return string(o.Status) },
		"seller_id": func(o *domain.Order) string { return o.SellerID },
		"buyer_id":  func(o *domain.Order) string { return o.BuyerID },
		"card_id":   func(o *domain.Order) string { return o.CardID },
	},
	Sort: map[string]func(a, b *domain.Order) int{
		"price":      func(a, b *domain.Order) int { return a.Price.Cmp(b.Price) },
		"created_at": func(a, b *domain.Order) int { return compareTime(a.CreatedAt, b.CreatedAt) },
		"status":     func(a, b *domain.Order) int { return compareString(a.Status, b.Status) },
	},
}

// NewOrderService constructs the service.
func NewOrderService(deps OrderDependencies) *OrderService {
	return &OrderService{
		orders: deps.Repos.Orders,
		users:  deps.Repos.Users,
		tx:     deps.Repos.Tx,
		events: newPublisher(deps.Dispatcher, deps.Logger),
	}
}

// List returns the orders visible to actor.
func (s *OrderService) List(ctx context.Context, actor *domain.User, q listing.Query) (listing.Page[domain.Order], error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return listing.Page[domain.Order]{}, apperrors.MapError(err)
	}
	return listing.Apply(access.VisibleOrders(actor, orders), q, orderFields)
}

// Get returns one order if actor may see it.
func (s *OrderService) Get(ctx context.Context, actor *domain.User, id string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapNotFound(err, "order", id)
	}
	if !access.OrderVisible(actor, order) {
		return nil, apperrors.NewForbidden("unauthorized")
	}
	return order, nil
}

// Fulfil completes a pending order and credits the seller.
func (s *OrderService) Fulfil(ctx context.Context, actor *domain.User, id string) (*domain.Order, error) {
	return s.decide(ctx, actor, id, domain.OrderStatusCompleted, func(ctx context.Context, o *domain.Order) error {
		return creditSeller(ctx, s.users, o.SellerID, o.Price)
	})
}

// Cancel cancels a pending order and refunds the buyer. The card stays sold.
func (s *OrderService) Cancel(ctx context.Context, actor *domain.User, id string) (*domain.Order, error) {
	return s.decide(ctx, actor, id, domain.OrderStatusCancelled, func(ctx context.Context, o *domain.Order) error {
		buyer, err := s.users.GetByID(ctx, o.BuyerID)
		if err != nil {
			return apperrors.MapNotFound(err, "user", o.BuyerID)
		}
		buyer.BuyerBalance = buyer.BuyerBalance.Add(o.Price)
		return s.users.Update(ctx, buyer)
	})
}

func (s *OrderService) decide(ctx context.Context, actor *domain.User, id string, next domain.OrderStatus, settle func(context.Context, *domain.Order) error) (*domain.Order, error) {
	if err := access.Authorize(actor, access.ActionOrderDecide); err != nil {
		return nil, err
	}
	var order *domain.Order
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.GetByID(ctx, id)
		if err != nil {
			return apperrors.MapNotFound(err, "order", id)
		}
		if !order.IsPending() {
			return apperrors.NewConflict("order is already "+string(order.Status), map[string]any{"id": id})
		}
		if err := settle(ctx, order); err != nil {
			return err
		}
		order.Status = next
		return s.orders.Update(ctx, order)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return order, nil
}
