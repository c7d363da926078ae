package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/cardmarket/internal/api/dto"
	"github.com/spec-kit/cardmarket/internal/domain"
	"github.com/spec-kit/cardmarket/internal/service"
)

// OrdersHandler serves order history and admin decisions.
type OrdersHandler struct {
	orders *service.OrderService
}

// NewOrdersHandler constructs handler.
func NewOrdersHandler(orderService *service.OrderService) *OrdersHandler {
	return &OrdersHandler{orders: orderService}
}

// List GET /api/orders.
func (h *OrdersHandler) List(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	page, err := h.orders.List(c.UserContext(), actor, listQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(pageResponse(page, dto.NewOrderResponse))
}

// Get GET /api/orders/:id.
func (h *OrdersHandler) Get(c *fiber.Ctx) error {
	return h.apply(c, h.orders.Get)
}

// Fulfil POST /api/orders/:id/fulfil.
func (h *OrdersHandler) Fulfil(c *fiber.Ctx) error {
	return h.apply(c, h.orders.Fulfil)
}

// Cancel POST /api/orders/:id/cancel.
func (h *OrdersHandler) Cancel(c *fiber.Ctx) error {
	return h.apply(c, h.orders.Cancel)
}

func (h *OrdersHandler) apply(c *fiber.Ctx, fn func(context.Context, *domain.User, string) (*domain.Order, error)) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	order, err := fn(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOrderResponse(order)})
}
