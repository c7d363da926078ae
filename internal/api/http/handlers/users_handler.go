package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/cardmarket/internal/api/dto"
	"github.com/spec-kit/cardmarket/internal/domain"
	"github.com/spec-kit/cardmarket/internal/service"
	apperrors "github.com/spec-kit/cardmarket/pkg/util"
)

// UsersHandler exposes account administration and seller management.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{users: userService}
}

// List GET /api/users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	page, err := h.users.List(c.UserContext(), actor, listQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(pageResponse(page, dto.NewUserResponse))
}

// Get GET /api/users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	return h.apply(c, h.users.Get)
}

// Block POST /api/users/:id/block.
func (h *UsersHandler) Block(c *fiber.Ctx) error {
	return h.apply(c, h.users.Block)
}

// Unblock POST /api/users/:id/unblock.
func (h *UsersHandler) Unblock(c *fiber.Ctx) error {
	return h.apply(c, h.users.Unblock)
}

// Promote POST /api/users/:id/promote. An empty body uses the default
// commission.
func (h *UsersHandler) Promote(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.PromoteRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	user, err := h.users.Promote(c.UserContext(), actor, c.Params("id"), req.Commission)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// ListSellers GET /api/sellers.
func (h *UsersHandler) ListSellers(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	page, err := h.users.ListSellers(c.UserContext(), actor, listQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(pageResponse(page, dto.NewUserResponse))
}

// SetCommission PATCH /api/sellers/:id/commission.
func (h *UsersHandler) SetCommission(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CommissionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Commission == nil {
		return apperrors.NewFieldError("commission", "commission required")
	}
	user, err := h.users.SetCommission(c.UserContext(), actor, c.Params("id"), *req.Commission)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

func (h *UsersHandler) apply(c *fiber.Ctx, fn func(context.Context, *domain.User, string) (*domain.User, error)) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	user, err := fn(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}
