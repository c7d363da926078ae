package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/cardmarket/internal/api/dto"
	"github.com/spec-kit/cardmarket/internal/domain"
	"github.com/spec-kit/cardmarket/internal/service"
)

// WithdrawalsHandler serves seller cash-outs.
type WithdrawalsHandler struct {
	withdrawals *service.WithdrawalService
}

// NewWithdrawalsHandler constructs handler.
func NewWithdrawalsHandler(withdrawalService *service.WithdrawalService) *WithdrawalsHandler {
	return &WithdrawalsHandler{withdrawals: withdrawalService}
}

// List GET /api/withdrawals.
func (h *WithdrawalsHandler) List(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	page, err := h.withdrawals.List(c.UserContext(), actor, listQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(pageResponse(page, dto.NewWithdrawalResponse))
}

// Request POST /api/withdrawals.
func (h *WithdrawalsHandler) Request(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.WithdrawalRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	w, err := h.withdrawals.Request(c.UserContext(), actor, req.Amount, req.Address)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewWithdrawalResponse(w)})
}

// Approve POST /api/withdrawals/:id/approve.
func (h *WithdrawalsHandler) Approve(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.ApproveWithdrawalRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	w, err := h.withdrawals.Approve(c.UserContext(), actor, c.Params("id"), req.TxID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewWithdrawalResponse(w)})
}

// Reject POST /api/withdrawals/:id/reject.
func (h *WithdrawalsHandler) Reject(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	w, err := h.withdrawals.Reject(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewWithdrawalResponse(w)})
}

// DepositsHandler serves buyer top-ups.
type DepositsHandler struct {
	deposits *service.DepositService
}

// NewDepositsHandler constructs handler.
func NewDepositsHandler(depositService *service.DepositService) *DepositsHandler {
	return &DepositsHandler{deposits: depositService}
}

// Addresses GET /api/deposits/addresses.
func (h *DepositsHandler) Addresses(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.deposits.Addresses()})
}

// List GET /api/deposits.
func (h *DepositsHandler) List(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	page, err := h.deposits.List(c.UserContext(), actor, listQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(pageResponse(page, dto.NewDepositResponse))
}

// Request POST /api/deposits.
func (h *DepositsHandler) Request(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.DepositRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	d, err := h.deposits.Request(c.UserContext(), actor, req.Amount, req.Currency, req.TxHash)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewDepositResponse(d)})
}

// Confirm POST /api/deposits/:id/confirm.
func (h *DepositsHandler) Confirm(c *fiber.Ctx) error {
	return h.decide(c, h.deposits.Confirm)
}

// Reject POST /api/deposits/:id/reject.
func (h *DepositsHandler) Reject(c *fiber.Ctx) error {
	return h.decide(c, h.deposits.Reject)
}

func (h *DepositsHandler) decide(c *fiber.Ctx, fn func(context.Context, *domain.User, string) (*domain.Deposit, error)) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	d, err := fn(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDepositResponse(d)})
}
