package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/cardmarket/internal/service"
)

// DashboardHandler serves the per-actor summary.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboardService}
}

// Summary GET /api/dashboard.
func (h *DashboardHandler) Summary(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	d, err := h.dashboard.Summary(c.UserContext(), actor)
	if err != nil {
		return err
	}
	data := fiber.Map{
		"roles":               d.Roles,
		"cards":               d.Cards,
		"orders":              d.Orders,
		"revenue":             d.Revenue,
		"spent":               d.Spent,
		"buyer_balance":       d.BuyerBalance,
		"pending_withdrawals": d.PendingWithdrawals,
		"pending_deposits":    d.PendingDeposits,
		"open_tickets":        d.OpenTickets,
	}
	if d.SellerBalance != nil {
		data["seller_balance"] = d.SellerBalance
	}
	if d.Users != nil {
		data["users"] = *d.Users
	}
	return c.JSON(fiber.Map{"data": data})
}
