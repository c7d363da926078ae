package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/cardmarket/internal/api/http/handlers"
	"github.com/spec-kit/cardmarket/internal/auth"
	"github.com/spec-kit/cardmarket/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Cards          *handlers.CardsHandler
	Orders         *handlers.OrdersHandler
	Users          *handlers.UsersHandler
	Withdrawals    *handlers.WithdrawalsHandler
	Deposits       *handlers.DepositsHandler
	Tickets        *handlers.TicketsHandler
	Dashboard      *handlers.DashboardHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Role gates here are coarse; services
// apply ownership and visibility rules.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/forgot", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset", cfg.Auth.ConfirmPasswordReset)

	session := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	session.Post("/logout", cfg.Auth.Logout)
	session.Post("/password/change", cfg.Auth.ChangePassword)
	session.Get("/me", cfg.Auth.Me)

	api := app.Group("/api", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	admin := auth.RequireRole(domain.RoleAdmin)

	api.Get("/dashboard", cfg.Dashboard.Summary)

	cards := api.Group("/cards")
	cards.Get("/", cfg.Cards.List)
	cards.Post("/", auth.RequireRole(domain.RoleSeller), cfg.Cards.Create)
	cards.Post("/bulk", auth.RequireRole(domain.RoleSeller), cfg.Cards.CreateBulk)
	cards.Get("/:id", cfg.Cards.Get)
	cards.Patch("/:id", auth.RequireRole(domain.RoleSeller), cfg.Cards.Update)
	cards.Post("/:id/block", auth.RequireRole(domain.RoleAdmin, domain.RoleSeller), cfg.Cards.Block)
	cards.Post("/:id/unblock", auth.RequireRole(domain.RoleAdmin, domain.RoleSeller), cfg.Cards.Unblock)
	cards.Post("/:id/purchase", auth.RequireRole(domain.RoleBuyer), cfg.Cards.Purchase)

	orders := api.Group("/orders")
	orders.Get("/", cfg.Orders.List)
	orders.Get("/:id", cfg.Orders.Get)
	orders.Post("/:id/fulfil", admin, cfg.Orders.Fulfil)
	orders.Post("/:id/cancel", admin, cfg.Orders.Cancel)

	users := api.Group("/users", admin)
	users.Get("/", cfg.Users.List)
	users.Get("/:id", cfg.Users.Get)
	users.Post("/:id/block", cfg.Users.Block)
	users.Post("/:id/unblock", cfg.Users.Unblock)
	users.Post("/:id/promote", cfg.Users.Promote)

	sellers := api.Group("/sellers")
	sellers.Get("/", auth.RequireRole(domain.RoleAdmin, domain.RoleSeller), cfg.Users.ListSellers)
	sellers.Patch("/:id/commission", admin, cfg.Users.SetCommission)

	withdrawals := api.Group("/withdrawals", auth.RequireRole(domain.RoleAdmin, domain.RoleSeller))
	withdrawals.Get("/", cfg.Withdrawals.List)
	withdrawals.Post("/", auth.RequireRole(domain.RoleSeller), cfg.Withdrawals.Request)
	withdrawals.Post("/:id/approve", admin, cfg.Withdrawals.Approve)
	withdrawals.Post("/:id/reject", admin, cfg.Withdrawals.Reject)

	deposits := api.Group("/deposits")
	deposits.Get("/addresses", cfg.Deposits.Addresses)
	deposits.Get("/", cfg.Deposits.List)
	deposits.Post("/", auth.RequireRole(domain.RoleBuyer), cfg.Deposits.Request)
	deposits.Post("/:id/confirm", admin, cfg.Deposits.Confirm)
	deposits.Post("/:id/reject", admin, cfg.Deposits.Reject)

	tickets := api.Group("/tickets")
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/messages", cfg.Tickets.AddMessage)
	tickets.Post("/:id/close", admin, cfg.Tickets.CloseTicket)
	tickets.Post("/:id/reopen", admin, cfg.Tickets.ReopenTicket)
}
