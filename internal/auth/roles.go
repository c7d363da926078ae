package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/cardmarket/internal/domain"
	apperrors "github.com/spec-kit/cardmarket/pkg/util"
)

// RequireRole ensures the principal holds at least one of roles.
func RequireRole(roles ...domain.Role) fiber.Handler {
	allowed := domain.NewRoleSet(roles...)
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.User.Roles.HasAny(allowed) {
			return apperrors.NewForbidden("unauthorized")
		}
		return c.Next()
	}
}

// RequireAnyRole ensures caller is authenticated.
func RequireAnyRole() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
