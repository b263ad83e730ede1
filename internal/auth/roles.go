package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldkit/locate-service/internal/domain"
)

// RequireRole ensures the caller's profile carries one of the allowed
// roles. With no roles given, any authenticated caller passes.
func RequireRole(allowed ...domain.UserRole) fiber.Handler {
	allowedSet := make(map[domain.UserRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.User.Role]; !exists {
			return fiber.NewError(http.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}

// RequireLocator ensures the caller is a field locator.
func RequireLocator() fiber.Handler {
	return RequireRole(domain.UserRoleLocator)
}
