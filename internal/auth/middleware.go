package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldkit/locate-service/internal/domain"
	"github.com/fieldkit/locate-service/internal/gateway"
	"github.com/fieldkit/locate-service/internal/store"
	apperrors "github.com/fieldkit/locate-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller: the opaque uid plus the
// profile document resolved through the gateway.
type Principal struct {
	UID  string
	User *domain.User
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens  *TokenManager
	gateway *gateway.Gateway
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, gw *gateway.Gateway) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, gateway: gw}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	principal := &Principal{UID: claims.UID}
	user, err := m.gateway.GetUser(c.UserContext(), claims.UID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NewUnauthorized("unknown user")
		}
		return apperrors.MapError(err)
	}
	if !user.IsActive {
		return apperrors.NewForbidden("account disabled")
	}
	principal.User = user

	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
