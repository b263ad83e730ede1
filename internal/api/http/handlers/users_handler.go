package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/fieldkit/locate-service/internal/api/dto"
	"github.com/fieldkit/locate-service/internal/auth"
	"github.com/fieldkit/locate-service/internal/domain"
	"github.com/fieldkit/locate-service/internal/events"
	"github.com/fieldkit/locate-service/internal/gateway"
	apperrors "github.com/fieldkit/locate-service/pkg/util/errorutil"
)

// UsersHandler manages the caller's own profile document.
type UsersHandler struct {
	gateway    *gateway.Gateway
	dispatcher events.Dispatcher
}

// NewUsersHandler constructs handler.
func NewUsersHandler(gw *gateway.Gateway, dispatcher events.Dispatcher) *UsersHandler {
	return &UsersHandler{gateway: gw, dispatcher: dispatcher}
}

// GetProfile GET /me.
func (h *UsersHandler) GetProfile(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{"data": userResponse(*principal.User)})
}

// UpdateProfile PUT /me. Renaming a locator changes the formatted display
// identity that tickets join on; existing tickets keep the old string.
func (h *UsersHandler) UpdateProfile(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return apperrors.NewValidationError("first_name and last_name required", nil)
	}

	updated := *principal.User
	updated.Email = strings.TrimSpace(req.Email)
	updated.FirstName = strings.TrimSpace(req.FirstName)
	updated.LastName = strings.TrimSpace(req.LastName)
	updated.Phone = req.Phone

	if err := h.gateway.UpdateUserProfile(c.UserContext(), updated); err != nil {
		return err
	}

	if h.dispatcher != nil {
		_ = h.dispatcher.Publish(c.UserContext(), events.Event{
			ID:       uuid.NewString(),
			Type:     events.EventProfileUpdated,
			ActorUID: updated.ID,
			Payload: events.ProfileUpdatedPayload{
				UserID:      updated.ID,
				DisplayName: updated.FullName(),
			},
		})
	}
	return c.JSON(fiber.Map{"data": userResponse(updated)})
}

// RegisterDeviceToken PUT /me/device-token.
func (h *UsersHandler) RegisterDeviceToken(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.DeviceTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.DeviceToken) == "" {
		return apperrors.NewValidationError("device_token required", nil)
	}
	if err := h.gateway.SetDeviceToken(c.UserContext(), principal.UID, req.DeviceToken); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func userResponse(u domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		FullName:  u.FullName(),
		Role:      u.Role,
		Phone:     u.Phone,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}
