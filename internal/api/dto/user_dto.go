package dto

import (
	"time"

	"github.com/fieldkit/locate-service/internal/domain"
)

// UserResponse is the API shape of a profile.
type UserResponse struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	FullName  string          `json:"full_name"`
	Role      domain.UserRole `json:"role"`
	Phone     *string         `json:"phone,omitempty"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
}

// UpdateProfileRequest carries the editable profile fields.
type UpdateProfileRequest struct {
	Email     string  `json:"email"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Phone     *string `json:"phone"`
}

// DeviceTokenRequest registers a push token on the profile.
type DeviceTokenRequest struct {
	DeviceToken string `json:"device_token"`
}
