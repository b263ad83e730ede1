package dto

import (
	"time"

	"github.com/fieldkit/locate-service/internal/domain"
)

// TicketResponse is the API shape of a ticket. Status carries the derived
// archive state; stored_status exposes what the store actually holds.
type TicketResponse struct {
	ID              string              `json:"id"`
	CustomerName    string              `json:"customer_name"`
	Address         string              `json:"address"`
	Status          domain.TicketStatus `json:"status"`
	StoredStatus    domain.TicketStatus `json:"stored_status"`
	Type            domain.TicketType   `json:"type"`
	CreatedAt       time.Time           `json:"created_at"`
	ClosedAt        *time.Time          `json:"closed_at,omitempty"`
	AssignedLocator string              `json:"assigned_locator"`
	ContactPhone    *string             `json:"contact_phone,omitempty"`
	ContactEmail    *string             `json:"contact_email,omitempty"`
	Notes           *string             `json:"notes,omitempty"`
	DueDate         *time.Time          `json:"due_date,omitempty"`
	IsEnRoute       bool                `json:"is_en_route"`
}

// EnRouteRequest toggles the en-route flag.
type EnRouteRequest struct {
	IsEnRoute bool `json:"is_en_route"`
}
