package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldkit/locate-service/internal/api/dto"
	"github.com/fieldkit/locate-service/internal/auth"
	"github.com/fieldkit/locate-service/internal/chat"
	"github.com/fieldkit/locate-service/internal/domain"
	"github.com/fieldkit/locate-service/internal/lifecycle"
	"github.com/fieldkit/locate-service/internal/query"
	apperrors "github.com/fieldkit/locate-service/pkg/util/errorutil"
)

// TicketsHandler exposes the locator's ticket list and lifecycle actions.
type TicketsHandler struct {
	engine    *query.Engine
	lifecycle *lifecycle.Manager
	chat      *chat.Synchronizer
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(engine *query.Engine, lm *lifecycle.Manager, sync *chat.Synchronizer) *TicketsHandler {
	return &TicketsHandler{engine: engine, lifecycle: lm, chat: sync}
}

// ListTickets GET /tickets?status=active.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var statusFilter *domain.TicketStatus
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status, err := domain.ParseTicketStatus(raw)
		if err != nil {
			return apperrors.NewValidationError("invalid status filter", fiber.Map{"status": raw})
		}
		statusFilter = &status
	}

	tickets, err := h.engine.ListTickets(c.UserContext(), principal.UID, statusFilter)
	if err != nil {
		return err
	}

	items := make([]dto.TicketResponse, 0, len(tickets))
	now := time.Now()
	for _, t := range tickets {
		items = append(items, ticketResponse(t, now))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CloseTicket POST /tickets/:id/close. Closing through the synchronizer
// also ends any live chat subscription for the ticket.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.chat.CloseTicket(c.UserContext(), principal.UID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(*ticket, time.Now())})
}

// SetEnRoute POST /tickets/:id/en-route.
func (h *TicketsHandler) SetEnRoute(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.EnRouteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.lifecycle.SetEnRoute(c.UserContext(), principal.UID, c.Params("id"), req.IsEnRoute)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"data": ticketResponse(*ticket, time.Now())})
}

func ticketResponse(t domain.Ticket, now time.Time) dto.TicketResponse {
	return dto.TicketResponse{
		ID:              t.ID,
		CustomerName:    t.CustomerName,
		Address:         t.Address,
		Status:          t.EffectiveStatus(now),
		StoredStatus:    t.Status,
		Type:            t.Type,
		CreatedAt:       t.CreatedAt,
		ClosedAt:        t.ClosedAt,
		AssignedLocator: t.AssignedLocator,
		ContactPhone:    t.ContactPhone,
		ContactEmail:    t.ContactEmail,
		Notes:           t.Notes,
		DueDate:         t.DueDate,
		IsEnRoute:       t.IsEnRoute,
	}
}
