// Package lifecycle owns the ticket state machine: active tickets may be
// closed or have their en-route flag toggled; closed tickets accept no
// further transitions. The archived state is never written; it is derived
// from the close timestamp at read time.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldkit/locate-service/internal/domain"
	"github.com/fieldkit/locate-service/internal/events"
	"github.com/fieldkit/locate-service/internal/gateway"
)

// ErrInvalidTransition signals an illegal lifecycle transition. No write is
// performed when it is returned.
var ErrInvalidTransition = errors.New("invalid ticket transition")

// Clock supplies the current time. Injected so archival derivation and
// close timestamps are deterministic under test.
type Clock func() time.Time

// Manager validates and persists ticket state transitions. All writes go
// through the gateway with merge semantics so unrelated fields edited by
// other actors are never clobbered.
type Manager struct {
	gateway    *gateway.Gateway
	dispatcher events.Dispatcher
	clock      Clock
	logger     *zap.Logger
}

// New constructs the manager. A nil clock defaults to time.Now.
func New(gw *gateway.Gateway, dispatcher events.Dispatcher, clock Clock, logger *zap.Logger) *Manager {
	if clock == nil {
		clock = time.Now
	}
	return &Manager{gateway: gw, dispatcher: dispatcher, clock: clock, logger: logger}
}

// Close transitions an active ticket to closed, stamping closedAt with the
// injected clock. Closing a ticket in any other state fails with
// ErrInvalidTransition and performs no write; a missing ticket surfaces the
// store's not-found error.
func (m *Manager) Close(ctx context.Context, actorUID, ticketID string) (*domain.Ticket, error) {
	ticket, err := m.gateway.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.TicketStatusActive {
		return nil, fmt.Errorf("%w: cannot close ticket in status %q", ErrInvalidTransition, ticket.Status)
	}

	now := m.clock()
	if err := m.gateway.SetTicketStatus(ctx, ticketID, domain.TicketStatusClosed, &now); err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	ticket.Status = domain.TicketStatusClosed
	ticket.ClosedAt = &now

	m.logger.Info("ticket closed",
		zap.String("ticket_id", ticketID), zap.String("actor", actorUID))
	m.publish(ctx, events.Event{
		Type:     events.EventTicketClosed,
		TicketID: ticketID,
		ActorUID: actorUID,
		Payload: events.TicketClosedPayload{
			OldStatus: oldStatus,
			ClosedAt:  now,
		},
	})
	return ticket, nil
}

// SetEnRoute toggles the en-route flag. The flag is only meaningful while a
// ticket is active; setting it on a closed ticket is an invalid transition.
func (m *Manager) SetEnRoute(ctx context.Context, actorUID, ticketID string, enRoute bool) (*domain.Ticket, error) {
	ticket, err := m.gateway.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.TicketStatusActive {
		return nil, fmt.Errorf("%w: en-route only applies to active tickets, status is %q", ErrInvalidTransition, ticket.Status)
	}

	if err := m.gateway.SetTicketEnRoute(ctx, ticketID, enRoute); err != nil {
		return nil, err
	}
	ticket.IsEnRoute = enRoute

	m.publish(ctx, events.Event{
		Type:     events.EventTicketEnRouteChanged,
		TicketID: ticketID,
		ActorUID: actorUID,
		Payload:  events.TicketEnRoutePayload{IsEnRoute: enRoute},
	})
	return ticket, nil
}

// EffectiveStatus resolves the derived archive window against the manager's
// clock. Stored status may still read closed for an archived ticket.
func (m *Manager) EffectiveStatus(t domain.Ticket) domain.TicketStatus {
	return t.EffectiveStatus(m.clock())
}

func (m *Manager) publish(ctx context.Context, event events.Event) {
	if m.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = m.clock()
	}
	_ = m.dispatcher.Publish(ctx, event)
}
