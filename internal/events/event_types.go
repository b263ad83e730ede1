package events

import (
	"time"

	"github.com/fieldkit/locate-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketClosed         EventType = "ticket_closed"
	EventTicketEnRouteChanged EventType = "ticket_en_route_changed"
	EventMessageSent          EventType = "message_sent"
	EventProfileUpdated       EventType = "profile_updated"
)

// Event represents a domain event emitted by the core.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	ActorUID  string      `json:"actor_uid,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	ClosedAt  time.Time           `json:"closed_at"`
}

// TicketEnRoutePayload payload.
type TicketEnRoutePayload struct {
	IsEnRoute bool `json:"is_en_route"`
}

// MessageSentPayload payload.
type MessageSentPayload struct {
	MessageID     string            `json:"message_id"`
	SenderRole    domain.SenderRole `json:"sender_role"`
	HasAttachment bool              `json:"has_attachment"`
	BodyPreview   string            `json:"body_preview"`
}

// ProfileUpdatedPayload payload.
type ProfileUpdatedPayload struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}
