package domain

import (
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for locate tickets.
type TicketStatus string

const (
	TicketStatusActive   TicketStatus = "active"
	TicketStatusClosed   TicketStatus = "closed"
	TicketStatusArchived TicketStatus = "archived"
)

// ParseTicketStatus validates a raw status value from the store.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	switch TicketStatus(raw) {
	case TicketStatusActive, TicketStatusClosed, TicketStatusArchived:
		return TicketStatus(raw), nil
	}
	return "", fmt.Errorf("unknown ticket status %q", raw)
}

// TicketType distinguishes routine locates from emergency dig-ins.
type TicketType string

const (
	TicketTypeStandard  TicketType = "standard"
	TicketTypeEmergency TicketType = "emergency"
)

// ParseTicketType validates a raw type value from the store.
func ParseTicketType(raw string) (TicketType, error) {
	switch TicketType(raw) {
	case TicketTypeStandard, TicketTypeEmergency:
		return TicketType(raw), nil
	}
	return "", fmt.Errorf("unknown ticket type %q", raw)
}

// ArchiveAfter is how long a closed ticket remains visible before it is
// reported as archived. The archived state is never written to the store.
const ArchiveAfter = 21 * 24 * time.Hour

// Ticket is a unit of locate work assigned to a field locator.
type Ticket struct {
	ID              string
	CustomerName    string
	Address         string
	Status          TicketStatus
	Type            TicketType
	CreatedAt       time.Time
	ClosedAt        *time.Time
	AssignedLocator string
	ContactPhone    *string
	ContactEmail    *string
	Notes           *string
	DueDate         *time.Time
	IsEnRoute       bool
}

// IsArchived reports whether the ticket has aged past the archive window.
// Derived from ClosedAt at read time; the stored status may still say closed.
func (t Ticket) IsArchived(now time.Time) bool {
	if t.ClosedAt == nil {
		return false
	}
	return now.Sub(*t.ClosedAt) > ArchiveAfter
}

// EffectiveStatus resolves the stored status against the archive window.
func (t Ticket) EffectiveStatus(now time.Time) TicketStatus {
	if t.IsArchived(now) {
		return TicketStatusArchived
	}
	return t.Status
}
