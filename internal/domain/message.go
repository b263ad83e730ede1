package domain

import (
	"fmt"
	"time"
)

// SenderRole indicates who authored a chat message.
type SenderRole string

const (
	SenderRoleLocator  SenderRole = "locator"
	SenderRoleCustomer SenderRole = "customer"
	SenderRoleSystem   SenderRole = "system"
)

// ParseSenderRole validates a raw sender role from the store.
func ParseSenderRole(raw string) (SenderRole, error) {
	switch SenderRole(raw) {
	case SenderRoleLocator, SenderRoleCustomer, SenderRoleSystem:
		return SenderRole(raw), nil
	}
	return "", fmt.Errorf("unknown sender role %q", raw)
}

// Message is one entry in a ticket's chat thread. Messages are immutable
// once written except for the read flag.
type Message struct {
	ID            string
	TicketID      string
	SenderID      string
	SenderRole    SenderRole
	Content       string
	CreatedAt     time.Time
	IsRead        bool
	AttachmentURL *string
}

// Less orders messages by creation time ascending, ties broken by id so the
// thread order is deterministic.
func (m Message) Less(other Message) bool {
	if m.CreatedAt.Equal(other.CreatedAt) {
		return m.ID < other.ID
	}
	return m.CreatedAt.Before(other.CreatedAt)
}
