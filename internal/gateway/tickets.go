package gateway

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fieldkit/locate-service/internal/domain"
	"github.com/fieldkit/locate-service/internal/store"
)

// Ticket document field names as stored under the tickets collection.
const (
	fieldCustomerName    = "customerName"
	fieldAddress         = "address"
	fieldStatus          = "status"
	fieldType            = "type"
	fieldCreatedAt       = "createdAt"
	fieldClosedAt        = "closedAt"
	fieldAssignedLocator = "assignedLocator"
	fieldContactPhone    = "contactPhone"
	fieldContactEmail    = "contactEmail"
	fieldNotes           = "notes"
	fieldDueDate         = "dueDate"
	fieldIsEnRoute       = "isEnRoute"
)

// GetTicket fetches and decodes one ticket.
func (g *Gateway) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	doc, err := g.store.Get(ctx, store.CollectionTickets, id)
	if err != nil {
		return nil, err
	}
	ticket, _, err := decodeTicket(doc)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// PutTicket writes the full ticket document, replacing any prior contents.
func (g *Gateway) PutTicket(ctx context.Context, t domain.Ticket) error {
	return g.store.Set(ctx, store.CollectionTickets, t.ID, encodeTicket(t), false)
}

// TicketsByLocator returns tickets whose assignedLocator equals the given
// display identity, optionally narrowed to one stored status. Documents that
// fail to decode are dropped and logged.
func (g *Gateway) TicketsByLocator(ctx context.Context, displayName string, status *domain.TicketStatus) ([]domain.Ticket, error) {
	preds := []store.Predicate{store.Eq(fieldAssignedLocator, displayName)}
	if status != nil {
		preds = append(preds, store.Eq(fieldStatus, string(*status)))
	}
	docs, err := g.store.Query(ctx, store.CollectionTickets, preds, nil)
	if err != nil {
		return nil, err
	}

	tickets := make([]domain.Ticket, 0, len(docs))
	for _, doc := range docs {
		ticket, _, err := decodeTicket(doc)
		if err != nil {
			g.logger.Warn("dropping malformed ticket document",
				zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		tickets = append(tickets, ticket)
	}
	return tickets, nil
}

// SetTicketStatus merge-writes the status transition fields, leaving every
// other field untouched so concurrent edits by other actors survive.
func (g *Gateway) SetTicketStatus(ctx context.Context, id string, status domain.TicketStatus, closedAt *time.Time) error {
	fields := map[string]any{fieldStatus: string(status)}
	if closedAt != nil {
		fields[fieldClosedAt] = *closedAt
	}
	return g.store.Set(ctx, store.CollectionTickets, id, fields, true)
}

// SetTicketEnRoute merge-writes only the en-route flag.
func (g *Gateway) SetTicketEnRoute(ctx context.Context, id string, enRoute bool) error {
	fields := map[string]any{fieldIsEnRoute: enRoute}
	return g.store.Set(ctx, store.CollectionTickets, id, fields, true)
}

func encodeTicket(t domain.Ticket) map[string]any {
	fields := map[string]any{
		fieldCustomerName:    t.CustomerName,
		fieldAddress:         t.Address,
		fieldStatus:          string(t.Status),
		fieldType:            string(t.Type),
		fieldCreatedAt:       t.CreatedAt,
		fieldAssignedLocator: t.AssignedLocator,
		fieldIsEnRoute:       t.IsEnRoute,
	}
	if t.ClosedAt != nil {
		fields[fieldClosedAt] = *t.ClosedAt
	}
	if t.ContactPhone != nil {
		fields[fieldContactPhone] = *t.ContactPhone
	}
	if t.ContactEmail != nil {
		fields[fieldContactEmail] = *t.ContactEmail
	}
	if t.Notes != nil {
		fields[fieldNotes] = *t.Notes
	}
	if t.DueDate != nil {
		fields[fieldDueDate] = *t.DueDate
	}
	return fields
}

// decodeTicket turns a raw document into a Ticket. Absent optional fields
// are defaulted and reported; a status or type value that is present but
// does not parse rejects the whole document.
func decodeTicket(doc store.Document) (domain.Ticket, fieldReport, error) {
	var report fieldReport
	ticket := domain.Ticket{ID: doc.ID}

	if name, ok := stringValue(doc.Fields[fieldCustomerName]); ok {
		ticket.CustomerName = name
	} else {
		ticket.CustomerName = "Unknown Customer"
		report.defaulted(fieldCustomerName)
	}
	if addr, ok := stringValue(doc.Fields[fieldAddress]); ok {
		ticket.Address = addr
	} else {
		ticket.Address = "Unknown"
		report.defaulted(fieldAddress)
	}

	statusRaw, ok := stringValue(doc.Fields[fieldStatus])
	if !ok {
		statusRaw = string(domain.TicketStatusActive)
		report.defaulted(fieldStatus)
	}
	status, err := domain.ParseTicketStatus(statusRaw)
	if err != nil {
		return domain.Ticket{}, report, &store.DecodeError{
			Collection: store.CollectionTickets, ID: doc.ID, Missing: []string{fieldStatus}}
	}
	ticket.Status = status

	typeRaw, ok := stringValue(doc.Fields[fieldType])
	if !ok {
		typeRaw = string(domain.TicketTypeStandard)
		report.defaulted(fieldType)
	}
	ticketType, err := domain.ParseTicketType(typeRaw)
	if err != nil {
		return domain.Ticket{}, report, &store.DecodeError{
			Collection: store.CollectionTickets, ID: doc.ID, Missing: []string{fieldType}}
	}
	ticket.Type = ticketType

	if created, ok := timeValue(doc.Fields[fieldCreatedAt]); ok {
		ticket.CreatedAt = created
	} else {
		report.defaulted(fieldCreatedAt)
	}
	if locator, ok := stringValue(doc.Fields[fieldAssignedLocator]); ok {
		ticket.AssignedLocator = locator
	} else {
		report.defaulted(fieldAssignedLocator)
	}
	if enRoute, ok := boolValue(doc.Fields[fieldIsEnRoute]); ok {
		ticket.IsEnRoute = enRoute
	} else {
		report.defaulted(fieldIsEnRoute)
	}

	ticket.ClosedAt = optionalTime(doc.Fields, fieldClosedAt)
	ticket.DueDate = optionalTime(doc.Fields, fieldDueDate)
	ticket.ContactPhone = optionalString(doc.Fields, fieldContactPhone)
	ticket.ContactEmail = optionalString(doc.Fields, fieldContactEmail)
	ticket.Notes = optionalString(doc.Fields, fieldNotes)

	return ticket, report, nil
}
