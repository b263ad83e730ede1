package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fieldkit/locate-service/internal/domain"
	"github.com/fieldkit/locate-service/internal/store"
	"github.com/fieldkit/locate-service/internal/store/memstore"
)

func newTestGateway() (*Gateway, *memstore.Store) {
	backing := memstore.New()
	return New(backing, zap.NewNop()), backing
}

func strPtr(s string) *string { return &s }

func TestTicketRoundTrip(t *testing.T) {
	ctx := context.Background()
	gw, _ := newTestGateway()

	created := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)
	due := created.Add(48 * time.Hour)
	want := domain.Ticket{
		ID:              "t1",
		CustomerName:    "Atmos Energy",
		Address:         "114 Elm St",
		Status:          domain.TicketStatusActive,
		Type:            domain.TicketTypeEmergency,
		CreatedAt:       created,
		AssignedLocator: "Smith, John",
		ContactPhone:    strPtr("555-0147"),
		Notes:           strPtr("gas main near curb"),
		DueDate:         &due,
		IsEnRoute:       true,
	}

	require.NoError(t, gw.PutTicket(ctx, want))
	got, err := gw.GetTicket(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, want, *got)
}

func TestGetTicketNotFound(t *testing.T) {
	gw, _ := newTestGateway()
	_, err := gw.GetTicket(context.Background(), "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDecodeTicketDefaultsAbsentFields(t *testing.T) {
	ticket, report, err := decodeTicket(store.Document{ID: "t1", Fields: map[string]any{}})
	require.NoError(t, err)

	assert.Equal(t, "Unknown Customer", ticket.CustomerName)
	assert.Equal(t, "Unknown", ticket.Address)
	assert.Equal(t, domain.TicketStatusActive, ticket.Status)
	assert.Equal(t, domain.TicketTypeStandard, ticket.Type)
	assert.True(t, ticket.CreatedAt.IsZero())
	assert.False(t, ticket.IsEnRoute)
	assert.Nil(t, ticket.ClosedAt)

	assert.ElementsMatch(t, []string{
		fieldCustomerName, fieldAddress, fieldStatus, fieldType,
		fieldCreatedAt, fieldAssignedLocator, fieldIsEnRoute,
	}, report.Defaulted)
}

func TestDecodeTicketRejectsUnknownStatus(t *testing.T) {
	_, _, err := decodeTicket(store.Document{ID: "t1", Fields: map[string]any{
		fieldStatus: "paused",
	}})
	var decodeErr *store.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, []string{fieldStatus}, decodeErr.Missing)
}

func TestDecodeTicketRejectsUnknownType(t *testing.T) {
	_, _, err := decodeTicket(store.Document{ID: "t1", Fields: map[string]any{
		fieldType: "routine",
	}})
	var decodeErr *store.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, []string{fieldType}, decodeErr.Missing)
}

func TestDecodeTicketAcceptsStringTimestamps(t *testing.T) {
	created := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)
	ticket, _, err := decodeTicket(store.Document{ID: "t1", Fields: map[string]any{
		fieldCreatedAt: created.Format(time.RFC3339Nano),
		fieldClosedAt:  created.Add(time.Hour).Format(time.RFC3339Nano),
	}})
	require.NoError(t, err)
	assert.True(t, ticket.CreatedAt.Equal(created))
	require.NotNil(t, ticket.ClosedAt)
	assert.True(t, ticket.ClosedAt.Equal(created.Add(time.Hour)))
}

func TestTicketsByLocatorDropsMalformedDocuments(t *testing.T) {
	ctx := context.Background()
	gw, backing := newTestGateway()

	require.NoError(t, gw.PutTicket(ctx, domain.Ticket{
		ID: "good", Status: domain.TicketStatusActive,
		Type: domain.TicketTypeStandard, AssignedLocator: "Smith, John",
	}))
	require.NoError(t, backing.Set(ctx, store.CollectionTickets, "bad", map[string]any{
		fieldAssignedLocator: "Smith, John",
		fieldStatus:          "not-a-status",
	}, false))

	tickets, err := gw.TicketsByLocator(ctx, "Smith, John", nil)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, "good", tickets[0].ID)
}

func TestTicketsByLocatorFiltersOnStatus(t *testing.T) {
	ctx := context.Background()
	gw, _ := newTestGateway()

	require.NoError(t, gw.PutTicket(ctx, domain.Ticket{
		ID: "t1", Status: domain.TicketStatusActive,
		Type: domain.TicketTypeStandard, AssignedLocator: "Smith, John",
	}))
	require.NoError(t, gw.PutTicket(ctx, domain.Ticket{
		ID: "t2", Status: domain.TicketStatusClosed,
		Type: domain.TicketTypeStandard, AssignedLocator: "Smith, John",
	}))

	closed := domain.TicketStatusClosed
	tickets, err := gw.TicketsByLocator(ctx, "Smith, John", &closed)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, "t2", tickets[0].ID)
}

func TestSetTicketStatusMergesNotReplaces(t *testing.T) {
	ctx := context.Background()
	gw, _ := newTestGateway()

	require.NoError(t, gw.PutTicket(ctx, domain.Ticket{
		ID: "t1", CustomerName: "Atmos Energy", Address: "114 Elm St",
		Status: domain.TicketStatusActive, Type: domain.TicketTypeEmergency,
		AssignedLocator: "Smith, John", Notes: strPtr("gas main"),
	}))

	closedAt := time.Date(2026, 2, 12, 16, 0, 0, 0, time.UTC)
	require.NoError(t, gw.SetTicketStatus(ctx, "t1", domain.TicketStatusClosed, &closedAt))

	got, err := gw.GetTicket(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, got.Status)
	require.NotNil(t, got.ClosedAt)
	assert.True(t, got.ClosedAt.Equal(closedAt))
	// Untouched fields survive the transition write.
	assert.Equal(t, "Atmos Energy", got.CustomerName)
	require.NotNil(t, got.Notes)
	assert.Equal(t, "gas main", *got.Notes)
}

func TestSetTicketEnRouteTouchesOnlyTheFlag(t *testing.T) {
	ctx := context.Background()
	gw, _ := newTestGateway()

	require.NoError(t, gw.PutTicket(ctx, domain.Ticket{
		ID: "t1", CustomerName: "Atmos Energy",
		Status: domain.TicketStatusActive, Type: domain.TicketTypeStandard,
		AssignedLocator: "Smith, John",
	}))
	require.NoError(t, gw.SetTicketEnRoute(ctx, "t1", true))

	got, err := gw.GetTicket(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, got.IsEnRoute)
	assert.Equal(t, "Atmos Energy", got.CustomerName)
}
