package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fieldkit/locate-service/internal/domain"
	"github.com/fieldkit/locate-service/internal/events"
	"github.com/fieldkit/locate-service/internal/gateway"
	"github.com/fieldkit/locate-service/internal/store"
	"github.com/fieldkit/locate-service/internal/store/memstore"
)

var testNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newTestManager(t *testing.T) (*Manager, *gateway.Gateway, events.Dispatcher) {
	t.Helper()
	gw := gateway.New(memstore.New(), zap.NewNop())
	dispatcher := events.NewInMemoryDispatcher()
	return New(gw, dispatcher, fixedClock, zap.NewNop()), gw, dispatcher
}

func activeTicket(id string) domain.Ticket {
	return domain.Ticket{
		ID:              id,
		CustomerName:    "Atmos Energy",
		Address:         "114 Elm St",
		Status:          domain.TicketStatusActive,
		Type:            domain.TicketTypeStandard,
		CreatedAt:       testNow.Add(-72 * time.Hour),
		AssignedLocator: "Smith, John",
	}
}

func TestCloseStampsClockTime(t *testing.T) {
	ctx := context.Background()
	m, gw, _ := newTestManager(t)
	require.NoError(t, gw.PutTicket(ctx, activeTicket("t1")))

	closed, err := m.Close(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)
	assert.True(t, closed.ClosedAt.Equal(testNow))

	stored, err := gw.GetTicket(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, stored.Status)
	require.NotNil(t, stored.ClosedAt)
	assert.True(t, stored.ClosedAt.Equal(testNow))
	// Fields outside the transition survive.
	assert.Equal(t, "Atmos Energy", stored.CustomerName)
}

func TestCloseAlreadyClosedIsInvalidAndWritesNothing(t *testing.T) {
	ctx := context.Background()
	m, gw, _ := newTestManager(t)

	earlier := testNow.Add(-time.Hour)
	ticket := activeTicket("t1")
	ticket.Status = domain.TicketStatusClosed
	ticket.ClosedAt = &earlier
	require.NoError(t, gw.PutTicket(ctx, ticket))

	_, err := m.Close(ctx, "u1", "t1")
	require.ErrorIs(t, err, ErrInvalidTransition)

	stored, err := gw.GetTicket(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, stored.ClosedAt)
	assert.True(t, stored.ClosedAt.Equal(earlier))
}

func TestCloseMissingTicketSurfacesNotFound(t *testing.T) {
	m, _, _ := newTestManager(t)
	_, err := m.Close(context.Background(), "u1", "ghost")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestClosePublishesEvent(t *testing.T) {
	ctx := context.Background()
	m, gw, dispatcher := newTestManager(t)
	require.NoError(t, gw.PutTicket(ctx, activeTicket("t1")))

	var got events.Event
	dispatcher.Subscribe(events.EventTicketClosed, func(_ context.Context, e events.Event) error {
		got = e
		return nil
	})

	_, err := m.Close(ctx, "u1", "t1")
	require.NoError(t, err)

	assert.Equal(t, events.EventTicketClosed, got.Type)
	assert.Equal(t, "t1", got.TicketID)
	assert.Equal(t, "u1", got.ActorUID)
	assert.NotEmpty(t, got.ID)
	payload, ok := got.Payload.(events.TicketClosedPayload)
	require.True(t, ok)
	assert.Equal(t, domain.TicketStatusActive, payload.OldStatus)
	assert.True(t, payload.ClosedAt.Equal(testNow))
}

func TestSetEnRoute(t *testing.T) {
	ctx := context.Background()
	m, gw, _ := newTestManager(t)
	require.NoError(t, gw.PutTicket(ctx, activeTicket("t1")))

	updated, err := m.SetEnRoute(ctx, "u1", "t1", true)
	require.NoError(t, err)
	assert.True(t, updated.IsEnRoute)

	stored, err := gw.GetTicket(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, stored.IsEnRoute)
}

func TestSetEnRouteOnClosedTicketIsInvalid(t *testing.T) {
	ctx := context.Background()
	m, gw, _ := newTestManager(t)

	ticket := activeTicket("t1")
	ticket.Status = domain.TicketStatusClosed
	ticket.ClosedAt = &testNow
	require.NoError(t, gw.PutTicket(ctx, ticket))

	_, err := m.SetEnRoute(ctx, "u1", "t1", true)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestEffectiveStatusDerivesArchiveWindow(t *testing.T) {
	m, _, _ := newTestManager(t)

	cases := []struct {
		name     string
		closedAt time.Time
		want     domain.TicketStatus
	}{
		{"closed 20 days ago stays closed", testNow.Add(-20 * 24 * time.Hour), domain.TicketStatusClosed},
		{"closed exactly 21 days ago stays closed", testNow.Add(-domain.ArchiveAfter), domain.TicketStatusClosed},
		{"closed 22 days ago reads archived", testNow.Add(-22 * 24 * time.Hour), domain.TicketStatusArchived},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			closedAt := tc.closedAt
			ticket := activeTicket("t1")
			ticket.Status = domain.TicketStatusClosed
			ticket.ClosedAt = &closedAt
			assert.Equal(t, tc.want, m.EffectiveStatus(ticket))
		})
	}
}

func TestEffectiveStatusActiveTicketNeverArchives(t *testing.T) {
	m, _, _ := newTestManager(t)
	ticket := activeTicket("t1")
	ticket.CreatedAt = testNow.Add(-90 * 24 * time.Hour)
	assert.Equal(t, domain.TicketStatusActive, m.EffectiveStatus(ticket))
}
