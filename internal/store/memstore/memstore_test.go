package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldkit/locate-service/internal/store"
)

func TestGetReturnsNotFound(t *testing.T) {
	s := New()
	_, err := s.Get(context.Background(), store.CollectionTickets, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSetReplaceDropsOldFields(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Set(ctx, store.CollectionTickets, "t1",
		map[string]any{"status": "active", "notes": "gas main"}, false))
	require.NoError(t, s.Set(ctx, store.CollectionTickets, "t1",
		map[string]any{"status": "closed"}, false))

	doc, err := s.Get(ctx, store.CollectionTickets, "t1")
	require.NoError(t, err)
	assert.Equal(t, "closed", doc.Fields["status"])
	assert.NotContains(t, doc.Fields, "notes")
}

func TestSetMergeKeepsOtherFields(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Set(ctx, store.CollectionTickets, "t1",
		map[string]any{"status": "active", "notes": "gas main"}, false))
	require.NoError(t, s.Set(ctx, store.CollectionTickets, "t1",
		map[string]any{"status": "closed"}, true))

	doc, err := s.Get(ctx, store.CollectionTickets, "t1")
	require.NoError(t, err)
	assert.Equal(t, "closed", doc.Fields["status"])
	assert.Equal(t, "gas main", doc.Fields["notes"])
}

func TestGetReturnsDetachedCopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Set(ctx, store.CollectionTickets, "t1",
		map[string]any{"status": "active"}, false))

	doc, err := s.Get(ctx, store.CollectionTickets, "t1")
	require.NoError(t, err)
	doc.Fields["status"] = "mutated"

	again, err := s.Get(ctx, store.CollectionTickets, "t1")
	require.NoError(t, err)
	assert.Equal(t, "active", again.Fields["status"])
}

func TestQueryFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	s := New()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Set(ctx, store.CollectionMessages, "m2",
		map[string]any{"ticketId": "t1", "timestamp": base.Add(time.Minute)}, false))
	require.NoError(t, s.Set(ctx, store.CollectionMessages, "m1",
		map[string]any{"ticketId": "t1", "timestamp": base}, false))
	require.NoError(t, s.Set(ctx, store.CollectionMessages, "m3",
		map[string]any{"ticketId": "t2", "timestamp": base}, false))

	docs, err := s.Query(ctx, store.CollectionMessages,
		[]store.Predicate{store.Eq("ticketId", "t1")},
		&store.OrderBy{Field: "timestamp", Direction: store.Ascending})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "m1", docs[0].ID)
	assert.Equal(t, "m2", docs[1].ID)
}

func TestQueryOrdersTiesByID(t *testing.T) {
	ctx := context.Background()
	s := New()

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Set(ctx, store.CollectionMessages, "b",
		map[string]any{"ticketId": "t1", "timestamp": ts}, false))
	require.NoError(t, s.Set(ctx, store.CollectionMessages, "a",
		map[string]any{"ticketId": "t1", "timestamp": ts}, false))

	docs, err := s.Query(ctx, store.CollectionMessages,
		[]store.Predicate{store.Eq("ticketId", "t1")},
		&store.OrderBy{Field: "timestamp", Direction: store.Ascending})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "b", docs[1].ID)
}

func TestSubscribeDeliversInitialAndUpdates(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Set(ctx, store.CollectionMessages, "m1",
		map[string]any{"ticketId": "t1"}, false))

	sub, err := s.Subscribe(ctx, store.CollectionMessages,
		[]store.Predicate{store.Eq("ticketId", "t1")}, nil)
	require.NoError(t, err)
	defer sub.Close() //nolint:errcheck

	snap := <-sub.Snapshots()
	require.Len(t, snap, 1)
	assert.Equal(t, "m1", snap[0].ID)

	require.NoError(t, s.Set(ctx, store.CollectionMessages, "m2",
		map[string]any{"ticketId": "t1"}, false))
	snap = <-sub.Snapshots()
	assert.Len(t, snap, 2)
}

func TestSubscribeIgnoresOtherCollections(t *testing.T) {
	ctx := context.Background()
	s := New()

	sub, err := s.Subscribe(ctx, store.CollectionMessages, nil, nil)
	require.NoError(t, err)
	defer sub.Close() //nolint:errcheck

	<-sub.Snapshots() // initial, empty

	require.NoError(t, s.Set(ctx, store.CollectionTickets, "t1",
		map[string]any{"status": "active"}, false))

	select {
	case snap := <-sub.Snapshots():
		t.Fatalf("unexpected snapshot after unrelated write: %v", snap)
	default:
	}
}

func TestSubscribeLatestSnapshotWinsForSlowConsumer(t *testing.T) {
	ctx := context.Background()
	s := New()

	sub, err := s.Subscribe(ctx, store.CollectionMessages,
		[]store.Predicate{store.Eq("ticketId", "t1")}, nil)
	require.NoError(t, err)
	defer sub.Close() //nolint:errcheck

	// Three writes without a read in between; only the newest result set
	// remains deliverable.
	require.NoError(t, s.Set(ctx, store.CollectionMessages, "m1", map[string]any{"ticketId": "t1"}, false))
	require.NoError(t, s.Set(ctx, store.CollectionMessages, "m2", map[string]any{"ticketId": "t1"}, false))
	require.NoError(t, s.Set(ctx, store.CollectionMessages, "m3", map[string]any{"ticketId": "t1"}, false))

	snap := <-sub.Snapshots()
	assert.Len(t, snap, 3)
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()

	sub, err := s.Subscribe(ctx, store.CollectionMessages, nil, nil)
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	// Writes after close must not panic on the closed channel.
	require.NoError(t, s.Set(ctx, store.CollectionMessages, "m1",
		map[string]any{"ticketId": "t1"}, false))

	// The initial snapshot may still be buffered; the channel must end.
	for range sub.Snapshots() {
	}
}

func TestCancelledContextFailsWithStoreError(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Get(ctx, store.CollectionTickets, "t1")
	var storeErr *store.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "get", storeErr.Op)
}
