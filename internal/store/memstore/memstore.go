// Package memstore is an in-memory document store with live queries. It
// backs tests and local development where no Postgres/Redis pair is
// available, and pins the semantics the core expects from any backend.
package memstore

import (
	"context"
	"sync"

	"github.com/fieldkit/locate-service/internal/store"
)

// Store keeps documents in nested maps guarded by one lock. Live
// subscriptions are re-evaluated on every write to their collection.
type Store struct {
	mu   sync.RWMutex
	data map[string]map[string]map[string]any
	subs map[*subscription]struct{}
}

// New creates an empty store.
func New() *Store {
	return &Store{
		data: make(map[string]map[string]map[string]any),
		subs: make(map[*subscription]struct{}),
	}
}

// Get fetches one document by id.
func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, error) {
	if err := ctx.Err(); err != nil {
		return store.Document{}, store.NewStoreError("get", collection, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, ok := s.data[collection][id]
	if !ok {
		return store.Document{}, store.ErrNotFound
	}
	return store.Document{ID: id, Fields: fields}.Clone(), nil
}

// Query returns matching documents, sorted when an order is given.
func (s *Store) Query(ctx context.Context, collection string, preds []store.Predicate, order *store.OrderBy) ([]store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.NewStoreError("query", collection, err)
	}
	s.mu.RLock()
	docs := s.snapshotLocked(collection, preds, order)
	s.mu.RUnlock()
	return docs, nil
}

// Set writes a document and re-delivers every affected live query.
func (s *Store) Set(ctx context.Context, collection, id string, fields map[string]any, merge bool) error {
	if err := ctx.Err(); err != nil {
		return store.NewStoreError("set", collection, err)
	}
	s.mu.Lock()
	coll := s.data[collection]
	if coll == nil {
		coll = make(map[string]map[string]any)
		s.data[collection] = coll
	}
	if merge {
		existing := coll[id]
		if existing == nil {
			existing = make(map[string]any, len(fields))
			coll[id] = existing
		}
		for k, v := range fields {
			existing[k] = v
		}
	} else {
		replaced := make(map[string]any, len(fields))
		for k, v := range fields {
			replaced[k] = v
		}
		coll[id] = replaced
	}
	s.notifyLocked(collection)
	s.mu.Unlock()
	return nil
}

// Subscribe opens a live query and delivers the current result set
// immediately.
func (s *Store) Subscribe(ctx context.Context, collection string, preds []store.Predicate, order *store.OrderBy) (store.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.NewStoreError("subscribe", collection, err)
	}
	sub := &subscription{
		owner:      s,
		collection: collection,
		preds:      preds,
		order:      order,
		ch:         make(chan []store.Document, 1),
	}
	s.mu.Lock()
	s.subs[sub] = struct{}{}
	sub.push(s.snapshotLocked(collection, preds, order))
	s.mu.Unlock()
	return sub, nil
}

func (s *Store) snapshotLocked(collection string, preds []store.Predicate, order *store.OrderBy) []store.Document {
	result := make([]store.Document, 0)
	for id, fields := range s.data[collection] {
		doc := store.Document{ID: id, Fields: fields}
		if store.Matches(doc, preds) {
			result = append(result, doc.Clone())
		}
	}
	store.SortDocuments(result, order)
	return result
}

func (s *Store) notifyLocked(collection string) {
	for sub := range s.subs {
		if sub.collection != collection {
			continue
		}
		sub.push(s.snapshotLocked(collection, sub.preds, sub.order))
	}
}

func (s *Store) removeSub(sub *subscription) {
	s.mu.Lock()
	delete(s.subs, sub)
	s.mu.Unlock()
}

type subscription struct {
	owner      *Store
	collection string
	preds      []store.Predicate
	order      *store.OrderBy

	mu     sync.Mutex
	ch     chan []store.Document
	closed bool
}

func (s *subscription) Snapshots() <-chan []store.Document {
	return s.ch
}

// Close releases the live query. Safe to call more than once.
func (s *subscription) Close() error {
	s.owner.removeSub(s)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.ch)
	return nil
}

// push delivers a snapshot, replacing an undelivered one so slow consumers
// only ever see the latest state. Each snapshot is the full result set, so
// skipping an intermediate one preserves causal order.
func (s *subscription) push(snap []store.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- snap:
	default:
		select {
		case <-s.ch:
		default:
		}
		s.ch <- snap
	}
}
