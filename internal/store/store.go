package store

import (
	"context"
	"sort"
	"time"
)

// Collection names used by the core.
const (
	CollectionTickets  = "tickets"
	CollectionMessages = "messages"
	CollectionUsers    = "users"
)

// Document is a loosely-typed record as held by the backing store.
type Document struct {
	ID     string
	Fields map[string]any
}

// Clone returns a copy whose field map is detached from the original.
func (d Document) Clone() Document {
	fields := make(map[string]any, len(d.Fields))
	for k, v := range d.Fields {
		fields[k] = v
	}
	return Document{ID: d.ID, Fields: fields}
}

// Predicate is an equality condition on a single field. Predicates in a
// query are combined with AND.
type Predicate struct {
	Field string
	Value any
}

// Eq builds an equality predicate.
func Eq(field string, value any) Predicate {
	return Predicate{Field: field, Value: value}
}

// Direction selects sort order for a query.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// OrderBy requests single-field ordering of query results.
type OrderBy struct {
	Field     string
	Direction Direction
}

// Store is the document store contract the core is built against: typed
// collections of string-keyed documents, equality queries, merge or replace
// writes, and live queries that deliver a full result snapshot on every
// matching change.
type Store interface {
	// Get fetches one document. Returns ErrNotFound if absent.
	Get(ctx context.Context, collection, id string) (Document, error)
	// Query returns all documents matching every predicate, ordered when
	// requested.
	Query(ctx context.Context, collection string, preds []Predicate, order *OrderBy) ([]Document, error)
	// Set writes a document. With merge true only the given fields are
	// updated; with merge false the document is replaced.
	Set(ctx context.Context, collection, id string, fields map[string]any, merge bool) error
	// Subscribe opens a live query. The subscription delivers the full
	// current result set on open and again after every matching change.
	Subscribe(ctx context.Context, collection string, preds []Predicate, order *OrderBy) (Subscription, error)
}

// Subscription is a live query handle. Snapshots are delivered in causal
// order; each snapshot is the complete current result set, not a diff.
type Subscription interface {
	// Snapshots yields result sets. The channel is closed by Close.
	Snapshots() <-chan []Document
	// Close releases the live query. Idempotent; snapshots in flight at
	// close time are discarded.
	Close() error
}

// Matches reports whether the document satisfies every predicate.
func Matches(doc Document, preds []Predicate) bool {
	for _, p := range preds {
		if !valuesEqual(doc.Fields[p.Field], p.Value) {
			return false
		}
	}
	return true
}

// SortDocuments orders documents by the requested field, ties broken by
// document id so results are deterministic.
func SortDocuments(docs []Document, order *OrderBy) {
	if order == nil {
		sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
		return
	}
	sort.Slice(docs, func(i, j int) bool {
		a, b := docs[i].Fields[order.Field], docs[j].Fields[order.Field]
		cmp := compareValues(a, b)
		if cmp == 0 {
			return docs[i].ID < docs[j].ID
		}
		if order.Direction == Descending {
			return cmp > 0
		}
		return cmp < 0
	})
}

func valuesEqual(a, b any) bool {
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	}
	return a == b
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			switch {
			case av.Before(bv):
				return -1
			case av.After(bv):
				return 1
			}
			return 0
		}
	case string:
		if bv, ok := b.(string); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case int:
		if bv, ok := b.(int); ok {
			return av - bv
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case !av && bv:
				return -1
			case av && !bv:
				return 1
			}
			return 0
		}
	}
	// Missing or mismatched types sort before present values.
	if a == nil && b != nil {
		return -1
	}
	if a != nil && b == nil {
		return 1
	}
	return 0
}
