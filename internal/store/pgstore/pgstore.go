// Package pgstore persists documents in Postgres jsonb rows and drives live
// queries off a Redis pub/sub change feed: every write publishes the changed
// document id on the collection's channel, and each subscription re-runs its
// query when the feed fires. Snapshots are therefore always full result
// sets, delivered in causal order.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fieldkit/locate-service/internal/store"
)

const feedPrefix = "docfeed:"

// Store implements store.Store on a pgx pool plus a Redis client.
type Store struct {
	pool   *pgxpool.Pool
	rdb    *redis.Client
	logger *zap.Logger
}

// New wires the backend. The documents table is created by migrations.
func New(pool *pgxpool.Pool, rdb *redis.Client, logger *zap.Logger) *Store {
	return &Store{pool: pool, rdb: rdb, logger: logger}
}

// Get fetches one document by id.
func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, error) {
	const query = `SELECT fields FROM documents WHERE collection=$1 AND id=$2`
	var raw []byte
	if err := s.pool.QueryRow(ctx, query, collection, id).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Document{}, store.ErrNotFound
		}
		return store.Document{}, store.NewStoreError("get", collection, err)
	}
	fields, err := decodeFields(raw)
	if err != nil {
		return store.Document{}, store.NewStoreError("get", collection, err)
	}
	return store.Document{ID: id, Fields: fields}, nil
}

// Query returns documents matching every predicate via jsonb containment,
// ordered client-side so no per-filter composite index is required.
func (s *Store) Query(ctx context.Context, collection string, preds []store.Predicate, order *store.OrderBy) ([]store.Document, error) {
	docs, err := s.runQuery(ctx, collection, preds)
	if err != nil {
		return nil, err
	}
	store.SortDocuments(docs, order)
	return docs, nil
}

// Set writes a document and publishes the change on the collection feed.
func (s *Store) Set(ctx context.Context, collection, id string, fields map[string]any, merge bool) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return store.NewStoreError("set", collection, err)
	}
	query := `
        INSERT INTO documents (collection, id, fields) VALUES ($1,$2,$3)
        ON CONFLICT (collection, id) DO UPDATE SET fields = EXCLUDED.fields, updated_at = NOW()`
	if merge {
		query = `
        INSERT INTO documents (collection, id, fields) VALUES ($1,$2,$3)
        ON CONFLICT (collection, id) DO UPDATE SET fields = documents.fields || EXCLUDED.fields, updated_at = NOW()`
	}
	if _, err := s.pool.Exec(ctx, query, collection, id, raw); err != nil {
		return store.NewStoreError("set", collection, err)
	}
	if err := s.rdb.Publish(ctx, feedPrefix+collection, id).Err(); err != nil {
		// Writes stay durable even when the feed is down; subscribers
		// catch up on the next delivered change.
		s.logger.Warn("change feed publish failed",
			zap.String("collection", collection), zap.Error(err))
	}
	return nil
}

// Subscribe opens a live query backed by the Redis change feed. The feed
// subscription is confirmed before the initial query runs: a write committed
// between the two is then covered either by the initial result set or by the
// refresh its publish triggers, never by neither.
func (s *Store) Subscribe(ctx context.Context, collection string, preds []store.Predicate, order *store.OrderBy) (store.Subscription, error) {
	feedCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	pubsub := s.rdb.Subscribe(feedCtx, feedPrefix+collection)
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, store.NewStoreError("subscribe", collection, err)
	}

	initial, err := s.Query(ctx, collection, preds, order)
	if err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, err
	}

	sub := &subscription{
		ch:     make(chan []store.Document, 1),
		cancel: cancel,
		pubsub: pubsub,
	}
	sub.push(initial)

	go func() {
		for range pubsub.Channel() {
			docs, err := s.Query(feedCtx, collection, preds, order)
			if err != nil {
				if feedCtx.Err() != nil {
					return
				}
				s.logger.Warn("live query refresh failed",
					zap.String("collection", collection), zap.Error(err))
				continue
			}
			sub.push(docs)
		}
	}()
	return sub, nil
}

func (s *Store) runQuery(ctx context.Context, collection string, preds []store.Predicate) ([]store.Document, error) {
	args := []any{collection}
	query := `SELECT id, fields FROM documents WHERE collection=$1`
	if len(preds) > 0 {
		contained := make(map[string]any, len(preds))
		for _, p := range preds {
			contained[p.Field] = p.Value
		}
		raw, err := json.Marshal(contained)
		if err != nil {
			return nil, store.NewStoreError("query", collection, err)
		}
		args = append(args, raw)
		query += ` AND fields @> $2`
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, store.NewStoreError("query", collection, err)
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, store.NewStoreError("query", collection, err)
		}
		fields, err := decodeFields(raw)
		if err != nil {
			return nil, store.NewStoreError("query", collection, err)
		}
		docs = append(docs, store.Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("query", collection, err)
	}
	return docs, nil
}

func decodeFields(raw []byte) (map[string]any, error) {
	fields := make(map[string]any)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

type subscription struct {
	cancel context.CancelFunc
	pubsub *redis.PubSub

	mu     sync.Mutex
	ch     chan []store.Document
	closed bool
}

func (s *subscription) Snapshots() <-chan []store.Document {
	return s.ch
}

// Close tears down the feed listener. Safe to call more than once.
func (s *subscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()

	s.cancel()
	return s.pubsub.Close()
}

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
