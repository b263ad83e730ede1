// Package chat maintains the live view of a ticket's message thread. The
// synchronizer holds at most one live subscription per ticket, replaces its
// cached thread with each delivered snapshot (re-sorted and deduplicated),
// and guarantees that snapshots arriving after an unsubscribe are discarded
// rather than applied to released state.
package chat

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldkit/locate-service/internal/domain"
	"github.com/fieldkit/locate-service/internal/events"
	"github.com/fieldkit/locate-service/internal/gateway"
	"github.com/fieldkit/locate-service/internal/lifecycle"
)

// Synchronizer owns chat subscriptions and the message send path. Reads
// flow back through the live feed; Send performs no optimistic local
// append, so a sent message appears in the thread exactly once, when the
// store delivers it.
type Synchronizer struct {
	gateway    *gateway.Gateway
	lifecycle  *lifecycle.Manager
	dispatcher events.Dispatcher
	clock      lifecycle.Clock
	logger     *zap.Logger

	mu      sync.Mutex
	threads map[string]*ThreadHandle
}

// New constructs the synchronizer. A nil clock defaults to the lifecycle
// manager's notion of now via time.Now.
func New(gw *gateway.Gateway, lm *lifecycle.Manager, dispatcher events.Dispatcher, clock lifecycle.Clock, logger *zap.Logger) *Synchronizer {
	s := &Synchronizer{
		gateway:    gw,
		lifecycle:  lm,
		dispatcher: dispatcher,
		clock:      clock,
		logger:     logger,
		threads:    make(map[string]*ThreadHandle),
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	return s
}

// Subscribe opens the live thread for a ticket. If a subscription for the
// same ticket is already active it is released first, so listeners are
// never leaked.
func (s *Synchronizer) Subscribe(ctx context.Context, ticketID string) (*ThreadHandle, error) {
	s.mu.Lock()
	if prior, ok := s.threads[ticketID]; ok {
		prior.release()
		delete(s.threads, ticketID)
	}
	s.mu.Unlock()

	sub, err := s.gateway.SubscribeThread(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	handle := &ThreadHandle{
		ticketID: ticketID,
		sub:      sub,
		updates:  make(chan []domain.Message, 1),
	}

	s.mu.Lock()
	if prior, ok := s.threads[ticketID]; ok {
		// Subscribe raced with itself; the newest listener wins.
		prior.release()
	}
	s.threads[ticketID] = handle
	s.mu.Unlock()

	go handle.run()
	return handle, nil
}

// Unsubscribe releases the handle's live query. Idempotent: releasing an
// already-released handle is a no-op, not an error.
func (s *Synchronizer) Unsubscribe(handle *ThreadHandle) {
	if handle == nil {
		return
	}
	handle.release()
	s.mu.Lock()
	if current, ok := s.threads[handle.ticketID]; ok && current == handle {
		delete(s.threads, handle.ticketID)
	}
	s.mu.Unlock()
}

// Send writes a new message document under a client-generated id. It does
// not wait for the subscription to reflect the write; the live feed is the
// source of truth for the visible thread.
func (s *Synchronizer) Send(ctx context.Context, ticketID, senderID string, role domain.SenderRole, text string, attachmentURL *string) (*domain.Message, error) {
	msg := domain.Message{
		ID:            uuid.NewString(),
		TicketID:      ticketID,
		SenderID:      senderID,
		SenderRole:    role,
		Content:       strings.TrimSpace(text),
		CreatedAt:     s.clock(),
		IsRead:        false,
		AttachmentURL: attachmentURL,
	}
	if err := s.gateway.AddMessage(ctx, msg); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventMessageSent,
		TicketID: ticketID,
		ActorUID: senderID,
		Payload: events.MessageSentPayload{
			MessageID:     msg.ID,
			SenderRole:    role,
			HasAttachment: attachmentURL != nil,
			BodyPreview:   preview(msg.Content, 120),
		},
	})
	return &msg, nil
}

// CloseTicket closes the ticket through the lifecycle manager and, on
// success, ends the ticket's chat subscription.
func (s *Synchronizer) CloseTicket(ctx context.Context, actorUID, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.lifecycle.Close(ctx, actorUID, ticketID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if handle, ok := s.threads[ticketID]; ok {
		handle.release()
		delete(s.threads, ticketID)
	}
	s.mu.Unlock()
	return ticket, nil
}

func (s *Synchronizer) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// ThreadHandle is one live chat subscription. Consumers read ordered
// snapshots from Updates or the cached thread from Messages; they never
// mutate the cache directly.
type ThreadHandle struct {
	ticketID string
	sub      *gateway.ThreadSubscription

	mu       sync.Mutex
	cached   []domain.Message
	updates  chan []domain.Message
	released bool
}

// TicketID reports the ticket this handle observes.
func (h *ThreadHandle) TicketID() string {
	return h.ticketID
}

// Updates yields the ordered thread after every snapshot. Only the latest
// state is retained for slow consumers. The channel closes on release.
func (h *ThreadHandle) Updates() <-chan []domain.Message {
	return h.updates
}

// Messages returns a copy of the cached thread.
func (h *ThreadHandle) Messages() []domain.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.Message, len(h.cached))
	copy(out, h.cached)
	return out
}

func (h *ThreadHandle) run() {
	for snap := range h.sub.Snapshots() {
		h.apply(orderThread(snap))
	}
}

// apply installs a snapshot unless the handle has been released; a delivery
// racing an unsubscribe must not touch freed state.
func (h *ThreadHandle) apply(msgs []domain.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return
	}
	h.cached = msgs
	select {
	case h.updates <- msgs:
	default:
		select {
		case <-h.updates:
		default:
		}
		h.updates <- msgs
	}
}

func (h *ThreadHandle) release() {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return
	}
	h.released = true
	h.cached = nil
	close(h.updates)
	h.mu.Unlock()

	_ = h.sub.Close()
}

// orderThread sorts by timestamp ascending with id as the tie-break, then
// drops duplicate ids. Each snapshot is the full document set, so replacing
// the cache wholesale keeps the view append-only in practice.
func orderThread(msgs []domain.Message) []domain.Message {
	ordered := make([]domain.Message, len(msgs))
	copy(ordered, msgs)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Less(ordered[j]) })

	deduped := ordered[:0]
	seen := make(map[string]struct{}, len(ordered))
	for _, m := range ordered {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		deduped = append(deduped, m)
	}
	return deduped
}

// preview truncates on rune boundaries so a multi-byte character is never
// split mid-sequence.
func preview(body string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
