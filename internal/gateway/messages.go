package gateway

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/fieldkit/locate-service/internal/domain"
	"github.com/fieldkit/locate-service/internal/store"
)

// Message document field names as stored under the messages collection.
const (
	fieldTicketID      = "ticketId"
	fieldSenderID      = "senderId"
	fieldSenderType    = "senderType"
	fieldContent       = "content"
	fieldTimestamp     = "timestamp"
	fieldIsRead        = "isRead"
	fieldAttachmentURL = "attachmentURL"
)

// AddMessage writes a new message document under its client-generated id.
// This is a full write, never a merge: messages are immutable once created.
func (g *Gateway) AddMessage(ctx context.Context, m domain.Message) error {
	return g.store.Set(ctx, store.CollectionMessages, m.ID, encodeMessage(m), false)
}

// MarkMessageRead merge-writes the read flag, the only mutable message field.
func (g *Gateway) MarkMessageRead(ctx context.Context, id string) error {
	return g.store.Set(ctx, store.CollectionMessages, id, map[string]any{fieldIsRead: true}, true)
}

// MessagesForTicket fetches the current thread once, oldest first.
// Malformed messages are dropped and logged.
func (g *Gateway) MessagesForTicket(ctx context.Context, ticketID string) ([]domain.Message, error) {
	docs, err := g.store.Query(ctx, store.CollectionMessages,
		[]store.Predicate{store.Eq(fieldTicketID, ticketID)},
		&store.OrderBy{Field: fieldTimestamp, Direction: store.Ascending})
	if err != nil {
		return nil, err
	}
	return g.decodeMessages(docs), nil
}

// SubscribeThread opens a live query over the ticket's messages. Decode
// failures for individual documents are skipped so one malformed message
// does not blank the thread.
func (g *Gateway) SubscribeThread(ctx context.Context, ticketID string) (*ThreadSubscription, error) {
	raw, err := g.store.Subscribe(ctx, store.CollectionMessages,
		[]store.Predicate{store.Eq(fieldTicketID, ticketID)},
		&store.OrderBy{Field: fieldTimestamp, Direction: store.Ascending})
	if err != nil {
		return nil, err
	}

	sub := &ThreadSubscription{
		raw: raw,
		out: make(chan []domain.Message, 1),
	}
	go func() {
		for docs := range raw.Snapshots() {
			sub.push(g.decodeMessages(docs))
		}
		sub.mu.Lock()
		if !sub.outClosed {
			sub.outClosed = true
			close(sub.out)
		}
		sub.mu.Unlock()
	}()
	return sub, nil
}

func (g *Gateway) decodeMessages(docs []store.Document) []domain.Message {
	msgs := make([]domain.Message, 0, len(docs))
	for _, doc := range docs {
		msg, err := decodeMessage(doc)
		if err != nil {
			g.logger.Warn("dropping malformed message document",
				zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

// ThreadSubscription delivers decoded message snapshots for one ticket.
type ThreadSubscription struct {
	raw store.Subscription

	mu        sync.Mutex
	out       chan []domain.Message
	outClosed bool
	closeOnce sync.Once
}

// Snapshots yields decoded result sets, latest state only.
func (s *ThreadSubscription) Snapshots() <-chan []domain.Message {
	return s.out
}

// Close releases the underlying live query. Idempotent.
func (s *ThreadSubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.raw.Close()
	})
	return err
}

func (s *ThreadSubscription) push(msgs []domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outClosed {
		return
	}
	select {
	case s.out <- msgs:
	default:
		select {
		case <-s.out:
		default:
		}
		s.out <- msgs
	}
}

func encodeMessage(m domain.Message) map[string]any {
	fields := map[string]any{
		fieldTicketID:   m.TicketID,
		fieldSenderID:   m.SenderID,
		fieldSenderType: string(m.SenderRole),
		fieldContent:    m.Content,
		fieldTimestamp:  m.CreatedAt,
		fieldIsRead:     m.IsRead,
	}
	if m.AttachmentURL != nil {
		fields[fieldAttachmentURL] = *m.AttachmentURL
	}
	return fields
}

// decodeMessage requires ticketId, senderId, senderType, content and
// timestamp; a missing or unparseable required field rejects the document.
func decodeMessage(doc store.Document) (domain.Message, error) {
	var missing []string

	ticketID, ok := stringValue(doc.Fields[fieldTicketID])
	if !ok {
		missing = append(missing, fieldTicketID)
	}
	senderID, ok := stringValue(doc.Fields[fieldSenderID])
	if !ok {
		missing = append(missing, fieldSenderID)
	}
	roleRaw, ok := stringValue(doc.Fields[fieldSenderType])
	if !ok {
		missing = append(missing, fieldSenderType)
	}
	content, ok := stringValue(doc.Fields[fieldContent])
	if !ok {
		missing = append(missing, fieldContent)
	}
	createdAt, ok := timeValue(doc.Fields[fieldTimestamp])
	if !ok {
		missing = append(missing, fieldTimestamp)
	}
	if len(missing) > 0 {
		return domain.Message{}, &store.DecodeError{
			Collection: store.CollectionMessages, ID: doc.ID, Missing: missing}
	}

	role, err := domain.ParseSenderRole(roleRaw)
	if err != nil {
		return domain.Message{}, &store.DecodeError{
			Collection: store.CollectionMessages, ID: doc.ID, Missing: []string{fieldSenderType}}
	}

	isRead, ok := boolValue(doc.Fields[fieldIsRead])
	if !ok {
		isRead = false
	}

	return domain.Message{
		ID:            doc.ID,
		TicketID:      ticketID,
		SenderID:      senderID,
		SenderRole:    role,
		Content:       content,
		CreatedAt:     createdAt,
		IsRead:        isRead,
		AttachmentURL: optionalString(doc.Fields, fieldAttachmentURL),
	}, nil
}
