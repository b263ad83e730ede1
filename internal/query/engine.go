// Package query resolves "tickets assigned to locator X" lists. Tickets are
// joined to locators on the formatted "Last, First" display identity, so
// the engine first resolves the locator's profile and then filters on the
// formatted string. Sorting happens in memory, deliberately, so the store
// needs no composite index per filter combination.
package query

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/fieldkit/locate-service/internal/domain"
	"github.com/fieldkit/locate-service/internal/gateway"
	"github.com/fieldkit/locate-service/internal/store"
)

// Engine lists tickets for a locator.
type Engine struct {
	gateway *gateway.Gateway
	logger  *zap.Logger
}

// New constructs the engine.
func New(gw *gateway.Gateway, logger *zap.Logger) *Engine {
	return &Engine{gateway: gw, logger: logger}
}

// ListTickets returns the locator's tickets, newest first, optionally
// narrowed to one stored status. An unresolvable locator yields an empty
// list, not an error; store failures propagate unchanged.
func (e *Engine) ListTickets(ctx context.Context, locatorUID string, status *domain.TicketStatus) ([]domain.Ticket, error) {
	user, err := e.gateway.GetUser(ctx, locatorUID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.logger.Warn("locator identity not resolvable", zap.String("uid", locatorUID))
			return []domain.Ticket{}, nil
		}
		return nil, err
	}

	tickets, err := e.gateway.TicketsByLocator(ctx, user.FullName(), status)
	if err != nil {
		return nil, err
	}

	sort.Slice(tickets, func(i, j int) bool {
		return tickets[i].CreatedAt.After(tickets[j].CreatedAt)
	})
	return tickets, nil
}
