package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/fieldkit/locate-service/internal/config"
	"github.com/fieldkit/locate-service/internal/events"
	"github.com/fieldkit/locate-service/internal/gateway"
)

// NotificationService reacts to domain events. Push delivery itself lives
// outside this service; this is the hook point that resolves the target
// device token and hands off to the webhook stub.
type NotificationService struct {
	dispatcher events.Dispatcher
	gateway    *gateway.Gateway
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, gw *gateway.Gateway, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		gateway:    gw,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketClosed, n.handleTicketClosed)
	n.dispatcher.Subscribe(events.EventTicketEnRouteChanged, n.handleEnRouteChanged)
	n.dispatcher.Subscribe(events.EventMessageSent, n.handleMessageSent)
	n.dispatcher.Subscribe(events.EventProfileUpdated, n.handleProfileUpdated)
}

func (n *NotificationService) handleTicketClosed(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketClosed", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleEnRouteChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketEnRouteChanged", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleMessageSent(ctx context.Context, event events.Event) error {
	n.logger.Info("MessageSent", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.notifyDeviceStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleProfileUpdated(ctx context.Context, event events.Event) error {
	n.logger.Info("ProfileUpdated", zap.String("actor", event.ActorUID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

// notifyDeviceStub resolves the sender's counterpart device token so a real
// push integration only has to replace the final hand-off.
func (n *NotificationService) notifyDeviceStub(ctx context.Context, event events.Event) {
	if event.ActorUID == "" {
		return
	}
	user, err := n.gateway.GetUser(ctx, event.ActorUID)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			n.logger.Debug("notification target lookup failed", zap.Error(err))
		}
		return
	}
	if user.DeviceToken == nil {
		return
	}
	n.logger.Debug("notifyDeviceStub",
		zap.String("ticket_id", event.TicketID),
		zap.String("device_token", *user.DeviceToken))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
