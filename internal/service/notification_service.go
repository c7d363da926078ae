package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/cardmarket/internal/config"
	"github.com/spec-kit/cardmarket/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	logger *zap.Logger
	cfg    config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		logger: logger,
		cfg:    cfg,
	}
}

// Routes maps each event type to its delivery channel.
func (n *NotificationService) Routes() map[events.EventType]events.EventHandler {
	return map[events.EventType]events.EventHandler{
		events.EventCardPurchased:       n.notifyBoth,
		events.EventWithdrawalRequested: n.notifyWebhook,
		events.EventWithdrawalDecided:   n.notifyBoth,
		events.EventDepositRequested:    n.notifyWebhook,
		events.EventDepositDecided:      n.notifyBoth,
		events.EventUserStatusChanged:   n.notifyEmail,
		events.EventSellerPromoted:      n.notifyEmail,
		events.EventTicketCreated:       n.notifyBoth,
		events.EventTicketReplied:       n.notifyEmail,
	}
}

// Handle delivers one event. Unrouted event types are ignored.
func (n *NotificationService) Handle(ctx context.Context, event events.Event) error {
	route, ok := n.Routes()[event.Type]
	if !ok {
		return nil
	}
	return route(ctx, event)
}

func (n *NotificationService) notifyBoth(ctx context.Context, event events.Event) error {
	n.logEvent(event)
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) notifyEmail(ctx context.Context, event events.Event) error {
	n.logEvent(event)
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) notifyWebhook(ctx context.Context, event events.Event) error {
	n.logEvent(event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) logEvent(event events.Event) {
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("subject", event.Subject),
		zap.String("actor_id", event.ActorID),
		zap.Any("payload", event.Payload))
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("subject", event.Subject),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("subject", event.Subject),
		zap.String("event_type", string(event.Type)))
}
