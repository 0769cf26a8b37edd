package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/library-service/internal/config"
	"github.com/spec-kit/library-service/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventBookBorrowed, n.handleBookBorrowed)
	n.dispatcher.Subscribe(events.EventBookReturned, n.handleBookReturned)
	n.dispatcher.Subscribe(events.EventBookAdded, n.handleCatalogChanged)
	n.dispatcher.Subscribe(events.EventBookRemoved, n.handleCatalogChanged)
}

func (n *NotificationService) handleBookBorrowed(ctx context.Context, event events.Event) error {
	n.logger.Info("BookBorrowed", zap.String("book_id", event.BookID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleBookReturned(ctx context.Context, event events.Event) error {
	n.logger.Info("BookReturned", zap.String("book_id", event.BookID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleCatalogChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("CatalogChanged",
		zap.String("event_type", string(event.Type)),
		zap.String("book_id", event.BookID))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("book_id", event.BookID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("book_id", event.BookID),
		zap.String("event_type", string(event.Type)))
}
