package worker

import (
	"context"

	"github.com/spec-kit/library-service/internal/events"
	"github.com/spec-kit/library-service/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartCacheInvalidator drops cached dashboard stats whenever the catalog or
// the ledger changes.
func StartCacheInvalidator(dispatcher events.Dispatcher, catalog *service.CatalogService) {
	if dispatcher == nil || catalog == nil {
		return
	}
	invalidate := func(ctx context.Context, _ events.Event) error {
		return catalog.InvalidateStats(ctx)
	}
	for _, eventType := range []events.EventType{
		events.EventBookBorrowed,
		events.EventBookReturned,
		events.EventBookAdded,
		events.EventBookUpdated,
		events.EventBookRemoved,
	} {
		dispatcher.Subscribe(eventType, invalidate)
	}
}
