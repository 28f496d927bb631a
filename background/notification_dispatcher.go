package background

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"samsariya-backend/infra"
	"samsariya-backend/metrics"
	"samsariya-backend/middleware"
	"samsariya-backend/model"
	"samsariya-backend/service"
	"samsariya-backend/service/interfaces"

	"github.com/rs/zerolog"
)

const (
	dispatchInterval = 30 * time.Second
	dispatchTimeout  = 25 * time.Second // one pass must fit inside the tick
)

// NotificationDispatcher drains the pending notification backlog on a fixed
// tick. Admin-only rows (preorders, card verification holds) are excluded by
// the store query and stay untouched until an operator resolves them.
type NotificationDispatcher struct {
	logger        zerolog.Logger
	notifications interfaces.NotificationStore
	messenger     interfaces.Messenger
	catalog       *service.CatalogService
	rabbitMQ      *infra.RabbitMQ
}

func NewNotificationDispatcher(
	logger zerolog.Logger,
	notifications interfaces.NotificationStore,
	messenger interfaces.Messenger,
	catalog *service.CatalogService,
	rabbitMQ *infra.RabbitMQ,
) *NotificationDispatcher {
	return &NotificationDispatcher{
		logger:        logger.With().Str("module", "notification_dispatcher").Logger(),
		notifications: notifications,
		messenger:     messenger,
		catalog:       catalog,
		rabbitMQ:      rabbitMQ,
	}
}

// Start blocks until ctx is cancelled. A pass already in flight finishes its
// current notification before the loop exits.
func (d *NotificationDispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(dispatchInterval)
	defer ticker.Stop()

	d.logger.Info().Dur("interval", dispatchInterval).Msg("Notification dispatcher started")

	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("Notification dispatcher stopped")
			return
		case <-ticker.C:
			d.runOnce(ctx)
		}
	}
}

func (d *NotificationDispatcher) runOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()

	ctx, span := infra.StartSpan(ctx, "dispatcher_run_once")
	defer span.End()

	d.refreshCatalog(ctx)

	pending, err := d.notifications.FetchPending(ctx)
	if err != nil {
		infra.RecordError(span, err, "fetch pending notifications failed")
		d.logger.Error().Err(err).Msg("Failed to fetch pending notifications")
		return
	}

	middleware.UpdatePendingNotifications(len(pending))
	if len(pending) == 0 {
		infra.MarkSuccess(span)
		return
	}

	d.logger.Debug().Int("count", len(pending)).Msg("Dispatching pending notifications")

	sent, failed := 0, 0
	for _, n := range pending {
		if ctx.Err() != nil {
			break
		}
		if err := d.deliver(ctx, n); err != nil {
			failed++
			continue
		}
		sent++
	}

	infra.AddEvent(span, "dispatch_pass_finished",
		infra.AttrInt("sent", sent),
		infra.AttrInt("failed", failed),
	)
	infra.MarkSuccess(span)
}

// deliver pushes one notification and records the outcome on its row. A
// failed delivery leaves the row pending so the next tick retries it.
func (d *NotificationDispatcher) deliver(ctx context.Context, n *model.Notification) error {
	start := time.Now()

	var err error
	if n.EditMessage && n.OrderID != nil {
		// Any edit failure falls back to a fresh push; the customer must not
		// miss the update because the old message could not be amended.
		err = d.messenger.EditLast(ctx, n.CustomerID, n.Message)
		if err != nil {
			if !errors.Is(err, interfaces.ErrEditNotSupported) {
				d.logger.Debug().Err(err).Str("customer_id", n.CustomerID).Msg("Edit failed, sending a fresh message")
			}
			err = d.messenger.Send(ctx, n.CustomerID, n.Message)
		}
	} else {
		err = d.messenger.Send(ctx, n.CustomerID, n.Message)
	}

	if err != nil {
		metrics.RecordNotificationDelivery(metrics.StatusError)
		metrics.RecordServiceOperation(metrics.ServiceTypeNotification, metrics.OperationDispatch, metrics.StatusError, time.Since(start))
		d.logger.Warn().
			Err(err).
			Str("notification_id", n.ID.Hex()).
			Str("customer_id", n.CustomerID).
			Msg("Notification delivery failed")
		if markErr := d.notifications.MarkFailed(ctx, *n.ID, err); markErr != nil {
			d.logger.Error().Err(markErr).Str("notification_id", n.ID.Hex()).Msg("Failed to record delivery failure")
		}
		return err
	}

	if markErr := d.notifications.MarkSent(ctx, *n.ID); markErr != nil {
		// The message went out; the row stays pending and the customer may
		// see it twice on the next tick. Preferable to losing it.
		d.logger.Error().Err(markErr).Str("notification_id", n.ID.Hex()).Msg("Failed to mark notification sent")
		return markErr
	}

	metrics.RecordNotificationDelivery(metrics.StatusSuccess)
	metrics.RecordServiceOperation(metrics.ServiceTypeNotification, metrics.OperationDispatch, metrics.StatusSuccess, time.Since(start))
	d.publishDelivered(n)

	d.logger.Info().
		Str("notification_id", n.ID.Hex()).
		Str("customer_id", n.CustomerID).
		Bool("edit", n.EditMessage).
		Msg("Notification delivered")
	return nil
}

// publishDelivered mirrors delivered notifications onto the queue for
// downstream consumers. Best effort.
func (d *NotificationDispatcher) publishDelivered(n *model.Notification) {
	if d.rabbitMQ == nil {
		return
	}
	body, err := json.Marshal(n)
	if err != nil {
		return
	}
	if err := d.rabbitMQ.PublishMessage(infra.QueueNameNotifications.String(), body); err != nil {
		d.logger.Warn().Err(err).Str("notification_id", n.ID.Hex()).Msg("Failed to publish delivered notification")
	}
}

// refreshCatalog keeps prices and availability current between ticks. A
// failed refresh keeps serving the previous snapshot.
func (d *NotificationDispatcher) refreshCatalog(ctx context.Context) {
	if d.catalog == nil {
		return
	}
	if err := d.catalog.Refresh(ctx); err != nil {
		d.logger.Warn().Err(err).Msg("Catalog refresh failed, keeping previous snapshot")
	}
}
