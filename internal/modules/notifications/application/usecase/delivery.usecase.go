package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"notificationRelay/internal/modules/notifications/application/port"
	"notificationRelay/internal/modules/notifications/domain"
	"notificationRelay/internal/platform/metrics"
)

// DeliveryUseCase persists inbound events and pushes them to the receiver's
// live channel. A record is always saved before it is published.
type DeliveryUseCase struct {
	store     port.NotificationStore
	publisher port.Publisher
	newID     func() string
	now       func() time.Time
}

func NewDeliveryUseCase(store port.NotificationStore, publisher port.Publisher) *DeliveryUseCase {
	return &DeliveryUseCase{
		store:     store,
		publisher: publisher,
		newID:     uuid.NewString,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (uc *DeliveryUseCase) IngestAndDeliver(ctx context.Context, event domain.Event) (*domain.Notification, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}
	record := &domain.Notification{
		ID:         uc.newID(),
		Date:       event.Date,
		Category:   event.Category,
		Message:    event.Message,
		ObjectID:   strings.TrimSpace(event.ObjectID),
		ReceiverID: strings.TrimSpace(event.ReceiverID),
	}
	if record.Date.IsZero() {
		record.Date = uc.now()
	}

	saved, err := uc.store.Save(ctx, record)
	if err != nil {
		metrics.PersistFailures.Inc()
		slog.Error("notification persist failed", slog.String("receiverId", record.ReceiverID), slog.Any("error", err))
		return nil, fmt.Errorf("persist notification: %w", err)
	}
	slog.Info("notification created", slog.String("notificationId", saved.ID), slog.String("receiverId", saved.ReceiverID), slog.String("category", string(saved.Category)))

	if uc.publisher.Publish(saved.ReceiverID, saved.View()) {
		metrics.PushedNotifications.Inc()
		slog.Info("notification pushed", slog.String("notificationId", saved.ID), slog.String("receiverId", saved.ReceiverID))
	} else {
		metrics.UndeliveredNotifications.Inc()
		slog.Debug("no live channel for receiver", slog.String("receiverId", saved.ReceiverID))
	}
	return saved, nil
}

// IngestBatch delivers every event independently. Results keep the order of
// events; a failed item never stops its siblings.
func (uc *DeliveryUseCase) IngestBatch(ctx context.Context, events []domain.Event) []domain.DeliveryResult {
	results := make([]domain.DeliveryResult, len(events))
	failed := 0
	for i, event := range events {
		n, err := uc.IngestAndDeliver(ctx, event)
		results[i] = domain.DeliveryResult{Event: event, Notification: n, Err: err}
		if err != nil {
			failed++
		}
	}
	if failed > 0 {
		slog.Warn("notification batch completed with failures", slog.Int("total", len(events)), slog.Int("failed", failed))
	}
	return results
}

var _ port.Deliverer = (*DeliveryUseCase)(nil)
