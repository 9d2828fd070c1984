package port

import (
	"context"

	"notificationRelay/internal/modules/notifications/domain"
)

// NotificationStore persists notification records keyed by id.
// FindByID and Delete return domain.ErrNotFound for unknown ids.
type NotificationStore interface {
	Save(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
	FindByID(ctx context.Context, id string) (*domain.Notification, error)
	FindAll(ctx context.Context) ([]*domain.Notification, error)
	FindByReceiver(ctx context.Context, receiverID string) ([]*domain.Notification, error)
	Delete(ctx context.Context, id string) error
}
