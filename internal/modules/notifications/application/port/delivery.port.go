package port

import (
	"context"

	"notificationRelay/internal/modules/notifications/domain"
)

// Deliverer persists events and pushes them to live subscribers.
type Deliverer interface {
	IngestAndDeliver(ctx context.Context, event domain.Event) (*domain.Notification, error)
	IngestBatch(ctx context.Context, events []domain.Event) []domain.DeliveryResult
}

// Tokens issues and resolves single-use subscription tokens.
type Tokens interface {
	Issue(ctx context.Context, userID string) (string, error)
	Resolve(ctx context.Context, token string) (string, error)
	Consume(ctx context.Context, token string) error
}

// Stream is one reader attached to a user's channel.
//
// Drain returns every queued item; once the channel is closed and the queue
// is empty it returns domain.ErrChannelClosed. Wait is signalled when new
// items arrive or the channel closes.
type Stream interface {
	UserID() string
	Drain() ([]domain.NotificationView, error)
	Wait() <-chan struct{}
	Receive(ctx context.Context) (domain.NotificationView, error)
}

// StreamRegistry attaches and detaches readers of user channels.
type StreamRegistry interface {
	Subscribe(userID string) (Stream, error)
	Leave(stream Stream)
}
