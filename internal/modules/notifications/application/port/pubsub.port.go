package port

import (
	"context"

	"notificationRelay/internal/modules/notifications/domain"
)

// Publisher pushes a view to the live channel of a user, if any.
// It never blocks and reports whether a channel accepted the item.
type Publisher interface {
	Publish(userID string, view domain.NotificationView) bool
}

// TopicHandler decodes the messages of one upstream topic into the notification shape.
type TopicHandler interface {
	Topic() string
	Decode(msg *domain.InboundMessage) (domain.Event, error)
}

// EventSink receives decoded events from the ingestion consumer.
type EventSink interface {
	Dispatch(ctx context.Context, msg *domain.InboundMessage) error
	DispatchBatch(ctx context.Context, msgs []*domain.InboundMessage) error
}
