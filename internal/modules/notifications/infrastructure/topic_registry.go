package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"notificationRelay/internal/modules/notifications/application/port"
	"notificationRelay/internal/modules/notifications/domain"
	"notificationRelay/internal/platform/metrics"
)

// TopicRegistry routes inbound messages to the decoder registered for their
// topic and hands the decoded events to the dispatcher.
type TopicRegistry struct {
	handlers  map[string]port.TopicHandler
	deliverer port.Deliverer
}

func NewTopicRegistry(deliverer port.Deliverer) *TopicRegistry {
	return &TopicRegistry{handlers: make(map[string]port.TopicHandler), deliverer: deliverer}
}

func (r *TopicRegistry) Register(h port.TopicHandler) {
	r.handlers[h.Topic()] = h
}

// Topics lists the registered topics in a stable order.
func (r *TopicRegistry) Topics() []string {
	topics := make([]string, 0, len(r.handlers))
	for topic := range r.handlers {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

func (r *TopicRegistry) decode(msg *domain.InboundMessage) (domain.Event, error) {
	var (
		event domain.Event
		err   error
	)
	if handler, ok := r.handlers[msg.Topic]; ok {
		event, err = handler.Decode(msg)
	} else {
		err = fmt.Errorf("%w: no decoder for topic %q", domain.ErrBadPayload, msg.Topic)
	}
	if err != nil {
		metrics.IngestedEvents.WithLabelValues(msg.Topic, metrics.ResultDropped).Inc()
		slog.Warn("dropping undecodable message",
			slog.String("topic", msg.Topic),
			slog.Int("partition", msg.Partition),
			slog.Int64("offset", msg.Offset),
			slog.Any("error", err),
		)
		return domain.Event{}, err
	}
	return event, nil
}

// Dispatch decodes and delivers one message.
func (r *TopicRegistry) Dispatch(ctx context.Context, msg *domain.InboundMessage) error {
	event, err := r.decode(msg)
	if err != nil {
		return err
	}
	if _, err := r.deliverer.IngestAndDeliver(ctx, event); err != nil {
		metrics.IngestedEvents.WithLabelValues(msg.Topic, metrics.ResultFailed).Inc()
		return err
	}
	metrics.IngestedEvents.WithLabelValues(msg.Topic, metrics.ResultDelivered).Inc()
	return nil
}

// DispatchBatch decodes every message, drops the undecodable ones and delivers
// the rest as one batch. The returned error joins the per-item failures.
func (r *TopicRegistry) DispatchBatch(ctx context.Context, msgs []*domain.InboundMessage) error {
	events := make([]domain.Event, 0, len(msgs))
	topics := make([]string, 0, len(msgs))
	var errs []error
	for _, msg := range msgs {
		event, err := r.decode(msg)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		events = append(events, event)
		topics = append(topics, msg.Topic)
	}
	if len(events) == 0 {
		return errors.Join(errs...)
	}
	for i, result := range r.deliverer.IngestBatch(ctx, events) {
		if result.Err != nil {
			metrics.IngestedEvents.WithLabelValues(topics[i], metrics.ResultFailed).Inc()
			errs = append(errs, result.Err)
			continue
		}
		metrics.IngestedEvents.WithLabelValues(topics[i], metrics.ResultDelivered).Inc()
	}
	return errors.Join(errs...)
}

var _ port.EventSink = (*TopicRegistry)(nil)
