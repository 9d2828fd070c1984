package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"notificationRelay/internal/modules/notifications/domain"
	"notificationRelay/internal/platform/metrics"
)

type jsonHandler struct {
	topic string
}

func (h jsonHandler) Topic() string { return h.topic }

func (h jsonHandler) Decode(msg *domain.InboundMessage) (domain.Event, error) {
	var event domain.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return domain.Event{}, errors.Join(domain.ErrBadPayload, err)
	}
	return event, nil
}

type recordingDeliverer struct {
	mu      sync.Mutex
	events  []domain.Event
	batches int
	failFor string
}

func (d *recordingDeliverer) IngestAndDeliver(_ context.Context, event domain.Event) (*domain.Notification, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if event.ReceiverID == d.failFor {
		return nil, errors.New("store unavailable")
	}
	d.events = append(d.events, event)
	return &domain.Notification{ID: "n", ReceiverID: event.ReceiverID}, nil
}

func (d *recordingDeliverer) IngestBatch(ctx context.Context, events []domain.Event) []domain.DeliveryResult {
	d.mu.Lock()
	d.batches++
	d.mu.Unlock()
	results := make([]domain.DeliveryResult, len(events))
	for i, event := range events {
		n, err := d.IngestAndDeliver(ctx, event)
		results[i] = domain.DeliveryResult{Event: event, Notification: n, Err: err}
	}
	return results
}

func message(topic, body string) *domain.InboundMessage {
	return &domain.InboundMessage{Topic: topic, Value: []byte(body)}
}

func TestTopicRegistryDispatch(t *testing.T) {
	t.Parallel()

	deliverer := &recordingDeliverer{}
	registry := NewTopicRegistry(deliverer)
	registry.Register(jsonHandler{topic: "b-topic"})
	registry.Register(jsonHandler{topic: "a-topic"})

	if topics := registry.Topics(); len(topics) != 2 || topics[0] != "a-topic" || topics[1] != "b-topic" {
		t.Fatalf("unexpected topics: %v", topics)
	}

	if err := registry.Dispatch(context.Background(), message("a-topic", `{"ReceiverID":"U1"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deliverer.events) != 1 || deliverer.events[0].ReceiverID != "U1" {
		t.Fatalf("unexpected deliveries: %#v", deliverer.events)
	}
}

func TestTopicRegistryDropsUndecodable(t *testing.T) {
	t.Parallel()

	deliverer := &recordingDeliverer{}
	registry := NewTopicRegistry(deliverer)
	registry.Register(jsonHandler{topic: "a-topic"})

	if err := registry.Dispatch(context.Background(), message("a-topic", `{broken`)); !errors.Is(err, domain.ErrBadPayload) {
		t.Fatalf("expected ErrBadPayload, got %v", err)
	}
	if err := registry.Dispatch(context.Background(), message("other", `{}`)); !errors.Is(err, domain.ErrBadPayload) {
		t.Fatalf("expected ErrBadPayload for unknown topic, got %v", err)
	}
	if len(deliverer.events) != 0 {
		t.Fatalf("nothing should have been delivered, got %#v", deliverer.events)
	}
}

func TestTopicRegistryCountsUnknownTopicAsDropped(t *testing.T) {
	t.Parallel()

	deliverer := &recordingDeliverer{}
	registry := NewTopicRegistry(deliverer)
	registry.Register(jsonHandler{topic: "a-topic"})
	dropped := metrics.IngestedEvents.WithLabelValues("unregistered-topic", metrics.ResultDropped)
	before := testutil.ToFloat64(dropped)

	if err := registry.Dispatch(context.Background(), message("unregistered-topic", `{"ReceiverID":"U1"}`)); !errors.Is(err, domain.ErrBadPayload) {
		t.Fatalf("expected ErrBadPayload, got %v", err)
	}
	if err := registry.DispatchBatch(context.Background(), []*domain.InboundMessage{message("unregistered-topic", `{}`)}); !errors.Is(err, domain.ErrBadPayload) {
		t.Fatalf("expected ErrBadPayload from batch, got %v", err)
	}
	if got := testutil.ToFloat64(dropped) - before; got != 2 {
		t.Fatalf("expected two dropped messages counted, got %v", got)
	}
	if len(deliverer.events) != 0 {
		t.Fatalf("nothing should have been delivered, got %#v", deliverer.events)
	}
}

func TestTopicRegistryDispatchBatch(t *testing.T) {
	t.Parallel()

	deliverer := &recordingDeliverer{failFor: "broken"}
	registry := NewTopicRegistry(deliverer)
	registry.Register(jsonHandler{topic: "a-topic"})

	err := registry.DispatchBatch(context.Background(), []*domain.InboundMessage{
		message("a-topic", `{"ReceiverID":"U1"}`),
		message("a-topic", `not json`),
		message("a-topic", `{"ReceiverID":"broken"}`),
		message("a-topic", `{"ReceiverID":"U2"}`),
	})
	if !errors.Is(err, domain.ErrBadPayload) {
		t.Fatalf("expected joined error to include the bad payload, got %v", err)
	}
	if deliverer.batches != 1 {
		t.Fatalf("expected one batch, got %d", deliverer.batches)
	}
	if len(deliverer.events) != 2 || deliverer.events[0].ReceiverID != "U1" || deliverer.events[1].ReceiverID != "U2" {
		t.Fatalf("unexpected deliveries: %#v", deliverer.events)
	}

	if err := registry.DispatchBatch(context.Background(), nil); err != nil {
		t.Fatalf("empty batch must succeed, got %v", err)
	}
}
