package broker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"notificationRelay/internal/modules/notifications/application/port"
)

// Settings are shared by every topic consumer.
type Settings struct {
	Brokers      []string
	GroupID      string
	BatchSize    int
	BatchTimeout time.Duration
}

// StartKafkaConsumers runs one consumer per topic until ctx ends. The returned
// group is done once every consumer has closed its reader.
func StartKafkaConsumers(ctx context.Context, sink port.EventSink, settings Settings, topics []string) *sync.WaitGroup {
	var wg sync.WaitGroup
	if len(settings.Brokers) == 0 {
		// kafka.NewReader panics on an empty broker list.
		slog.Warn("no kafka brokers configured; ingestion disabled")
		return &wg
	}
	for _, topic := range topics {
		wg.Add(1)
		go func(tp string) {
			defer wg.Done()
			consumer := NewKafkaConsumer(ConsumerConfig{
				Brokers:      settings.Brokers,
				GroupID:      settings.GroupID,
				Topic:        tp,
				BatchSize:    settings.BatchSize,
				BatchTimeout: settings.BatchTimeout,
			})
			defer func() {
				if err := consumer.Close(); err != nil {
					slog.Warn("kafka reader close failed", slog.String("topic", tp), slog.Any("error", err))
				}
			}()
			if err := consumer.Consume(ctx, sink); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("kafka consumer exited", slog.String("topic", tp), slog.Any("error", err))
			}
		}(topic)
	}
	return &wg
}
