package broker

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"notificationRelay/internal/modules/notifications/application/port"
	"notificationRelay/internal/modules/notifications/domain"
)

const (
	defaultBatchTimeout = 2 * time.Second
	readRetryDelay      = time.Second
)

// messageReader is the part of *kafka.Reader the consumer relies on.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerConfig configures one topic reader. BatchSize above one switches
// the consumer to batch delivery with explicit commits.
type ConsumerConfig struct {
	Brokers      []string
	GroupID      string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
}

type KafkaConsumer struct {
	reader       messageReader
	topic        string
	batchSize    int
	batchTimeout time.Duration
	now          func() time.Time
}

func NewKafkaConsumer(cfg ConsumerConfig) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		GroupID: cfg.GroupID,
		Topic:   cfg.Topic,
	})
	return newConsumer(reader, cfg)
}

func newConsumer(reader messageReader, cfg ConsumerConfig) *KafkaConsumer {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = defaultBatchTimeout
	}
	return &KafkaConsumer{
		reader:       reader,
		topic:        cfg.Topic,
		batchSize:    cfg.BatchSize,
		batchTimeout: cfg.BatchTimeout,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Consume feeds sink until ctx ends. Sink errors are logged and never stop
// the loop; failed items are not retried. Messages already read when ctx ends
// are still delivered, on a context that ignores the cancellation.
func (c *KafkaConsumer) Consume(ctx context.Context, sink port.EventSink) error {
	slog.Info("kafka consumer started", slog.String("topic", c.topic), slog.Int("batchSize", c.batchSize))
	for {
		var err error
		if c.batchSize > 1 {
			err = c.consumeBatch(ctx, sink)
		} else {
			err = c.consumeOne(ctx, sink)
		}
		if ctx.Err() != nil {
			slog.Info("kafka consumer stopped", slog.String("topic", c.topic))
			return ctx.Err()
		}
		if err != nil {
			slog.Warn("kafka read error", slog.String("topic", c.topic), slog.Any("error", err))
			select {
			case <-ctx.Done():
			case <-time.After(readRetryDelay):
			}
		}
	}
}

func (c *KafkaConsumer) consumeOne(ctx context.Context, sink port.EventSink) error {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		return err
	}
	msg := toInbound(m, c.now())
	slog.Debug("kafka message consumed",
		slog.String("topic", m.Topic),
		slog.Int("partition", m.Partition),
		slog.Int64("offset", m.Offset),
	)
	if err := sink.Dispatch(context.WithoutCancel(ctx), msg); err != nil {
		slog.Warn("kafka handler error", slog.String("topic", m.Topic), slog.Int64("offset", m.Offset), slog.Any("error", err))
	}
	return nil
}

// consumeBatch fetches up to batchSize messages, waiting at most batchTimeout
// after the first one, delivers them together and commits their offsets.
// Offsets are committed only after delivery has run to completion, so a
// shutdown during collection flushes the partial batch first.
func (c *KafkaConsumer) consumeBatch(ctx context.Context, sink port.EventSink) error {
	first, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return err
	}
	fetched := []kafka.Message{first}
	deadline := time.Now().Add(c.batchTimeout)
	for len(fetched) < c.batchSize {
		fetchCtx, cancel := context.WithDeadline(ctx, deadline)
		m, err := c.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, context.DeadlineExceeded) {
				slog.Warn("kafka fetch error", slog.String("topic", c.topic), slog.Any("error", err))
			}
			break
		}
		fetched = append(fetched, m)
	}

	receivedAt := c.now()
	msgs := make([]*domain.InboundMessage, len(fetched))
	for i, m := range fetched {
		msgs[i] = toInbound(m, receivedAt)
	}
	deliverCtx := context.WithoutCancel(ctx)
	if ctx.Err() != nil {
		slog.Info("kafka flushing partial batch before stop", slog.String("topic", c.topic), slog.Int("size", len(msgs)))
	}
	if err := sink.DispatchBatch(deliverCtx, msgs); err != nil {
		slog.Warn("kafka batch completed with failures", slog.String("topic", c.topic), slog.Int("size", len(msgs)), slog.Any("error", err))
	}
	if err := c.reader.CommitMessages(deliverCtx, fetched...); err != nil {
		slog.Error("kafka commit failed", slog.String("topic", c.topic), slog.Int("size", len(fetched)), slog.Any("error", err))
		return err
	}
	slog.Debug("kafka batch committed", slog.String("topic", c.topic), slog.Int("size", len(fetched)))
	return nil
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}

func toInbound(m kafka.Message, receivedAt time.Time) *domain.InboundMessage {
	return &domain.InboundMessage{
		Topic:      strings.TrimSpace(m.Topic),
		Partition:  m.Partition,
		Offset:     m.Offset,
		Key:        m.Key,
		Value:      m.Value,
		ReceivedAt: receivedAt,
	}
}
