package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultDelivered = "delivered"
	ResultFailed    = "failed"
	ResultDropped   = "dropped"
)

var (
	IngestedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_ingested_events_total",
		Help: "Inbound bus messages by topic and outcome.",
	}, []string{"topic", "result"})

	PushedNotifications = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notification_pushed_total",
		Help: "Notifications enqueued on a live subscriber channel.",
	})

	UndeliveredNotifications = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notification_without_subscriber_total",
		Help: "Persisted notifications whose receiver had no live channel.",
	})

	PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notification_persist_failures_total",
		Help: "Notifications that could not be persisted and were not pushed.",
	})

	SubscriptionTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_subscription_tokens_total",
		Help: "Subscription token operations by outcome.",
	}, []string{"op", "result"})

	ActiveStreams = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "notification_active_streams",
		Help: "Open push streams by transport.",
	}, []string{"transport"})
)
