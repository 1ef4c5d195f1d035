package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kw_events_total",
			Help: "Webhook events by handling outcome",
		},
		[]string{"outcome"}, // ignored|invalid|recorded|failed|duplicate|panic
	)

	PostsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kw_posts_total",
			Help: "Social posts by result",
		},
		[]string{"result"}, // posted|failed
	)

	RepliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kw_replies_total",
			Help: "Chat replies by result",
		},
		[]string{"result"}, // sent|failed
	)

	OutboxPublishedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kw_outbox_published_total",
			Help: "Outbox rows published to Kafka",
		},
	)

	ArchivedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kw_archived_total",
			Help: "Weight records written to ClickHouse",
		},
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		EventsTotal,
		PostsTotal,
		RepliesTotal,
		OutboxPublishedTotal,
		ArchivedTotal,
	)
}
