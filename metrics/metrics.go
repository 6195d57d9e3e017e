// Package metrics collects Prometheus instrumentation for the
// notification engine and its transports, grounded on the teacher
// pack's adred-codev-ws_poc/internal/metrics package.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine holds the collectors for the pubsub engine's hot paths.
type Engine struct {
	RecentItemsCount prometheus.Gauge
	RecentItemsBytes prometheus.Gauge

	NotifierMessages prometheus.Counter
	NotifierBytes    prometheus.Counter

	MatchCycleDuration prometheus.Histogram
	MatchExamined      *prometheus.CounterVec
	MatchNotified      *prometheus.CounterVec

	IngestQueueDepth prometheus.Gauge
	IngestDropped    prometheus.Counter

	BroadcastDropped prometheus.Counter

	AccountEncodeErrors prometheus.Counter
}

// NewEngine registers the engine's collectors against reg. Pass a fresh
// prometheus.NewRegistry() in tests so repeated construction doesn't
// collide on the global default registry; production code typically
// passes prometheus.DefaultRegisterer.
func NewEngine(reg prometheus.Registerer, namespace string) *Engine {
	factory := promauto.With(reg)
	return &Engine{
		RecentItemsCount: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pubsub_recent_items_count",
			Help:      "Number of payloads currently held by the recent-items buffer.",
		}),
		RecentItemsBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pubsub_recent_items_bytes",
			Help:      "Total bytes currently held by the recent-items buffer.",
		}),
		NotifierMessages: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pubsub_notifier_messages_total",
			Help:      "Total notifications published by the notifier.",
		}),
		NotifierBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pubsub_notifier_bytes_total",
			Help:      "Total serialized notification bytes published by the notifier.",
		}),
		MatchCycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pubsub_match_cycle_seconds",
			Help:      "Duration of a single commitment-event match-and-notify cycle.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5},
		}),
		MatchExamined: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pubsub_match_examined_total",
			Help:      "Subscriptions examined during a match-and-notify cycle, by kind.",
		}, []string{"kind"}),
		MatchNotified: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pubsub_match_notified_total",
			Help:      "Subscriptions actually notified during a match-and-notify cycle, by kind.",
		}, []string{"kind"}),
		IngestQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pubsub_ingest_queue_depth",
			Help:      "Number of events currently buffered in the ingest channel.",
		}),
		IngestDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pubsub_ingest_dropped_total",
			Help:      "Events dropped because the ingest channel was full.",
		}),
		BroadcastDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pubsub_broadcast_dropped_total",
			Help:      "Broadcast messages dropped because a transport's delivery channel was full or closed.",
		}),
		AccountEncodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pubsub_account_encode_errors_total",
			Help:      "Accounts skipped during match-and-notify because encoding their data failed.",
		}),
	}
}
