package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the outbox relay.
type Metrics struct {
	PendingDepth    prometheus.Gauge
	PublishedTotal  prometheus.Counter
	PublishFailures prometheus.Counter
	BatchSize       prometheus.Histogram
	PollDuration    prometheus.Histogram
}

// New registers all outbox metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		PendingDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sigil_outbox_pending_total",
			Help: "Current number of pending (unprocessed) outbox entries",
		}),
		PublishedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigil_outbox_published_total",
			Help: "Total number of outbox entries relayed to the event bus",
		}),
		PublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigil_outbox_publish_failures_total",
			Help: "Total number of outbox relay failures",
		}),
		BatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigil_outbox_batch_size",
			Help:    "Number of entries relayed per batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),
		PollDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigil_outbox_poll_duration_seconds",
			Help:    "Time taken for each poll cycle",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}
