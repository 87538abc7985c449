package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process-wide Prometheus metrics. Per-context metrics live in
// each bounded context's metrics package.
type Metrics struct {
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
	EventsDropped prometheus.Counter
}

// New creates and registers all process-wide Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sigil_http_requests_total",
			Help: "Total HTTP requests by path and status",
		}, []string{"path", "status"}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sigil_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"}),
		EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigil_events_dropped_total",
			Help: "Domain events dropped because the publisher buffer was full",
		}),
	}
}
