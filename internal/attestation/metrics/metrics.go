package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the attestation module.
type Metrics struct {
	Created        *prometheus.CounterVec
	MissingClaims  prometheus.Counter
	VerifyFailures prometheus.Counter
	CreateDuration prometheus.Histogram
	MerkleDuration prometheus.Histogram
}

// New creates a new Metrics instance with all attestation metrics registered.
func New() *Metrics {
	return &Metrics{
		Created: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sigil_attestations_created_total",
			Help: "Total number of attestations created, by event type",
		}, []string{"type"}),
		MissingClaims: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigil_attestation_missing_claims_total",
			Help: "Total attestation requests rejected for missing required claims",
		}),
		VerifyFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigil_attestation_verify_failures_total",
			Help: "Total attestation verifications that did not validate",
		}),
		CreateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigil_attestation_create_duration_seconds",
			Help:    "Duration of createAttestation operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		MerkleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigil_attestation_merkle_duration_seconds",
			Help:    "Duration of Merkle root computation over attestation batches",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementCreated records a successful attestation creation.
func (m *Metrics) IncrementCreated(eventType string) {
	m.Created.WithLabelValues(eventType).Inc()
}

// ObserveCreate records the duration of a createAttestation operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveCreate(start time.Time) {
	m.CreateDuration.Observe(time.Since(start).Seconds())
}

// ObserveMerkle records the duration of a Merkle root computation.
func (m *Metrics) ObserveMerkle(start time.Time) {
	m.MerkleDuration.Observe(time.Since(start).Seconds())
}
