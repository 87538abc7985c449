package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the credential module.
type Metrics struct {
	Issued               *prometheus.CounterVec
	VerifyFailures       prometheus.Counter
	PresentationsCreated prometheus.Counter
	IssueDuration        prometheus.Histogram
}

// New creates a new Metrics instance with all credential metrics registered.
func New() *Metrics {
	return &Metrics{
		Issued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sigil_credentials_issued_total",
			Help: "Total number of credentials issued, by credential type",
		}, []string{"type"}),
		VerifyFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigil_credential_verify_failures_total",
			Help: "Total credential verifications that did not validate",
		}),
		PresentationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigil_presentations_created_total",
			Help: "Total verifiable presentations created",
		}),
		IssueDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigil_credential_issue_duration_seconds",
			Help:    "Duration of issueCredential operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementIssued records a successful credential issuance.
func (m *Metrics) IncrementIssued(credType string) {
	m.Issued.WithLabelValues(credType).Inc()
}

// ObserveIssue records the duration of an issueCredential operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveIssue(start time.Time) {
	m.IssueDuration.Observe(time.Since(start).Seconds())
}
