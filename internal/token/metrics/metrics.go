package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the soulbound token module.
type Metrics struct {
	Issued         *prometheus.CounterVec
	Revoked        prometheus.Counter
	RevokeConflict prometheus.Counter
	VerifyFailures prometheus.Counter
	IssueDuration  prometheus.Histogram
}

// New creates a new Metrics instance with all token metrics registered.
func New() *Metrics {
	return &Metrics{
		Issued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sigil_tokens_issued_total",
			Help: "Total number of soulbound tokens issued, by badge type",
		}, []string{"badge_type"}),
		Revoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigil_tokens_revoked_total",
			Help: "Total number of soulbound tokens revoked",
		}),
		RevokeConflict: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigil_token_revoke_conflicts_total",
			Help: "Revocation attempts that lost to an earlier revocation",
		}),
		VerifyFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigil_token_verify_failures_total",
			Help: "Total token verifications that did not validate",
		}),
		IssueDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigil_token_issue_duration_seconds",
			Help:    "Duration of issueToken operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementIssued records a successful token issuance.
func (m *Metrics) IncrementIssued(badgeType string) {
	m.Issued.WithLabelValues(badgeType).Inc()
}

// ObserveIssue records the duration of an issueToken operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveIssue(start time.Time) {
	m.IssueDuration.Observe(time.Since(start).Seconds())
}
