// Package metrics exposes audit run counters and latencies to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cloud_audit"

// Audit records per-check outcomes.
type Audit struct {
	runs     prometheus.Counter
	checks   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	findings *prometheus.CounterVec
}

// NewAudit creates the audit metrics and registers them with reg.
func NewAudit(reg prometheus.Registerer) *Audit {
	a := &Audit{
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Number of audit runs started",
		}),
		checks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "checks_total",
				Help:      "Number of finished checks by outcome",
			},
			[]string{"check", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "check_duration_seconds",
				Help:      "Check execution time",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"check"},
		),
		findings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "findings_total",
				Help:      "Number of findings reported",
			},
			[]string{"check"},
		),
	}
	reg.MustRegister(a.runs, a.checks, a.duration, a.findings)
	return a
}

func (a *Audit) RunStarted() {
	a.runs.Inc()
}

// CheckFinished records a check outcome. outcome is "ok" or a failure kind.
func (a *Audit) CheckFinished(check, outcome string, findings int, elapsed time.Duration) {
	a.checks.WithLabelValues(check, outcome).Inc()
	a.duration.WithLabelValues(check).Observe(elapsed.Seconds())
	if findings > 0 {
		a.findings.WithLabelValues(check).Add(float64(findings))
	}
}
