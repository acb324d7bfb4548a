package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels requests that produced a decision.
	OutcomeSuccess = "success"
	// OutcomeError labels requests that failed before a decision was reached.
	OutcomeError = "error"
)

var (
	scoresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "altcredit",
			Name:      "scores_total",
			Help:      "Total scoring requests handled, partitioned by decision outcome.",
		},
		[]string{"decision"},
	)

	scoreDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "altcredit",
			Name:      "score_seconds",
			Help:      "Scoring latency in seconds (validate + predict + explain + audit).",
			Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	auditWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "altcredit",
			Name:      "audit_writes_total",
			Help:      "Audit events written, partitioned by sink and outcome.",
		},
		[]string{"sink", "outcome"},
	)
)

// Register attaches altcredit collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		scoresTotal,
		scoreDurationSeconds,
		auditWritesTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveScore records a scoring request duration and its decision label.
// Failed requests are labelled "error".
func ObserveScore(duration time.Duration, decision string) {
	if decision == "" {
		decision = OutcomeError
	}
	scoresTotal.WithLabelValues(decision).Inc()
	if duration < 0 {
		duration = 0
	}
	scoreDurationSeconds.Observe(duration.Seconds())
}

// ObserveAuditWrite records an audit sink write attempt.
func ObserveAuditWrite(sink string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	auditWritesTotal.WithLabelValues(sink, outcome).Inc()
}
