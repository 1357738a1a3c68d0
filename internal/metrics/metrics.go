package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeClean labels checks that needed no correction.
	OutcomeClean = "clean"
	// OutcomeCorrected labels checks that changed the answer or proposed changes.
	OutcomeCorrected = "corrected"
	// OutcomeBlocked labels checks withheld for a critical mismatch.
	OutcomeBlocked = "blocked"

	// ResultValid labels claims that matched ground truth.
	ResultValid = "valid"
	// ResultInvalid labels claims that disagreed with ground truth.
	ResultInvalid = "invalid"
	// ResultUnverified labels claims with no ground truth.
	ResultUnverified = "unverified"

	// ToolOK labels tool calls that returned content.
	ToolOK = "ok"
	// ToolError labels tool calls that failed.
	ToolError = "error"
)

const namespace = "groundcheck"

var (
	checksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Total number of answers checked, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	claimsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_total",
			Help:      "Numeric claims validated, partitioned by kind and result.",
		},
		[]string{"kind", "result"},
	)

	correctionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corrections_total",
			Help:      "Correction actions, partitioned by class and severity.",
		},
		[]string{"class", "severity"},
	)

	checkDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "check_seconds",
			Help:      "Time spent parsing, validating and correcting one answer.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
	)

	toolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Agent tool calls, partitioned by tool and outcome.",
		},
		[]string{"tool", "outcome"},
	)
)

// Register attaches groundcheck collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		checksTotal,
		claimsTotal,
		correctionsTotal,
		checkDurationSeconds,
		toolCallsTotal,
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

// ObserveCheck records a check duration and outcome label.
func ObserveCheck(duration time.Duration, outcome string) {
	switch outcome {
	case OutcomeCorrected, OutcomeBlocked:
	default:
		outcome = OutcomeClean
	}
	checksTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	checkDurationSeconds.Observe(duration.Seconds())
}

// ObserveClaim counts one validated claim.
func ObserveClaim(kind, result string) {
	claimsTotal.WithLabelValues(kind, result).Inc()
}

// ObserveCorrection counts one correction action.
func ObserveCorrection(class, severity string) {
	correctionsTotal.WithLabelValues(class, severity).Inc()
}

// ObserveToolCall counts one agent tool call.
func ObserveToolCall(tool string, failed bool) {
	outcome := ToolOK
	if failed {
		outcome = ToolError
	}
	toolCallsTotal.WithLabelValues(tool, outcome).Inc()
}
