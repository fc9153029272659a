package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const MetricsNamespace = "invoqa"

var (
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of harness errors",
	}, []string{
		"error",
	})

	checksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "checks_total",
		Help:      "Count of executed checks",
	}, []string{
		"run_id",
		"suite",
		"check",
		"result",
	})

	checkDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "check_duration_seconds",
		Help:      "Duration of executed checks",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	}, []string{
		"suite",
		"check",
	})

	runResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_results",
		Help:      "Result counts of the most recent run",
	}, []string{
		"run_id",
		"result",
	})

	runPassRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_pass_rate",
		Help:      "Pass rate of the most recent run",
	}, []string{
		"run_id",
	})
)

// RecordCheck records the outcome of a single executed check.
func RecordCheck(runID, suite, check, result string, duration time.Duration) {
	checksTotal.WithLabelValues(runID, suite, check, result).Inc()
	checkDuration.WithLabelValues(suite, check).Observe(duration.Seconds())
}

// RecordRun records aggregate figures for a completed run.
func RecordRun(runID string, passed, failed, skipped int, passRate float64) {
	runResults.WithLabelValues(runID, "pass").Set(float64(passed))
	runResults.WithLabelValues(runID, "fail").Set(float64(failed))
	runResults.WithLabelValues(runID, "skip").Set(float64(skipped))
	runPassRate.WithLabelValues(runID).Set(passRate)
}

// RecordError counts a harness error by label.
func RecordError(label string) {
	errorsTotal.WithLabelValues(label).Inc()
}
