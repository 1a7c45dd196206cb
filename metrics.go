package restretry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// attemptsTotal counts every attempt sent through Execute, including
	// the first.
	attemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_retry_attempts_total",
			Help: "Total number of HTTP attempts, including the initial try",
		},
		[]string{"operation"},
	)

	// executeDuration measures wall-clock time spent inside Execute.
	executeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_retry_execute_duration_seconds",
			Help:    "Total duration of Execute calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "result"},
	)

	// backoffDuration measures the sleeps between attempts.
	backoffDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_retry_backoff_duration_seconds",
			Help:    "Duration of backoff waits between attempts in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		},
		[]string{"operation"},
	)
)

// recordAttempt records one attempt of the named operation.
func recordAttempt(operation string) {
	attemptsTotal.WithLabelValues(operation).Inc()
}

// recordExecute records a finished Execute call.
func recordExecute(operation string, success bool, seconds float64) {
	result := "success"
	if !success {
		result = "failure"
	}
	executeDuration.WithLabelValues(operation, result).Observe(seconds)
}

// recordBackoff records a backoff sleep.
func recordBackoff(operation string, seconds float64) {
	backoffDuration.WithLabelValues(operation).Observe(seconds)
}
