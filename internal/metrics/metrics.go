package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// ModelAttemptsTotal counts inference calls by candidate model and outcome.
	ModelAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rxguard",
		Subsystem: "analysis",
		Name:      "model_attempts_total",
		Help:      "Total number of inference calls per candidate model, labeled by result.",
	}, []string{"model", "result"})

	// RequestsTotal counts analysis requests by outcome (success, failure, mock, rejected).
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rxguard",
		Subsystem: "analysis",
		Name:      "requests_total",
		Help:      "Total number of analysis requests, labeled by result.",
	}, []string{"result"})

	DurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "rxguard",
		Subsystem: "analysis",
		Name:      "duration_seconds",
		Help:      "End-to-end time of a non-mock analysis, including every candidate tried.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
	})

	ReportSaveErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rxguard",
		Subsystem: "analysis",
		Name:      "report_save_errors_total",
		Help:      "Total number of best-effort report writes that failed.",
	})
)

// Register registers collectors with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			ModelAttemptsTotal,
			RequestsTotal,
			DurationSeconds,
			ReportSaveErrorsTotal,
		)
	})
}
