package metrics

import "github.com/prometheus/client_golang/prometheus"

// Classification Prometheus metrics.
var (
	ClassificationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "researchd",
			Name:      "classification_requests_total",
			Help:      "Total number of classification requests",
		},
		[]string{"model", "status"},
	)

	ClassificationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "researchd",
			Name:      "classification_request_duration_seconds",
			Help:      "Classification request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
		[]string{"model"},
	)

	ClassificationTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "researchd",
			Name:      "classification_tokens_total",
			Help:      "Total classification tokens consumed",
		},
		[]string{"model", "type"},
	)

	ClassificationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "researchd",
			Name:      "classification_errors_total",
			Help:      "Total classification errors",
		},
		[]string{"model", "error_type"},
	)

	FilterDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "researchd",
			Name:      "filter_decisions_total",
			Help:      "Filter decisions by stage and outcome",
		},
		[]string{"stage", "outcome"},
	)

	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "researchd",
			Name:      "pipeline_runs_total",
			Help:      "Research pipeline runs by mode and terminal status",
		},
		[]string{"mode", "status"},
	)
)

var registered bool

// Register registers the classifier and pipeline metrics. Must be called once
// from main (no init side effects).
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(ClassificationRequestsTotal)
	prometheus.MustRegister(ClassificationRequestDuration)
	prometheus.MustRegister(ClassificationTokensTotal)
	prometheus.MustRegister(ClassificationErrorsTotal)
	prometheus.MustRegister(FilterDecisionsTotal)
	prometheus.MustRegister(PipelineRunsTotal)
	registered = true
}
