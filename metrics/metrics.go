// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ModelCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexassist_model_calls_total",
			Help: "Model completions by operation and outcome",
		},
		[]string{"operation", "status"},
	)

	ModelCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lexassist_model_call_duration_seconds",
			Help:    "Model completion latency in seconds, retries included",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 120},
		},
		[]string{"operation"},
	)

	RetrievalReferences = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lexassist_retrieval_references",
			Help:    "Number of sections selected per query",
			Buckets: []float64{0, 1, 2, 4, 8, 16},
		},
		[]string{"scope"},
	)

	UngroundedAnswers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexassist_ungrounded_answers_total",
			Help: "Answers produced without any matching law section",
		},
		[]string{"scope"},
	)

	CitationWarnings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lexassist_citation_warnings_total",
			Help: "Citations in answers that did not match a supplied reference",
		},
	)

	LawMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexassist_law_mutations_total",
			Help: "Law database writes by operation and outcome",
		},
		[]string{"operation", "status"},
	)

	CorpusSections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lexassist_corpus_sections",
			Help: "Sections currently loaded across all laws",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lexassist_active_sessions",
			Help: "Sessions held in memory",
		},
	)
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// ObserveModelCall records one completed model call
func ObserveModelCall(operation string, started time.Time, err error) {
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	ModelCalls.WithLabelValues(operation, status).Inc()
	ModelCallDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// ObserveLawMutation records one add/update/delete attempt
func ObserveLawMutation(operation string, err error) {
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	LawMutations.WithLabelValues(operation, status).Inc()
}
