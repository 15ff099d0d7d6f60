// Package metrics bundles the Prometheus collectors of the aggregator. Every
// method is safe on a nil *Metrics so instrumented code can run without it.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes of one source in a search run.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

type Metrics struct {
	Registry         *prometheus.Registry
	FetchRequests    *prometheus.CounterVec
	FetchDuration    prometheus.Histogram
	SearchSources    *prometheus.CounterVec
	SearchResults    prometheus.Counter
	ValidationStages *prometheus.CounterVec
}

// New registers all collectors on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	fetchRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookcrawler_fetch_requests_total",
			Help: "Pages fetched, by HTTP status class or error.",
		},
		[]string{"status"},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookcrawler_fetch_duration_seconds",
			Help:    "Latency of page fetches including redirects.",
			Buckets: prometheus.DefBuckets,
		},
	)
	searchSources := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookcrawler_search_sources_total",
			Help: "Sources visited by search runs, by outcome.",
		},
		[]string{"outcome"},
	)
	searchResults := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bookcrawler_search_results_total",
			Help: "Search hits delivered to callers.",
		},
	)
	validationStages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookcrawler_validation_stages_total",
			Help: "Rule set validation stages, by stage and status.",
		},
		[]string{"stage", "status"},
	)

	registry.MustRegister(fetchRequests, fetchDuration, searchSources, searchResults, validationStages)

	return &Metrics{
		Registry:         registry,
		FetchRequests:    fetchRequests,
		FetchDuration:    fetchDuration,
		SearchSources:    searchSources,
		SearchResults:    searchResults,
		ValidationStages: validationStages,
	}
}

func (m *Metrics) ObserveFetch(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchRequests.WithLabelValues(status).Inc()
	m.FetchDuration.Observe(d.Seconds())
}

func (m *Metrics) IncSource(outcome string) {
	if m == nil {
		return
	}
	m.SearchSources.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddResults(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SearchResults.Add(float64(n))
}

func (m *Metrics) IncStage(stage, status string) {
	if m == nil {
		return
	}
	m.ValidationStages.WithLabelValues(stage, status).Inc()
}
