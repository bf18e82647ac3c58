// Package metrics defines the Prometheus collectors for the search pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "inquirit"

// Status and outcome label values.
const (
	StatusOK    = "ok"
	StatusError = "error"

	OutcomeKept    = "kept"
	OutcomeDropped = "dropped"
)

// Pipeline stage label values for StageDuration.
const (
	StageRephrase  = "rephrase"
	StageWebSearch = "web_search"
	StageFetch     = "fetch"
	StageRerank    = "rerank"
	StageSynthesis = "synthesis"
)

var (
	WebSearchRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "web_search_requests_total",
			Help:      "Search endpoint requests by result status",
		},
		[]string{"status"},
	)

	PageFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_fetches_total",
			Help:      "Page fetches by result status",
		},
		[]string{"status"}, // ok, error, status, content_type, panic
	)

	ChunksProduced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_produced_total",
			Help:      "Chunk documents produced from fetched pages",
		},
	)

	RerankDocuments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rerank_documents_total",
			Help:      "Documents kept or dropped by reranking",
		},
		[]string{"outcome"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)
)

var registerOnce sync.Once

// Register adds every collector to reg. Only the first call has an effect.
// A nil reg means prometheus.DefaultRegisterer.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(
			WebSearchRequests,
			PageFetches,
			ChunksProduced,
			RerankDocuments,
			StageDuration,
			httpRequestDuration,
			httpRequestsTotal,
		)
	})
}
