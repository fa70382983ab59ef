package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counters and histograms for the ingestion pipeline. Kept deliberately
// small: one counter per terminal outcome, one per dependency call site
// that can fail, one latency histogram for the end-to-end run. No per-URL
// or per-job-id labels, to avoid unbounded cardinality.
var (
	IngestItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fittness_builder_ingest_items_total",
		Help: "Total number of carousel/video items processed, by terminal status.",
	}, []string{"status"})

	IngestStageFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fittness_builder_ingest_stage_failures_total",
		Help: "Total number of pipeline stage failures, by stage and error kind.",
	}, []string{"stage", "kind"})

	IngestDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fittness_builder_ingest_duration_seconds",
		Help:    "Wall-clock duration of one Orchestrator.Ingest call, covering every item in a download.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s .. ~34min
	})

	JobsFinishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fittness_builder_jobs_finished_total",
		Help: "Total number of Job Ledger rows reaching a terminal state, by state.",
	}, []string{"state"})

	SearchLatencySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fittness_builder_search_latency_seconds",
		Help:    "Latency of a retrieval.Searcher.DiverseSearch call, embed + vector query + metadata post-join combined.",
		Buckets: prometheus.DefBuckets,
	})
)

// MetricsHandler exposes the process's registered collectors for scraping,
// mounted at GET /metrics by the router alongside the API's /api group.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
