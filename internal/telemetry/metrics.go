package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	JobsEnqueued  = prometheus.NewCounter(prometheus.CounterOpts{Name: "analysis_jobs_enqueued_total", Help: "Analysis jobs enqueued"})
	JobsSucceeded = prometheus.NewCounter(prometheus.CounterOpts{Name: "analysis_jobs_succeeded_total", Help: "Analysis jobs that finished successfully"})
	JobsFailed    = prometheus.NewCounter(prometheus.CounterOpts{Name: "analysis_jobs_failed_total", Help: "Analysis jobs that failed terminally"})
	JobsRetried   = prometheus.NewCounter(prometheus.CounterOpts{Name: "analysis_jobs_retried_total", Help: "Analysis job attempts that failed and will retry"})
	JobsTimedOut  = prometheus.NewCounter(prometheus.CounterOpts{Name: "analysis_jobs_timedout_total", Help: "Analysis job attempts cancelled at their deadline"})
	JobsInFlight  = prometheus.NewGauge(prometheus.GaugeOpts{Name: "analysis_jobs_inflight", Help: "Analysis jobs currently being processed"})

	PipelineDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "analysis_pipeline_duration_seconds",
		Help:    "Wall-clock duration of one pipeline attempt",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	ProviderCalls = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "llm_provider_calls_total", Help: "Provider calls by provider and outcome"},
		[]string{"provider", "outcome"})
	ProviderLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llm_provider_latency_seconds",
		Help:    "Provider call latency",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	}, []string{"provider"})

	ValidationRetries  = prometheus.NewCounter(prometheus.CounterOpts{Name: "contract_validation_retries_total", Help: "Corrective retries after schema validation failure"})
	ValidationFailures = prometheus.NewCounter(prometheus.CounterOpts{Name: "contract_validation_failures_total", Help: "Terminal schema validation failures"})
	EnrichmentPasses   = prometheus.NewCounter(prometheus.CounterOpts{Name: "contract_enrichment_passes_total", Help: "Enrichment generations attempted"})

	ChunksStored = prometheus.NewCounter(prometheus.CounterOpts{Name: "rag_chunks_stored_total", Help: "Chunks embedded and stored"})
)

// Handler exposes the /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			JobsEnqueued,
			JobsSucceeded,
			JobsFailed,
			JobsRetried,
			JobsTimedOut,
			JobsInFlight,
			PipelineDuration,
			ProviderCalls,
			ProviderLatency,
			ValidationRetries,
			ValidationFailures,
			EnrichmentPasses,
			ChunksStored,
		)
	})
	return promhttp.Handler()
}
