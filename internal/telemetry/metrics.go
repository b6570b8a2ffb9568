// Package telemetry emits the pipeline's observability events: structured
// logs, prometheus collectors, and an optional persistence sink for post-hoc
// inspection through the API.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus collectors for the pipeline runtime.
type Metrics struct {
	PipelinesStarted  prometheus.Counter
	PipelinesFailed   prometheus.Counter
	PipelinesByStatus *prometheus.GaugeVec
	ChunksFetched     prometheus.Counter
	RecordsProcessed  prometheus.Counter
	RecordsSkipped    prometheus.Counter
	PipelineDuration  prometheus.Histogram
	HeapBytes         prometheus.Gauge
	MemoryPauses      prometheus.Counter
}

// NewMetrics registers all collectors with reg. Tests pass a private
// registry to avoid duplicate registration panics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PipelinesStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "reportstream_pipelines_started_total",
			Help: "Total number of pipelines started",
		}),
		PipelinesFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "reportstream_pipelines_failed_total",
			Help: "Total number of pipelines that terminated with an error",
		}),
		PipelinesByStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "reportstream_pipelines",
			Help: "Current number of pipelines by status",
		}, []string{"status"}),
		ChunksFetched: factory.NewCounter(prometheus.CounterOpts{
			Name: "reportstream_chunks_fetched_total",
			Help: "Total number of chunks emitted by producers",
		}),
		RecordsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "reportstream_records_processed_total",
			Help: "Total number of records transformed and aggregated",
		}),
		RecordsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "reportstream_records_skipped_total",
			Help: "Total number of records dropped by transform failures",
		}),
		PipelineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "reportstream_pipeline_duration_seconds",
			Help:    "Wall-clock duration of completed pipelines",
			Buckets: []float64{.1, .5, 1, 5, 15, 60, 300, 900},
		}),
		HeapBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "reportstream_heap_bytes",
			Help: "Heap allocation sampled by the health monitor",
		}),
		MemoryPauses: factory.NewCounter(prometheus.CounterOpts{
			Name: "reportstream_memory_pauses_total",
			Help: "Times the memory circuit breaker paused running pipelines",
		}),
	}
}
