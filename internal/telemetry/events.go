package telemetry

import (
	"time"

	"github.com/rs/zerolog"

	"go-report-stream/internal/model"
)

// Sink persists telemetry events. Implemented by store.Store; persistence is
// best-effort and never blocks or fails the pipeline.
type Sink interface {
	SaveEvent(pipelineID, kind, level, message string, fields map[string]interface{}) error
}

// Events is the emission point for all pipeline telemetry.
type Events struct {
	log     zerolog.Logger
	metrics *Metrics
	sink    Sink
}

// NewEvents wires logging, metrics and an optional sink. sink may be nil.
func NewEvents(log zerolog.Logger, metrics *Metrics, sink Sink) *Events {
	return &Events{log: log, metrics: metrics, sink: sink}
}

func (e *Events) persist(pipelineID, kind, level, msg string, fields map[string]interface{}) {
	if e.sink == nil {
		return
	}
	if err := e.sink.SaveEvent(pipelineID, kind, level, msg, fields); err != nil {
		e.log.Warn().Err(err).Str("kind", kind).Msg("telemetry sink write failed")
	}
}

// PipelineStarted records a successful pipeline start.
func (e *Events) PipelineStarted(id, src string, partitions, chunkSize int) {
	e.metrics.PipelinesStarted.Inc()
	e.log.Info().Str("pipeline_id", id).Str("source", src).
		Int("partitions", partitions).Int("chunk_size", chunkSize).
		Msg("pipeline started")
	e.persist(id, "pipeline_start", "info", "pipeline started", map[string]interface{}{
		"source": src, "partitions": partitions, "chunk_size": chunkSize,
	})
}

// PipelineStopped records normal termination with throughput counters.
func (e *Events) PipelineStopped(id string, dur time.Duration, chunks, records int64) {
	e.metrics.PipelineDuration.Observe(dur.Seconds())
	perSec := float64(0)
	if dur > 0 {
		perSec = float64(chunks) / dur.Seconds()
	}
	e.log.Info().Str("pipeline_id", id).Dur("duration", dur).
		Int64("chunks", chunks).Int64("records", records).
		Float64("chunks_per_sec", perSec).
		Msg("pipeline stopped")
	e.persist(id, "pipeline_stop", "info", "pipeline stopped", map[string]interface{}{
		"duration_ms": dur.Milliseconds(), "chunks": chunks, "records": records,
	})
}

// PipelineFailed records a fatal pipeline error.
func (e *Events) PipelineFailed(id string, err error) {
	e.metrics.PipelinesFailed.Inc()
	e.log.Error().Str("pipeline_id", id).Err(err).Msg("pipeline failed")
	e.persist(id, "pipeline_exception", "error", err.Error(), nil)
}

// ChunkFetched records one chunk leaving the producer.
func (e *Events) ChunkFetched(id string, seq uint64, size int) {
	e.metrics.ChunksFetched.Inc()
	e.log.Debug().Str("pipeline_id", id).Uint64("seq", seq).Int("records", size).
		Msg("chunk fetched")
}

// BatchTransformed records one chunk folded by an aggregator worker.
func (e *Events) BatchTransformed(id string, worker int, processed, skipped int64) {
	e.metrics.RecordsProcessed.Add(float64(processed))
	if skipped > 0 {
		e.metrics.RecordsSkipped.Add(float64(skipped))
	}
	e.log.Debug().Str("pipeline_id", id).Int("worker", worker).
		Int64("processed", processed).Int64("skipped", skipped).
		Msg("batch transformed")
}

// HealthCheck records one periodic health sample.
func (e *Events) HealthCheck(heap uint64, counts map[model.PipelineStatus]int) {
	e.metrics.HeapBytes.Set(float64(heap))
	for status, n := range counts {
		e.metrics.PipelinesByStatus.WithLabelValues(string(status)).Set(float64(n))
	}
	e.log.Debug().Uint64("heap_bytes", heap).Interface("pipelines", counts).
		Msg("health check")
}

// MemoryPause records a circuit-breaker trip.
func (e *Events) MemoryPause(heap, threshold uint64, paused int) {
	e.metrics.MemoryPauses.Inc()
	e.log.Warn().Uint64("heap_bytes", heap).Uint64("threshold_bytes", threshold).
		Int("paused", paused).
		Msg("memory threshold exceeded, paused running pipelines")
	e.persist("", "memory_pause", "warn", "memory threshold exceeded", map[string]interface{}{
		"heap_bytes": heap, "threshold_bytes": threshold, "paused": paused,
	})
}
