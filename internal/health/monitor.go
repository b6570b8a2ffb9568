// Package health emits periodic pipeline telemetry and guards the process
// against unbounded memory growth. When the heap crosses the configured
// threshold the monitor pauses running pipelines through the registry
// instead of killing them: in-flight work drains, operators decide whether
// to resume.
package health

import (
	"context"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"go-report-stream/internal/model"
	"go-report-stream/internal/telemetry"
)

// Stats is the read side of the pipeline registry.
type Stats interface {
	Counts() map[model.PipelineStatus]int
}

// Breaker pauses running pipelines. Implemented by pipeline.Manager.
type Breaker interface {
	PauseAll(reason string) int
}

// Config tunes the monitor.
type Config struct {
	Interval    time.Duration
	MemoryLimit uint64 // heap bytes; 0 disables the circuit breaker
}

// Monitor samples memory and pipeline counts on a fixed interval.
type Monitor struct {
	cfg     Config
	stats   Stats
	breaker Breaker
	events  *telemetry.Events
	log     zerolog.Logger
}

// New creates a monitor. Run must be called to start sampling.
func New(cfg Config, stats Stats, breaker Breaker, events *telemetry.Events, log zerolog.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	return &Monitor{cfg: cfg, stats: stats, breaker: breaker, events: events,
		log: log.With().Str("component", "health").Logger()}
}

// Run samples until ctx is cancelled. Blocking; callers run it in its own
// goroutine.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sample()
		}
	}
}

func (m *Monitor) sample() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	counts := m.stats.Counts()
	m.events.HealthCheck(ms.HeapAlloc, counts)

	if m.cfg.MemoryLimit > 0 && ms.HeapAlloc > m.cfg.MemoryLimit {
		paused := m.breaker.PauseAll("memory threshold exceeded")
		m.events.MemoryPause(ms.HeapAlloc, m.cfg.MemoryLimit, paused)
	}
}
