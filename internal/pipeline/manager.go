package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"go-report-stream/internal/model"
	"go-report-stream/internal/registry"
	"go-report-stream/internal/source"
	"go-report-stream/internal/telemetry"
)

// Manager owns the pipeline lifecycle: it validates start options, runs the
// configurator guard, spawns stages, and serves the query/control surface
// backed by the registry.
type Manager struct {
	reg    *registry.Registry
	events *telemetry.Events
	log    zerolog.Logger
}

// NewManager wires a manager. All pipelines started through it share reg
// and events.
func NewManager(reg *registry.Registry, events *telemetry.Events, log zerolog.Logger) *Manager {
	return &Manager{reg: reg, events: events, log: log}
}

// Handle is returned to the caller on a successful start. Pulling from
// Stream drives the whole pipeline.
type Handle struct {
	PipelineID string
	Stream     *Stream
}

// runner bundles one pipeline's live stages. It is the registry's stage
// handle: control signaling only, no ownership.
type runner struct {
	id       string
	gate     *gate
	cancel   context.CancelFunc
	workers  []*worker
	stopOnce sync.Once
}

func (r *runner) Pause()  { r.gate.Pause() }
func (r *runner) Resume() { r.gate.Resume() }
func (r *runner) Stop()   { r.stopOnce.Do(r.cancel) }

// State merges all workers' snapshots. Read-only with respect to worker
// accumulators; callable while the pipeline is running.
func (r *runner) State() model.AggregationState {
	states := make([]model.AggregationState, len(r.workers))
	for i, w := range r.workers {
		states[i] = w.StateSnapshot()
	}
	return MergeStates(states)
}

// Start validates opts, registers the pipeline and spawns its stages. The
// returned error distinguishes validation, registration and stage-start
// failures; on stage-start failure the registry entry is removed. Source
// ownership transfers to the pipeline only on success: every failing start
// closes it, so callers opening a connection per start never leak one.
func (m *Manager) Start(ctx context.Context, opts StartOptions) (*Handle, error) {
	handle, err := m.start(ctx, opts)
	if err != nil && opts.Source != nil {
		if cerr := opts.Source.Close(); cerr != nil {
			m.log.Warn().Err(cerr).Msg("source close failed")
		}
	}
	return handle, err
}

func (m *Manager) start(ctx context.Context, opts StartOptions) (*Handle, error) {
	if err := opts.normalize(); err != nil {
		return nil, &model.StartError{Kind: model.StartErrValidation, Err: err}
	}

	configs := opts.AggregationConfigs
	if configs == nil && len(opts.Groups) > 0 {
		configs = BuildAggregations(opts.Groups, opts.Variables, *opts.Cumulative, m.log)
	}
	if err := ValidateMemory(configs, *opts.Limits, m.log); err != nil {
		return nil, &model.StartError{Kind: model.StartErrValidation, Err: err}
	}

	info := model.PipelineInfo{
		Source:         opts.SourceDescriptor,
		PartitionCount: opts.PartitionCount,
		ChunkSize:      opts.ChunkSize,
	}
	if sized, ok := opts.Source.(source.Sized); ok {
		total := sized.TotalRecords()
		info.TotalRecords = &total
	}
	id := m.reg.Register(info)
	log := m.log.With().Str("pipeline_id", id).Logger()

	// Sources that can be checked up front fail the start instead of the
	// stream. The entry is removed rather than left dangling in Created.
	if v, ok := opts.Source.(source.Validator); ok {
		if err := v.Validate(ctx); err != nil {
			_ = m.reg.Deregister(id)
			return nil, &model.StartError{Kind: model.StartErrStage, Err: err}
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	g := newGate()
	prod := newProducer(id, opts.Source, opts.ChunkSize, opts.demandWindow(), g, m.events, log)
	out := make(chan model.Record)

	workers := make([]*worker, opts.PartitionCount)
	for i := range workers {
		workers[i] = newWorker(i, id, opts.Transformer, configs, log)
	}
	run := &runner{id: id, gate: g, cancel: cancel, workers: workers}

	if err := m.reg.StoreWorkers(id, run); err != nil {
		cancel()
		_ = m.reg.Deregister(id)
		return nil, &model.StartError{Kind: model.StartErrRegistration, Err: err}
	}
	if err := m.reg.UpdateStatus(id, model.StatusRunning); err != nil {
		cancel()
		_ = m.reg.Deregister(id)
		return nil, &model.StartError{Kind: model.StartErrRegistration, Err: err}
	}

	started := time.Now()

	// Buffered so the producer goroutine never blocks handing off its
	// result. The finalizer's receive is the happens-before edge for the
	// error: workers cancelled mid-send can finish before the producer does,
	// so closing prod.out alone is not enough synchronization.
	producerErr := make(chan error, 1)

	go func() {
		producerErr <- prod.run(runCtx)
		close(prod.out)
		if err := opts.Source.Close(); err != nil {
			log.Warn().Err(err).Msg("source close failed")
		}
	}()

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w *worker) {
			defer wg.Done()
			progress := func(processed, skipped, chunks int64) {
				_ = m.reg.AddProgress(id, processed, skipped, chunks)
				m.events.BatchTransformed(id, w.id, processed, skipped)
			}
			if err := w.run(runCtx, prod.out, out, progress); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn().Err(err).Int("worker", w.id).Msg("aggregator worker exited")
			}
		}(w)
	}

	go func() {
		wg.Wait()
		close(out)
		m.finalize(id, started, <-producerErr)
	}()

	m.events.PipelineStarted(id, opts.SourceDescriptor, opts.PartitionCount, opts.ChunkSize)
	return &Handle{PipelineID: id, Stream: &Stream{ch: out}}, nil
}

// finalize settles the terminal status once all stages have drained.
// A pipeline already stopped through the registry keeps its status.
func (m *Manager) finalize(id string, started time.Time, producerErr error) {
	dur := time.Since(started)
	fatal := producerErr != nil && !errors.Is(producerErr, context.Canceled)
	if fatal {
		_ = m.reg.SetError(id, producerErr)
		if err := m.reg.UpdateStatus(id, model.StatusFailed); err == nil {
			m.events.PipelineFailed(id, producerErr)
		}
	} else {
		_ = m.reg.UpdateStatus(id, model.StatusCompleted)
	}

	info, err := m.reg.Get(id)
	if err != nil {
		return
	}
	m.events.PipelineStopped(id, dur, info.ChunksEmitted, info.RecordsProcessed)
}

// Info returns the registry view of a pipeline.
func (m *Manager) Info(id string) (model.PipelineInfo, error) {
	return m.reg.Get(id)
}

// List returns pipelines, optionally filtered by status.
func (m *Manager) List(filter ...model.PipelineStatus) []model.PipelineInfo {
	return m.reg.List(filter...)
}

// Counts returns the number of pipelines per status.
func (m *Manager) Counts() map[model.PipelineStatus]int {
	return m.reg.CountByStatus()
}

// Pause halts demand propagation without tearing down stages.
func (m *Manager) Pause(id string) error {
	if err := m.reg.UpdateStatus(id, model.StatusPaused); err != nil {
		return err
	}
	h, err := m.reg.Handles(id)
	if err != nil {
		return err
	}
	h.Pause()
	return nil
}

// Resume reopens demand propagation on a paused pipeline.
func (m *Manager) Resume(id string) error {
	if err := m.reg.UpdateStatus(id, model.StatusRunning); err != nil {
		return err
	}
	h, err := m.reg.Handles(id)
	if err != nil {
		return err
	}
	h.Resume()
	return nil
}

// Stop terminates a pipeline cooperatively and marks it completed. Calling
// Stop on an already-terminal pipeline is a no-op, not an error.
func (m *Manager) Stop(id string) error {
	info, err := m.reg.Get(id)
	if err != nil {
		return err
	}
	if info.Status.Terminal() {
		return nil
	}
	if err := m.reg.UpdateStatus(id, model.StatusCompleted); err != nil {
		if errors.Is(err, model.ErrInvalidTransition) {
			return nil // lost a race to another terminal transition
		}
		return err
	}
	h, err := m.reg.Handles(id)
	if err != nil {
		return err
	}
	h.Stop()
	return nil
}

// PauseAll pauses every running pipeline. Used by the health monitor's
// memory circuit breaker; resumption is left to operators.
func (m *Manager) PauseAll(reason string) int {
	n := 0
	for _, info := range m.reg.List(model.StatusRunning) {
		if err := m.Pause(info.ID); err == nil {
			m.log.Warn().Str("pipeline_id", info.ID).Str("reason", reason).Msg("pipeline paused")
			n++
		}
	}
	return n
}

// Snapshot returns a non-blocking, possibly-incomplete projection of the
// pipeline's progress and aggregation state. Stable only once completed.
func (m *Manager) Snapshot(id string) (model.Snapshot, error) {
	info, err := m.reg.Get(id)
	if err != nil {
		return model.Snapshot{}, err
	}
	snap := model.Snapshot{
		PipelineID:       id,
		Status:           info.Status,
		Stable:           info.Status == model.StatusCompleted,
		RecordsProcessed: info.RecordsProcessed,
		RecordsSkipped:   info.RecordsSkipped,
		TotalRecords:     info.TotalRecords,
		Error:            info.Error,
	}
	if h, err := m.reg.Handles(id); err == nil {
		snap.Levels = projectLevels(h.State())
	}
	return snap, nil
}

// State returns the merged aggregation state. Authoritative only after the
// consumer has drained the stream and the pipeline reads Completed.
func (m *Manager) State(id string) (model.AggregationState, error) {
	h, err := m.reg.Handles(id)
	if err != nil {
		return model.AggregationState{}, err
	}
	return h.State(), nil
}
