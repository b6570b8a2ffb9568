// Package registry is the single source of truth for pipeline existence,
// status and stage handles. It is a sharded map keyed by pipeline id: all
// operations are atomic read-modify-write for a single id, and pipelines
// never contend with each other beyond their shard lock.
package registry

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-report-stream/internal/model"
)

const shardCount = 16

// Handles is the control surface of a pipeline's live stages. The registry
// stores them for signaling only and never owns stage lifecycle.
type Handles interface {
	// Pause stops demand propagation at the producer.
	Pause()
	// Resume reopens demand propagation.
	Resume()
	// Stop cancels all stages cooperatively. Idempotent.
	Stop()
	// State returns the merged, read-only aggregation state of all workers.
	State() model.AggregationState
}

type entry struct {
	mu      sync.Mutex
	info    model.PipelineInfo
	handles Handles
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// Registry maps pipeline ids to their registry entries.
type Registry struct {
	shards [shardCount]*shard
}

// New creates an empty registry.
func New() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i] = &shard{entries: make(map[string]*entry)}
	}
	return r
}

func (r *Registry) shardFor(id string) *shard {
	h := fnv.New32a()
	h.Write([]byte(id))
	return r.shards[h.Sum32()%shardCount]
}

func (r *Registry) get(id string) (*entry, error) {
	s := r.shardFor(id)
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrPipelineNotFound
	}
	return e, nil
}

// Register creates a new entry in status Created and returns its id.
func (r *Registry) Register(info model.PipelineInfo) string {
	id := uuid.New().String()
	now := time.Now().UTC()
	info.ID = id
	info.Status = model.StatusCreated
	info.CreatedAt = now
	info.UpdatedAt = now

	s := r.shardFor(id)
	s.mu.Lock()
	s.entries[id] = &entry{info: info}
	s.mu.Unlock()
	return id
}

// Deregister removes an entry. Used when stage start fails so no dangling
// Created pipeline is left behind.
func (r *Registry) Deregister(id string) error {
	s := r.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return model.ErrPipelineNotFound
	}
	delete(s.entries, id)
	return nil
}

// Get returns a copy of the pipeline's registry view.
func (r *Registry) Get(id string) (model.PipelineInfo, error) {
	e, err := r.get(id)
	if err != nil {
		return model.PipelineInfo{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.info, nil
}

// Handles returns the stage handles stored for id.
func (r *Registry) Handles(id string) (Handles, error) {
	e, err := r.get(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handles == nil {
		return nil, fmt.Errorf("pipeline %s: %w", id, model.ErrPipelineNotFound)
	}
	return e.handles, nil
}

// StoreWorkers attaches the live stage handles after the stages are spawned.
func (r *Registry) StoreWorkers(id string, h Handles) error {
	e, err := r.get(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handles = h
	return nil
}

// UpdateStatus applies a state-machine transition. A transition out of a
// terminal status, or any transition the machine does not allow, returns
// ErrInvalidTransition and leaves the entry untouched.
func (r *Registry) UpdateStatus(id string, next model.PipelineStatus) error {
	e, err := r.get(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.info.Status.CanTransition(next) {
		return fmt.Errorf("%s -> %s: %w", e.info.Status, next, model.ErrInvalidTransition)
	}
	e.info.Status = next
	e.info.UpdatedAt = time.Now().UTC()
	return nil
}

// SetError records a terminal error message alongside the Failed status.
func (r *Registry) SetError(id string, cause error) error {
	e, err := r.get(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.info.Error = cause.Error()
	e.info.UpdatedAt = time.Now().UTC()
	return nil
}

// AddProgress accumulates per-chunk progress counters.
func (r *Registry) AddProgress(id string, processed, skipped, chunks int64) error {
	e, err := r.get(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.info.RecordsProcessed += processed
	e.info.RecordsSkipped += skipped
	e.info.ChunksEmitted += chunks
	return nil
}

// CountByStatus returns the number of registered pipelines per status.
func (r *Registry) CountByStatus() map[model.PipelineStatus]int {
	counts := make(map[model.PipelineStatus]int)
	for _, s := range r.shards {
		s.mu.RLock()
		for _, e := range s.entries {
			e.mu.Lock()
			counts[e.info.Status]++
			e.mu.Unlock()
		}
		s.mu.RUnlock()
	}
	return counts
}

// List returns all pipelines, optionally filtered by status.
func (r *Registry) List(filter ...model.PipelineStatus) []model.PipelineInfo {
	var out []model.PipelineInfo
	for _, s := range r.shards {
		s.mu.RLock()
		for _, e := range s.entries {
			e.mu.Lock()
			info := e.info
			e.mu.Unlock()
			if len(filter) == 0 {
				out = append(out, info)
				continue
			}
			for _, f := range filter {
				if info.Status == f {
					out = append(out, info)
					break
				}
			}
		}
		s.mu.RUnlock()
	}
	return out
}
