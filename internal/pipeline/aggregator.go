package pipeline

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"go-report-stream/internal/model"
	"go-report-stream/pkg/values"
)

// worker is one aggregator instance. It transforms records, folds them into
// its private aggregation state, and forwards them downstream. State is
// single-writer: only run mutates it, guarded briefly per record so that
// StateSnapshot never blocks the fold for a whole chunk.
type worker struct {
	id         int
	pipelineID string
	transform  model.Transformer
	configs    []model.AggregationConfig

	mu    sync.RWMutex
	state model.AggregationState

	log zerolog.Logger
}

func newWorker(id int, pipelineID string, transform model.Transformer, configs []model.AggregationConfig, log zerolog.Logger) *worker {
	levels := make([]*model.LevelState, len(configs))
	for i, c := range configs {
		levels[i] = &model.LevelState{
			Level:        c.Level,
			GroupBy:      c.GroupBy,
			Aggregations: c.Aggregations,
			SortDesc:     c.SortDesc,
			Groups:       make(map[string]*model.Accumulator),
		}
	}
	return &worker{
		id:         id,
		pipelineID: pipelineID,
		transform:  transform,
		configs:    configs,
		state:      model.AggregationState{Levels: levels},
		log:        log.With().Str("stage", "aggregator").Int("worker", id).Logger(),
	}
}

// progressFn receives per-chunk progress deltas.
type progressFn func(processed, skipped, chunks int64)

// run consumes chunks until in closes or ctx is cancelled. Transform
// failures drop the single record, log and count it; they never fail the
// chunk. Aggregation is a side channel: the transformed record is forwarded
// whether or not any config matched it.
func (w *worker) run(ctx context.Context, in <-chan model.Chunk, out chan<- model.Record, progress progressFn) error {
	for chunk := range in {
		var processed, skipped int64
		for i, rec := range chunk.Records {
			seq := chunk.Start + uint64(i)
			transformed, err := w.transform(rec)
			if err != nil {
				skipped++
				w.log.Warn().Err(err).Uint64("seq", seq).Msg("transform failed, skipping record")
				continue
			}
			w.fold(transformed, seq)
			processed++

			select {
			case out <- transformed:
			case <-ctx.Done():
				w.noteSkipped(skipped)
				progress(processed, skipped, 0)
				return ctx.Err()
			}
		}
		w.noteSkipped(skipped)
		progress(processed, skipped, 1)
	}
	return nil
}

// fold updates global scalars and every configured level's accumulator.
func (w *worker) fold(rec model.Record, seq uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.state.RecordsProcessed++
	for i, cfg := range w.configs {
		level := w.state.Levels[i]
		key := values.GroupKey(cfg.GroupBy, rec)
		acc, ok := level.Groups[key]
		if !ok {
			acc = &model.Accumulator{GroupValues: make(map[string]interface{}, len(cfg.GroupBy))}
			for _, f := range cfg.GroupBy {
				acc.GroupValues[f] = rec[f]
			}
			level.Groups[key] = acc
		}
		foldAccumulator(acc, cfg, rec, seq)
	}
}

func (w *worker) noteSkipped(n int64) {
	if n == 0 {
		return
	}
	w.mu.Lock()
	w.state.RecordsSkipped += n
	w.mu.Unlock()
}

// foldAccumulator applies one record to one group accumulator. sum and avg
// share the sum/count bookkeeping; min/max keep per-field extrema; first and
// last capture the record's fields keyed by its sequence so merging across
// workers stays order-correct.
func foldAccumulator(acc *model.Accumulator, cfg model.AggregationConfig, rec model.Record, seq uint64) {
	acc.Count++

	if cfg.Has(model.AggSum) || cfg.Has(model.AggAvg) {
		if acc.Sum == nil {
			acc.Sum = make(map[string]float64)
		}
		for field, v := range rec {
			if values.IsNumeric(v) {
				f, _ := values.ToFloat(v)
				acc.Sum[field] += f
			}
		}
	}
	if cfg.Has(model.AggMin) {
		if acc.Min == nil {
			acc.Min = make(map[string]float64)
		}
		for field, v := range rec {
			if values.IsNumeric(v) {
				f, _ := values.ToFloat(v)
				if cur, ok := acc.Min[field]; !ok || f < cur {
					acc.Min[field] = f
				}
			}
		}
	}
	if cfg.Has(model.AggMax) {
		if acc.Max == nil {
			acc.Max = make(map[string]float64)
		}
		for field, v := range rec {
			if values.IsNumeric(v) {
				f, _ := values.ToFloat(v)
				if cur, ok := acc.Max[field]; !ok || f > cur {
					acc.Max[field] = f
				}
			}
		}
	}
	if cfg.Has(model.AggFirst) {
		if acc.First == nil || seq < acc.FirstSeq {
			acc.First = captureFields(rec)
			acc.FirstSeq = seq
		}
	}
	if cfg.Has(model.AggLast) {
		if acc.Last == nil || seq >= acc.LastSeq {
			acc.Last = captureFields(rec)
			acc.LastSeq = seq
		}
	}
}

func captureFields(rec model.Record) map[string]interface{} {
	out := make(map[string]interface{}, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

// StateSnapshot returns a deep copy of the worker's current state. Callable
// at any time; readers never block the fold beyond one record's lock hold.
func (w *worker) StateSnapshot() model.AggregationState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return copyState(w.state)
}
