package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-report-stream/internal/model"
)

func runWorker(t *testing.T, w *worker, chunks []model.Chunk) ([]model.Record, int64, int64) {
	t.Helper()
	in := make(chan model.Chunk, len(chunks))
	for _, c := range chunks {
		in <- c
	}
	close(in)

	out := make(chan model.Record, 1024)
	var processed, skipped int64
	err := w.run(context.Background(), in, out, func(p, s, _ int64) {
		processed += p
		skipped += s
	})
	require.NoError(t, err)
	close(out)

	var forwarded []model.Record
	for rec := range out {
		forwarded = append(forwarded, rec)
	}
	return forwarded, processed, skipped
}

func TestWorkerFoldsAndForwards(t *testing.T) {
	cfg := []model.AggregationConfig{{
		Level:        1,
		GroupBy:      []string{"region"},
		Aggregations: []model.AggregationFunc{model.AggSum, model.AggCount, model.AggAvg},
	}}
	w := newWorker(0, "p1", model.IdentityTransformer, cfg, zerolog.Nop())

	chunks := []model.Chunk{
		{Seq: 0, Start: 0, Records: []model.Record{
			{"region": "west", "amount": 10.0},
			{"region": "west", "amount": 20.0},
		}},
		{Seq: 1, Start: 2, Records: []model.Record{
			{"region": "east", "amount": 5.0},
		}},
	}
	forwarded, processed, skipped := runWorker(t, w, chunks)

	assert.Len(t, forwarded, 3)
	assert.Equal(t, int64(3), processed)
	assert.Zero(t, skipped)

	state := w.StateSnapshot()
	assert.Equal(t, int64(3), state.RecordsProcessed)
	west := state.Levels[0].Groups["west"]
	require.NotNil(t, west)
	assert.Equal(t, int64(2), west.Count)
	assert.Equal(t, 30.0, west.Sum["amount"])
}

func TestWorkerTransformApplied(t *testing.T) {
	double := func(rec model.Record) (model.Record, error) {
		out := rec.Clone()
		if v, ok := out["amount"].(float64); ok {
			out["amount"] = v * 2
		}
		return out, nil
	}
	cfg := []model.AggregationConfig{{
		Level:        1,
		GroupBy:      []string{"region"},
		Aggregations: []model.AggregationFunc{model.AggSum},
	}}
	w := newWorker(0, "p1", double, cfg, zerolog.Nop())

	forwarded, _, _ := runWorker(t, w, []model.Chunk{
		{Records: []model.Record{{"region": "west", "amount": 3.0}}},
	})

	require.Len(t, forwarded, 1)
	assert.Equal(t, 6.0, forwarded[0]["amount"])
	assert.Equal(t, 6.0, w.StateSnapshot().Levels[0].Groups["west"].Sum["amount"])
}

func TestWorkerSkipsFailedTransforms(t *testing.T) {
	failOdd := func(rec model.Record) (model.Record, error) {
		if n, _ := rec["n"].(int); n%2 == 1 {
			return nil, errors.New("bad record")
		}
		return rec, nil
	}
	cfg := []model.AggregationConfig{{
		Level:        1,
		GroupBy:      []string{"region"},
		Aggregations: []model.AggregationFunc{model.AggCount},
	}}
	w := newWorker(0, "p1", failOdd, cfg, zerolog.Nop())

	recs := make([]model.Record, 10)
	for i := range recs {
		recs[i] = model.Record{"region": "west", "n": i}
	}
	forwarded, processed, skipped := runWorker(t, w, []model.Chunk{{Records: recs}})

	// Odd records drop without failing the chunk.
	assert.Len(t, forwarded, 5)
	assert.Equal(t, int64(5), processed)
	assert.Equal(t, int64(5), skipped)

	state := w.StateSnapshot()
	assert.Equal(t, int64(5), state.RecordsProcessed)
	assert.Equal(t, int64(5), state.RecordsSkipped)
}

func TestWorkerNoConfigsStillForwards(t *testing.T) {
	w := newWorker(0, "p1", model.IdentityTransformer, nil, zerolog.Nop())
	forwarded, processed, _ := runWorker(t, w, []model.Chunk{
		{Records: []model.Record{{"a": 1}, {"a": 2}}},
	})
	assert.Len(t, forwarded, 2)
	assert.Equal(t, int64(2), processed)
	assert.Empty(t, w.StateSnapshot().Levels)
}

func TestWorkerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := []model.AggregationConfig{{Level: 1, GroupBy: []string{"region"}}}
	w := newWorker(0, "p1", model.IdentityTransformer, cfg, zerolog.Nop())

	in := make(chan model.Chunk, 1)
	in <- model.Chunk{Records: []model.Record{{"region": "west"}}}
	close(in)
	out := make(chan model.Record) // nobody reading

	err := w.run(ctx, in, out, func(_, _, _ int64) {})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	cfg := []model.AggregationConfig{{
		Level:        1,
		GroupBy:      []string{"region"},
		Aggregations: []model.AggregationFunc{model.AggSum},
	}}
	w := newWorker(0, "p1", model.IdentityTransformer, cfg, zerolog.Nop())
	w.fold(model.Record{"region": "west", "amount": 1.0}, 0)

	snap := w.StateSnapshot()
	snap.Levels[0].Groups["west"].Sum["amount"] = 999

	assert.Equal(t, 1.0, w.StateSnapshot().Levels[0].Groups["west"].Sum["amount"])
}
