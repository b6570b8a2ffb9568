package pipeline

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-report-stream/internal/model"
)

func foldRecords(t *testing.T, configs []model.AggregationConfig, recs []model.Record, startSeq uint64) model.AggregationState {
	t.Helper()
	w := newWorker(0, "test", model.IdentityTransformer, configs, zerolog.Nop())
	for i, rec := range recs {
		w.fold(rec, startSeq+uint64(i))
	}
	return w.StateSnapshot()
}

func TestMergeStatesEmpty(t *testing.T) {
	assert.Equal(t, model.AggregationState{}, MergeStates(nil))
}

func TestMergeSumsAndCounts(t *testing.T) {
	cfg := []model.AggregationConfig{{
		Level:        1,
		GroupBy:      []string{"region"},
		Aggregations: []model.AggregationFunc{model.AggSum, model.AggCount},
	}}
	a := foldRecords(t, cfg, []model.Record{
		{"region": "west", "amount": 10.0},
		{"region": "east", "amount": 5.0},
	}, 0)
	b := foldRecords(t, cfg, []model.Record{
		{"region": "west", "amount": 7.0},
	}, 2)

	merged := MergeStates([]model.AggregationState{a, b})
	assert.Equal(t, int64(3), merged.RecordsProcessed)

	west := merged.Levels[0].Groups["west"]
	require.NotNil(t, west)
	assert.Equal(t, int64(2), west.Count)
	assert.Equal(t, 17.0, west.Sum["amount"])

	east := merged.Levels[0].Groups["east"]
	require.NotNil(t, east)
	assert.Equal(t, int64(1), east.Count)
	assert.Equal(t, 5.0, east.Sum["amount"])
}

func TestMergeMinMax(t *testing.T) {
	cfg := []model.AggregationConfig{{
		Level:        1,
		GroupBy:      []string{"region"},
		Aggregations: []model.AggregationFunc{model.AggMin, model.AggMax},
	}}
	a := foldRecords(t, cfg, []model.Record{
		{"region": "west", "amount": 10.0},
		{"region": "west", "amount": 3.0},
	}, 0)
	b := foldRecords(t, cfg, []model.Record{
		{"region": "west", "amount": 8.0},
	}, 2)

	merged := MergeStates([]model.AggregationState{a, b})
	west := merged.Levels[0].Groups["west"]
	require.NotNil(t, west)
	assert.Equal(t, 3.0, west.Min["amount"])
	assert.Equal(t, 10.0, west.Max["amount"])
}

func TestMergeFirstLastBySequence(t *testing.T) {
	cfg := []model.AggregationConfig{{
		Level:        1,
		GroupBy:      []string{"region"},
		Aggregations: []model.AggregationFunc{model.AggFirst, model.AggLast},
	}}
	// Worker b holds the earlier records even though it merges second.
	a := foldRecords(t, cfg, []model.Record{
		{"region": "west", "city": "seattle"},
	}, 5)
	b := foldRecords(t, cfg, []model.Record{
		{"region": "west", "city": "portland"},
		{"region": "west", "city": "sf"},
	}, 0)

	merged := MergeStates([]model.AggregationState{a, b})
	west := merged.Levels[0].Groups["west"]
	require.NotNil(t, west)
	assert.Equal(t, "portland", west.First["city"])
	assert.Equal(t, "seattle", west.Last["city"])
}

// Merging must be independent of how records were split across workers.
func TestMergePartitionInvariance(t *testing.T) {
	cfg := []model.AggregationConfig{
		{Level: 1, GroupBy: []string{"region"},
			Aggregations: []model.AggregationFunc{model.AggSum, model.AggCount, model.AggMin, model.AggMax, model.AggFirst, model.AggLast}},
		{Level: 2, GroupBy: []string{"region", "city"},
			Aggregations: []model.AggregationFunc{model.AggSum, model.AggCount}},
	}

	regions := []string{"north", "south", "east", "west"}
	cities := []string{"a", "b", "c"}
	var recs []model.Record
	for i := 0; i < 240; i++ {
		recs = append(recs, model.Record{
			"region": regions[i%len(regions)],
			"city":   cities[i%len(cities)],
			"amount": float64(i),
		})
	}

	single := foldRecords(t, cfg, recs, 0)

	for _, partitions := range []int{2, 3, 5} {
		workers := make([]*worker, partitions)
		for i := range workers {
			workers[i] = newWorker(i, "test", model.IdentityTransformer, cfg, zerolog.Nop())
		}
		for i, rec := range recs {
			workers[i%partitions].fold(rec, uint64(i))
		}
		states := make([]model.AggregationState, partitions)
		for i, w := range workers {
			states[i] = w.StateSnapshot()
		}
		merged := MergeStates(states)

		assert.Equal(t, single.RecordsProcessed, merged.RecordsProcessed, "partitions=%d", partitions)
		require.Len(t, merged.Levels, len(single.Levels))
		for li, level := range single.Levels {
			got := merged.Levels[li]
			require.Len(t, got.Groups, len(level.Groups), "partitions=%d level=%d", partitions, li)
			for key, want := range level.Groups {
				acc := got.Groups[key]
				require.NotNil(t, acc, "partitions=%d key=%q", partitions, key)
				label := fmt.Sprintf("partitions=%d key=%q", partitions, key)
				assert.Equal(t, want.Count, acc.Count, label)
				assert.Equal(t, want.Sum, acc.Sum, label)
				assert.Equal(t, want.Min, acc.Min, label)
				assert.Equal(t, want.Max, acc.Max, label)
				assert.Equal(t, want.First, acc.First, label)
				assert.Equal(t, want.Last, acc.Last, label)
			}
		}
	}
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	cfg := []model.AggregationConfig{{
		Level:        1,
		GroupBy:      []string{"region"},
		Aggregations: []model.AggregationFunc{model.AggSum, model.AggCount},
	}}
	a := foldRecords(t, cfg, []model.Record{{"region": "west", "amount": 1.0}}, 0)
	b := foldRecords(t, cfg, []model.Record{{"region": "west", "amount": 2.0}}, 1)

	_ = MergeStates([]model.AggregationState{a, b})

	assert.Equal(t, 1.0, a.Levels[0].Groups["west"].Sum["amount"])
	assert.Equal(t, 2.0, b.Levels[0].Groups["west"].Sum["amount"])
	assert.Equal(t, int64(1), a.RecordsProcessed)
}
