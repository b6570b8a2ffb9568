package pipeline

import (
	"sort"

	"go-report-stream/internal/model"
)

// projectLevels turns raw accumulator state into the sorted, metric-named
// result sets exposed through snapshots. Averages are derived here from
// sum and count rather than stored, so merge never has to reconcile them.
func projectLevels(state model.AggregationState) []model.LevelResult {
	out := make([]model.LevelResult, 0, len(state.Levels))
	for _, level := range state.Levels {
		lr := model.LevelResult{
			Level:   level.Level,
			GroupBy: level.GroupBy,
			Groups:  make([]model.GroupResult, 0, len(level.Groups)),
		}
		for key, acc := range level.Groups {
			lr.Groups = append(lr.Groups, model.GroupResult{
				Key:         key,
				GroupValues: acc.GroupValues,
				RecordCount: acc.Count,
				Metrics:     projectMetrics(level, acc),
			})
		}
		if level.SortDesc {
			sort.Slice(lr.Groups, func(i, j int) bool { return lr.Groups[i].Key > lr.Groups[j].Key })
		} else {
			sort.Slice(lr.Groups, func(i, j int) bool { return lr.Groups[i].Key < lr.Groups[j].Key })
		}
		out = append(out, lr)
	}
	return out
}

func projectMetrics(level *model.LevelState, acc *model.Accumulator) map[string]interface{} {
	metrics := make(map[string]interface{})
	if level.Has(model.AggCount) {
		metrics["count"] = acc.Count
	}
	if level.Has(model.AggSum) {
		for field, v := range acc.Sum {
			metrics["sum_"+field] = v
		}
	}
	if level.Has(model.AggAvg) && acc.Count > 0 {
		for field, v := range acc.Sum {
			metrics["avg_"+field] = v / float64(acc.Count)
		}
	}
	if level.Has(model.AggMin) {
		for field, v := range acc.Min {
			metrics["min_"+field] = v
		}
	}
	if level.Has(model.AggMax) {
		for field, v := range acc.Max {
			metrics["max_"+field] = v
		}
	}
	if level.Has(model.AggFirst) {
		for field, v := range acc.First {
			metrics["first_"+field] = v
		}
	}
	if level.Has(model.AggLast) {
		for field, v := range acc.Last {
			metrics["last_"+field] = v
		}
	}
	return metrics
}
