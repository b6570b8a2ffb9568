package pipeline

import "go-report-stream/internal/model"

// MergeStates combines per-worker aggregation states into one. The combine
// rules are associative and commutative, so the result is independent of
// how records were partitioned: sums and counts add, min/max take the
// extremum, first/last resolve by record sequence. Inputs are never
// mutated and the merge may be invoked repeatedly while workers keep
// folding.
func MergeStates(states []model.AggregationState) model.AggregationState {
	if len(states) == 0 {
		return model.AggregationState{}
	}
	merged := copyState(states[0])
	for _, s := range states[1:] {
		merged.RecordsProcessed += s.RecordsProcessed
		merged.RecordsSkipped += s.RecordsSkipped
		for i, level := range s.Levels {
			if i >= len(merged.Levels) {
				merged.Levels = append(merged.Levels, copyLevel(level))
				continue
			}
			target := merged.Levels[i]
			for key, acc := range level.Groups {
				if existing, ok := target.Groups[key]; ok {
					mergeAccumulator(existing, acc)
				} else {
					target.Groups[key] = copyAccumulator(acc)
				}
			}
		}
	}
	return merged
}

// mergeAccumulator folds other into dst. dst is the only accumulator
// mutated; other belongs to a live worker and is read-only here.
func mergeAccumulator(dst, other *model.Accumulator) {
	dst.Count += other.Count

	for field, v := range other.Sum {
		if dst.Sum == nil {
			dst.Sum = make(map[string]float64, len(other.Sum))
		}
		dst.Sum[field] += v
	}
	for field, v := range other.Min {
		if dst.Min == nil {
			dst.Min = make(map[string]float64, len(other.Min))
		}
		if cur, ok := dst.Min[field]; !ok || v < cur {
			dst.Min[field] = v
		}
	}
	for field, v := range other.Max {
		if dst.Max == nil {
			dst.Max = make(map[string]float64, len(other.Max))
		}
		if cur, ok := dst.Max[field]; !ok || v > cur {
			dst.Max[field] = v
		}
	}
	if other.First != nil && (dst.First == nil || other.FirstSeq < dst.FirstSeq) {
		dst.First = copyFields(other.First)
		dst.FirstSeq = other.FirstSeq
	}
	if other.Last != nil && (dst.Last == nil || other.LastSeq > dst.LastSeq) {
		dst.Last = copyFields(other.Last)
		dst.LastSeq = other.LastSeq
	}
}

func copyState(s model.AggregationState) model.AggregationState {
	out := model.AggregationState{
		RecordsProcessed: s.RecordsProcessed,
		RecordsSkipped:   s.RecordsSkipped,
		Levels:           make([]*model.LevelState, len(s.Levels)),
	}
	for i, level := range s.Levels {
		out.Levels[i] = copyLevel(level)
	}
	return out
}

func copyLevel(level *model.LevelState) *model.LevelState {
	out := &model.LevelState{
		Level:        level.Level,
		GroupBy:      level.GroupBy,
		Aggregations: level.Aggregations,
		SortDesc:     level.SortDesc,
		Groups:       make(map[string]*model.Accumulator, len(level.Groups)),
	}
	for key, acc := range level.Groups {
		out.Groups[key] = copyAccumulator(acc)
	}
	return out
}

func copyAccumulator(acc *model.Accumulator) *model.Accumulator {
	out := &model.Accumulator{
		GroupValues: copyFields(acc.GroupValues),
		Count:       acc.Count,
		FirstSeq:    acc.FirstSeq,
		LastSeq:     acc.LastSeq,
		First:       copyFields(acc.First),
		Last:        copyFields(acc.Last),
	}
	if acc.Sum != nil {
		out.Sum = make(map[string]float64, len(acc.Sum))
		for k, v := range acc.Sum {
			out.Sum[k] = v
		}
	}
	if acc.Min != nil {
		out.Min = make(map[string]float64, len(acc.Min))
		for k, v := range acc.Min {
			out.Min[k] = v
		}
	}
	if acc.Max != nil {
		out.Max = make(map[string]float64, len(acc.Max))
		for k, v := range acc.Max {
			out.Max[k] = v
		}
	}
	return out
}

func copyFields(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
