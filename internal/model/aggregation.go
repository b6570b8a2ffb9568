package model

// AggregationFunc identifies one aggregation applied at a grouping level.
type AggregationFunc string

const (
	AggSum   AggregationFunc = "sum"
	AggCount AggregationFunc = "count"
	AggAvg   AggregationFunc = "avg"
	AggMin   AggregationFunc = "min"
	AggMax   AggregationFunc = "max"
	AggFirst AggregationFunc = "first"
	AggLast  AggregationFunc = "last"
)

// AggregationConfig describes one grouping level. Immutable once built.
type AggregationConfig struct {
	Level        int               `json:"level"`
	GroupBy      []string          `json:"group_by"`
	Aggregations []AggregationFunc `json:"aggregations"`
	SortDesc     bool              `json:"sort_desc"`
}

// Has reports whether fn is part of this level's aggregation set.
func (c AggregationConfig) Has(fn AggregationFunc) bool {
	for _, f := range c.Aggregations {
		if f == fn {
			return true
		}
	}
	return false
}

// GroupDef is a report group definition the configurator derives levels from.
type GroupDef struct {
	Name  string `json:"name"`
	Expr  string `json:"expr"`
	Level int    `json:"level"`
}

// VariableDef is a report variable definition. Variables with a group reset
// scope decide which aggregation functions run at their reset level.
type VariableDef struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"` // sum, average, count, min, max, first, last
	ResetScope string `json:"reset_scope"`
	ResetLevel int    `json:"reset_level"`
}

// Accumulator is the per-group fold state at one level. Sum/Min/Max are keyed
// by numeric field name; First/Last capture field values of the earliest and
// latest record by sequence, which keeps their merge well-defined across
// partition workers.
type Accumulator struct {
	GroupValues map[string]interface{} `json:"group_values"`
	Count       int64                  `json:"count"`
	Sum         map[string]float64     `json:"sum,omitempty"`
	Min         map[string]float64     `json:"min,omitempty"`
	Max         map[string]float64     `json:"max,omitempty"`
	First       map[string]interface{} `json:"first,omitempty"`
	Last        map[string]interface{} `json:"last,omitempty"`
	FirstSeq    uint64                 `json:"first_seq,omitempty"`
	LastSeq     uint64                 `json:"last_seq,omitempty"`
}

// LevelState holds all group accumulators for one configured level, along
// with the level's config so projections can be computed from state alone.
type LevelState struct {
	Level        int                     `json:"level"`
	GroupBy      []string                `json:"group_by"`
	Aggregations []AggregationFunc       `json:"aggregations"`
	SortDesc     bool                    `json:"sort_desc,omitempty"`
	Groups       map[string]*Accumulator `json:"groups"`
}

// Has reports whether fn is part of this level's aggregation set.
func (l *LevelState) Has(fn AggregationFunc) bool {
	for _, f := range l.Aggregations {
		if f == fn {
			return true
		}
	}
	return false
}

// AggregationState is the full accumulator state of one aggregator worker,
// or the merged state of all workers. Group keys are never removed.
type AggregationState struct {
	RecordsProcessed int64         `json:"records_processed"`
	RecordsSkipped   int64         `json:"records_skipped"`
	Levels           []*LevelState `json:"levels"`
}
