package model

// GroupResult is one group's projected metrics at a level. Metrics carries
// sum_/avg_/min_/max_/first_/last_ prefixed entries depending on the level's
// aggregation set.
type GroupResult struct {
	Key         string                 `json:"key"`
	GroupValues map[string]interface{} `json:"group_values"`
	RecordCount int64                  `json:"record_count"`
	Metrics     map[string]interface{} `json:"metrics"`
}

// LevelResult is the projected, sorted result set for one level.
type LevelResult struct {
	Level   int           `json:"level"`
	GroupBy []string      `json:"group_by"`
	Groups  []GroupResult `json:"groups"`
}

// Snapshot is a read-only projection of a pipeline's progress and current
// aggregation state. Safe to take while the pipeline is running; values are
// only final once Stable is true.
type Snapshot struct {
	PipelineID       string         `json:"pipeline_id"`
	Status           PipelineStatus `json:"status"`
	Stable           bool           `json:"stable"`
	RecordsProcessed int64          `json:"records_processed"`
	RecordsSkipped   int64          `json:"records_skipped"`
	TotalRecords     *int64         `json:"total_records,omitempty"`
	Levels           []LevelResult  `json:"levels,omitempty"`
	Error            string         `json:"error,omitempty"`
}
