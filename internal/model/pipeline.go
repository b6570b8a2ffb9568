package model

import "time"

// PipelineStatus is the lifecycle state of a pipeline.
type PipelineStatus string

const (
	StatusCreated   PipelineStatus = "created"
	StatusRunning   PipelineStatus = "running"
	StatusPaused    PipelineStatus = "paused"
	StatusCompleted PipelineStatus = "completed"
	StatusFailed    PipelineStatus = "failed"
)

// Terminal reports whether no further status transition is accepted.
func (s PipelineStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// statusTransitions is the pipeline state machine:
// created -> running <-> paused, running|paused -> completed|failed.
var statusTransitions = map[PipelineStatus][]PipelineStatus{
	StatusCreated: {StatusRunning},
	StatusRunning: {StatusPaused, StatusCompleted, StatusFailed},
	StatusPaused:  {StatusRunning, StatusCompleted, StatusFailed},
}

// CanTransition reports whether moving from s to next is a legal transition.
func (s PipelineStatus) CanTransition(next PipelineStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PipelineInfo is the registry's view of one pipeline.
type PipelineInfo struct {
	ID               string         `json:"id"`
	Status           PipelineStatus `json:"status"`
	Source           string         `json:"source"`
	PartitionCount   int            `json:"partition_count"`
	ChunkSize        int            `json:"chunk_size"`
	TotalRecords     *int64         `json:"total_records,omitempty"`
	RecordsProcessed int64          `json:"records_processed"`
	RecordsSkipped   int64          `json:"records_skipped"`
	ChunksEmitted    int64          `json:"chunks_emitted"`
	Error            string         `json:"error,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}
