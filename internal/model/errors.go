package model

import (
	"errors"
	"fmt"
)

// ErrPipelineNotFound is returned for lookups of unknown pipeline ids.
var ErrPipelineNotFound = errors.New("pipeline not found")

// ErrInvalidTransition is returned when a status update is not allowed by the
// pipeline state machine, including any update on a terminal pipeline.
var ErrInvalidTransition = errors.New("invalid status transition")

// StartErrorKind distinguishes the ways starting a pipeline can fail.
type StartErrorKind string

const (
	StartErrValidation   StartErrorKind = "validation"
	StartErrRegistration StartErrorKind = "registration"
	StartErrStage        StartErrorKind = "stage_start"
)

// StartError wraps a pipeline start failure with its origin.
type StartError struct {
	Kind StartErrorKind
	Err  error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("pipeline start failed (%s): %v", e.Kind, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// MemoryLimitError reports that the pre-flight cardinality estimate for an
// aggregation config list exceeds a configured ceiling. Raised before the
// pipeline starts, never mid-flight.
type MemoryLimitError struct {
	Reason          string `json:"reason"` // "estimated_groups" or "estimated_memory"
	EstimatedGroups int64  `json:"estimated_groups"`
	EstimatedMemory int64  `json:"estimated_memory"`
	Limit           int64  `json:"limit"`
	Hint            string `json:"hint"`
}

func (e *MemoryLimitError) Error() string {
	if e.Reason == "estimated_groups" {
		return fmt.Sprintf("memory limit exceeded: estimated %d groups over limit %d (%s)",
			e.EstimatedGroups, e.Limit, e.Hint)
	}
	return fmt.Sprintf("memory limit exceeded: estimated %d bytes over limit %d (%s)",
		e.EstimatedMemory, e.Limit, e.Hint)
}
