package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusCreated.CanTransition(StatusRunning))
	assert.True(t, StatusRunning.CanTransition(StatusPaused))
	assert.True(t, StatusPaused.CanTransition(StatusRunning))
	assert.True(t, StatusRunning.CanTransition(StatusCompleted))
	assert.True(t, StatusRunning.CanTransition(StatusFailed))
	assert.True(t, StatusPaused.CanTransition(StatusCompleted))
	assert.True(t, StatusPaused.CanTransition(StatusFailed))

	assert.False(t, StatusCreated.CanTransition(StatusPaused))
	assert.False(t, StatusCreated.CanTransition(StatusCompleted))
	assert.False(t, StatusRunning.CanTransition(StatusCreated))
}

func TestTerminalStatusesRejectEverything(t *testing.T) {
	all := []PipelineStatus{StatusCreated, StatusRunning, StatusPaused, StatusCompleted, StatusFailed}
	for _, terminal := range []PipelineStatus{StatusCompleted, StatusFailed} {
		assert.True(t, terminal.Terminal())
		for _, next := range all {
			assert.False(t, terminal.CanTransition(next), "%s -> %s", terminal, next)
		}
	}
	assert.False(t, StatusRunning.Terminal())
	assert.False(t, StatusPaused.Terminal())
}
