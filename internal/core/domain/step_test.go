package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
	t2 = t0.Add(2 * time.Hour)
)

// =============================================================================
// Apply Tests
// =============================================================================

func TestStepApply_InProgressSetsStartedOnce(t *testing.T) {
	s := Step{Name: "recon", Status: StepNotStarted}

	s.Apply(StepUpdate{Status: StepInProgress, Operator: "op1"}, t0)
	require.NotNil(t, s.StartedAt)
	assert.Equal(t, t0, *s.StartedAt)
	assert.Nil(t, s.EndedAt)
	assert.Equal(t, "op1", s.Operator)

	s.Apply(StepUpdate{Status: StepInProgress, Operator: "op2"}, t1)
	assert.Equal(t, t0, *s.StartedAt)
	assert.Equal(t, "op2", s.Operator)
}

func TestStepApply_CompletedBackfillsStart(t *testing.T) {
	s := Step{Name: "recon", Status: StepNotStarted}

	s.Apply(StepUpdate{Status: StepCompleted, Operator: "op"}, t1)
	require.NotNil(t, s.StartedAt)
	require.NotNil(t, s.EndedAt)
	assert.Equal(t, t1, *s.StartedAt)
	assert.Equal(t, t1, *s.EndedAt)
}

func TestStepApply_CompletedKeepsExistingStart(t *testing.T) {
	s := Step{Name: "recon"}
	s.Apply(StepUpdate{Status: StepInProgress}, t0)
	s.Apply(StepUpdate{Status: StepCompleted}, t1)

	assert.Equal(t, t0, *s.StartedAt)
	assert.Equal(t, t1, *s.EndedAt)
	assert.False(t, s.EndedAt.Before(*s.StartedAt))
}

func TestStepApply_RepeatedCompletedRefreshesEnd(t *testing.T) {
	s := Step{Name: "recon"}
	s.Apply(StepUpdate{Status: StepCompleted, Operator: "op"}, t0)
	s.Apply(StepUpdate{Status: StepCompleted, Operator: "op"}, t2)

	assert.Equal(t, StepCompleted, s.Status)
	assert.Equal(t, t0, *s.StartedAt)
	assert.Equal(t, t2, *s.EndedAt)
}

func TestStepApply_Remark(t *testing.T) {
	s := Step{Name: "recon"}
	s.Apply(StepUpdate{Status: StepInProgress, Remark: "moving out"}, t0)
	assert.Equal(t, "moving out", s.Remark)

	s.Apply(StepUpdate{Status: StepInProgress}, t1)
	assert.Equal(t, "moving out", s.Remark, "empty remark keeps previous")
}

func TestStepApply_FailedLeavesTimestamps(t *testing.T) {
	s := Step{Name: "recon"}
	s.Apply(StepUpdate{Status: StepFailed}, t0)

	assert.Equal(t, StepFailed, s.Status)
	assert.Nil(t, s.StartedAt)
	assert.Nil(t, s.EndedAt)
}

func TestStepApply_PermissiveRegression(t *testing.T) {
	s := Step{Name: "recon"}
	s.Apply(StepUpdate{Status: StepCompleted}, t0)
	s.Apply(StepUpdate{Status: StepNotStarted}, t1)

	assert.Equal(t, StepNotStarted, s.Status)
	assert.Equal(t, t0, *s.EndedAt)
}

// =============================================================================
// Strict Transition Tests
// =============================================================================

func TestValidateStepTransition(t *testing.T) {
	tests := []struct {
		from, to StepStatus
		wantErr  error
	}{
		{StepNotStarted, StepInProgress, nil},
		{StepNotStarted, StepCompleted, nil},
		{StepNotStarted, StepFailed, nil},
		{StepInProgress, StepCompleted, nil},
		{StepInProgress, StepFailed, nil},
		{StepFailed, StepInProgress, nil},
		{StepCompleted, StepCompleted, nil},
		{StepInProgress, StepNotStarted, ErrInvalidTransition},
		{StepCompleted, StepInProgress, ErrInvalidTransition},
		{StepCompleted, StepFailed, ErrInvalidTransition},
		{StepFailed, StepCompleted, ErrInvalidTransition},
		{StepNotStarted, "paused", ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := ValidateStepTransition(tt.from, tt.to)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestParseStepStatus(t *testing.T) {
	st, err := ParseStepStatus("in_progress")
	require.NoError(t, err)
	assert.Equal(t, StepInProgress, st)

	_, err = ParseStepStatus("done")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
