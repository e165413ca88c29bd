package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDeployment(t *testing.T) *Deployment {
	t.Helper()
	d, err := NewDeployment("mission-1", []Step{{Name: "recon"}, {Name: "advance"}}, "", t0)
	require.NoError(t, err)
	return d
}

// =============================================================================
// Creation Tests
// =============================================================================

func TestNewDeployment_Defaults(t *testing.T) {
	d := newTestDeployment(t)

	assert.True(t, strings.HasPrefix(d.ID, "depl_"))
	assert.Equal(t, "mission-1", d.MissionID)
	assert.Equal(t, StepNotStarted, d.Status)
	assert.Equal(t, int64(1), d.Version)
	assert.Equal(t, StepNotStarted, d.Steps[0].Status)
	assert.NotNil(t, d.Feedbacks)
	assert.Equal(t, t0, d.CreatedAt)
}

func TestNewDeployment_ExplicitStatus(t *testing.T) {
	d, err := NewDeployment("m", nil, StepInProgress, t0)
	require.NoError(t, err)
	assert.Equal(t, StepInProgress, d.Status)
}

func TestNewDeployment_OmittedStatusDerivedFromSteps(t *testing.T) {
	tests := []struct {
		name  string
		steps []Step
		want  StepStatus
	}{
		{"no steps", nil, StepNotStarted},
		{"untouched", []Step{{Name: "a"}, {Name: "b"}}, StepNotStarted},
		{"all completed", []Step{{Name: "a", Status: StepCompleted}}, StepCompleted},
		{"partly done", []Step{{Name: "a", Status: StepCompleted}, {Name: "b"}}, StepInProgress},
		{"one failed", []Step{{Name: "a", Status: StepCompleted}, {Name: "b", Status: StepFailed}}, StepFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDeployment("m", tt.steps, "", t0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Status)
		})
	}
}

func TestNewDeployment_StampsMovedSteps(t *testing.T) {
	given := t0.Add(-time.Hour)
	d, err := NewDeployment("m", []Step{
		{Name: "done", Status: StepCompleted},
		{Name: "running", Status: StepInProgress, StartedAt: &given},
		{Name: "waiting", EndedAt: &given},
		{Name: "broken", Status: StepFailed, EndedAt: &given},
	}, "", t0)
	require.NoError(t, err)

	done := d.Steps[0]
	require.NotNil(t, done.StartedAt)
	require.NotNil(t, done.EndedAt)
	assert.Equal(t, t0, *done.StartedAt)
	assert.Equal(t, t0, *done.EndedAt)

	running := d.Steps[1]
	require.NotNil(t, running.StartedAt)
	assert.Equal(t, given, *running.StartedAt)
	assert.Nil(t, running.EndedAt)

	assert.Nil(t, d.Steps[2].StartedAt)
	assert.Nil(t, d.Steps[2].EndedAt, "only completed steps carry ended_at")
	assert.Nil(t, d.Steps[3].EndedAt)
}

func TestNewDeployment_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mission string
		steps   []Step
		status  StepStatus
	}{
		{"missing mission", "", nil, ""},
		{"unnamed step", "m", []Step{{Name: ""}}, ""},
		{"duplicate step", "m", []Step{{Name: "a"}, {Name: "a"}}, ""},
		{"bad step status", "m", []Step{{Name: "a", Status: "paused"}}, ""},
		{"bad status", "m", nil, "paused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDeployment(tt.mission, tt.steps, tt.status, t0)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

// =============================================================================
// Step Update Tests
// =============================================================================

func TestDeployment_UpdateStep_RecomputesStatus(t *testing.T) {
	d := newTestDeployment(t)

	changed, err := d.UpdateStep("recon", StepUpdate{Status: StepInProgress, Operator: "op"}, false, t1)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StepInProgress, d.Status)
	assert.Equal(t, t1, d.UpdatedAt)

	_, err = d.UpdateStep("recon", StepUpdate{Status: StepCompleted, Operator: "op"}, false, t1)
	require.NoError(t, err)
	changed, err = d.UpdateStep("advance", StepUpdate{Status: StepCompleted, Operator: "op"}, false, t2)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StepCompleted, d.Status)
}

func TestDeployment_UpdateStep_Idempotent(t *testing.T) {
	d := newTestDeployment(t)
	u := StepUpdate{Status: StepInProgress, Operator: "op"}

	_, err := d.UpdateStep("recon", u, false, t1)
	require.NoError(t, err)
	first := d.Steps[0]

	changed, err := d.UpdateStep("recon", u, false, t2)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, first, d.Steps[0])
	assert.Equal(t, StepInProgress, d.Status)
}

func TestDeployment_UpdateStep_UnknownStep(t *testing.T) {
	d := newTestDeployment(t)
	_, err := d.UpdateStep("missing", StepUpdate{Status: StepCompleted}, false, t1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeployment_UpdateStep_InvalidStatus(t *testing.T) {
	d := newTestDeployment(t)
	_, err := d.UpdateStep("recon", StepUpdate{Status: "paused"}, false, t1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDeployment_UpdateStep_Strict(t *testing.T) {
	d := newTestDeployment(t)
	_, err := d.UpdateStep("recon", StepUpdate{Status: StepCompleted}, true, t1)
	require.NoError(t, err)

	_, err = d.UpdateStep("recon", StepUpdate{Status: StepInProgress}, true, t2)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StepCompleted, d.Steps[0].Status)

	_, err = d.UpdateStep("recon", StepUpdate{Status: StepInProgress}, false, t2)
	assert.NoError(t, err, "permissive mode allows regression")
}

func TestDeployment_ReplaceSteps(t *testing.T) {
	d := newTestDeployment(t)

	changed, err := d.ReplaceSteps([]Step{{Name: "x", Status: StepFailed}}, t1)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StepFailed, d.Status)
	assert.Len(t, d.Steps, 1)

	_, err = d.ReplaceSteps([]Step{{Name: "x"}, {Name: "x"}}, t2)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Len(t, d.Steps, 1)
}

func TestDeployment_ReplaceSteps_KeepsTimestamps(t *testing.T) {
	d := newTestDeployment(t)
	_, err := d.UpdateStep("recon", StepUpdate{Status: StepCompleted, Operator: "op"}, false, t1)
	require.NoError(t, err)

	_, err = d.ReplaceSteps([]Step{{Name: "recon", Status: StepCompleted}, {Name: "hold"}}, t2)
	require.NoError(t, err)

	recon := d.Steps[0]
	require.NotNil(t, recon.StartedAt)
	require.NotNil(t, recon.EndedAt)
	assert.Equal(t, t1, *recon.StartedAt)
	assert.Equal(t, t1, *recon.EndedAt)
	assert.Equal(t, StepInProgress, d.Status)
}

func TestDeployment_ReplaceSteps_TimestampsFollowStatus(t *testing.T) {
	d := newTestDeployment(t)
	_, err := d.UpdateStep("recon", StepUpdate{Status: StepCompleted, Operator: "op"}, false, t1)
	require.NoError(t, err)

	explicit := t0.Add(time.Minute)
	_, err = d.ReplaceSteps([]Step{
		{Name: "recon", Status: StepInProgress},
		{Name: "advance", Status: StepCompleted, StartedAt: &explicit},
	}, t2)
	require.NoError(t, err)

	recon := d.Steps[0]
	require.NotNil(t, recon.StartedAt)
	assert.Equal(t, t1, *recon.StartedAt)
	assert.Nil(t, recon.EndedAt, "reopened step drops ended_at")

	advance := d.Steps[1]
	require.NotNil(t, advance.StartedAt)
	require.NotNil(t, advance.EndedAt)
	assert.Equal(t, explicit, *advance.StartedAt)
	assert.Equal(t, t2, *advance.EndedAt)
}

func TestDeployment_ReplaceSteps_EmptyKeepsStatus(t *testing.T) {
	d := newTestDeployment(t)
	_, err := d.UpdateStep("recon", StepUpdate{Status: StepInProgress}, false, t1)
	require.NoError(t, err)

	changed, err := d.ReplaceSteps(nil, t2)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, StepInProgress, d.Status)
}

func TestDeployment_AddFeedback(t *testing.T) {
	d := newTestDeployment(t)

	fb, err := d.AddFeedback("all clear", "sgt", t1)
	require.NoError(t, err)
	assert.Equal(t, "all clear", fb.Content)
	assert.Equal(t, t1, fb.CreatedAt)
	assert.Len(t, d.Feedbacks, 1)

	_, err = d.AddFeedback("  ", "sgt", t2)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Len(t, d.Feedbacks, 1)
}

func TestNewFeedback(t *testing.T) {
	fb, err := NewFeedback("bridge secured", "cpl", t1)
	require.NoError(t, err)
	assert.Equal(t, Feedback{Content: "bridge secured", Author: "cpl", CreatedAt: t1}, fb)

	_, err = NewFeedback("", "cpl", t1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDeployment_Progress(t *testing.T) {
	d := newTestDeployment(t)
	_, _ = d.UpdateStep("recon", StepUpdate{Status: StepCompleted}, false, t1)

	p := d.Progress()
	assert.Equal(t, 2, p.Total)
	assert.Equal(t, 1, p.Completed)
	assert.Equal(t, 50.0, p.Percentage)
}
