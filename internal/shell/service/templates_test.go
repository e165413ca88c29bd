package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/muster/internal/core/domain"
	"github.com/artpar/muster/internal/core/workflow"
	"github.com/artpar/muster/internal/shell/events"
	"github.com/artpar/muster/internal/shell/store"
)

func newTemplateService(t *testing.T) (*TemplateService, *recorder) {
	t.Helper()
	rec := &recorder{}
	return NewTemplateService(setupStore(t), rec, testLogger(), TemplateOptions{}), rec
}

func dawnParams() workflow.Params {
	return workflow.Params{
		Name:           "Operation Dawn",
		Commander:      "Col. Reyes",
		TargetLocation: "Northern Ridge",
		Units:          []string{"alpha", "bravo"},
		Equipments:     []string{"radio"},
	}
}

// =============================================================================
// CRUD Tests
// =============================================================================

func TestTemplateService_Create(t *testing.T) {
	svc, _ := newTemplateService(t)
	ctx := context.Background()

	tmpl, err := svc.Create(ctx, "emergency", dawnParams())
	require.NoError(t, err)
	assert.Equal(t, workflow.TypeEmergency, tmpl.Type)
	assert.Equal(t, workflow.StatusCreated, tmpl.Status)

	got, err := svc.Get(ctx, tmpl.ID)
	require.NoError(t, err)
	level, _ := got.Attributes[workflow.AttrEmergency].AsString()
	assert.Equal(t, "high", level)
}

func TestTemplateService_CreateUnsupportedType(t *testing.T) {
	svc, _ := newTemplateService(t)

	_, err := svc.Create(context.Background(), "未知类型", dawnParams())
	assert.ErrorIs(t, err, workflow.ErrUnsupportedType)
}

func TestTemplateService_CreateMissingName(t *testing.T) {
	svc, _ := newTemplateService(t)

	_, err := svc.Create(context.Background(), "standard", workflow.Params{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTemplateService_UpdateMergesAttributes(t *testing.T) {
	svc, _ := newTemplateService(t)
	ctx := context.Background()

	p := dawnParams()
	p.Attributes = workflow.Attributes{"season": workflow.String("winter")}
	tmpl, err := svc.Create(ctx, "standard", p)
	require.NoError(t, err)

	commander := "Maj. Chen"
	got, err := svc.Update(ctx, tmpl.ID, domain.TemplateUpdate{
		Commander:  &commander,
		Attributes: workflow.Attributes{"priority": workflow.Number(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, "Maj. Chen", got.Commander)
	assert.Equal(t, "Operation Dawn", got.Name)

	stored, err := svc.Get(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.Attributes, "season")
	assert.Contains(t, stored.Attributes, "priority")
}

func TestTemplateService_UpdateNotFound(t *testing.T) {
	svc, _ := newTemplateService(t)

	_, err := svc.Update(context.Background(), "tmpl_missing", domain.TemplateUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTemplateService_Delete(t *testing.T) {
	svc, _ := newTemplateService(t)
	ctx := context.Background()
	tmpl, err := svc.Create(ctx, "training", dawnParams())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, tmpl.ID))
	_, err = svc.Get(ctx, tmpl.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

// =============================================================================
// Execute Tests
// =============================================================================

func TestTemplateService_ExecutePersistsOutcome(t *testing.T) {
	svc, rec := newTemplateService(t)
	ctx := context.Background()
	tmpl, err := svc.Create(ctx, "standard", dawnParams())
	require.NoError(t, err)

	got, res, err := svc.Execute(ctx, tmpl.ID)
	require.NoError(t, err)
	require.NoError(t, res.Err)
	assert.Equal(t, workflow.StatusCompleted, res.Status)
	assert.Equal(t, 5, res.StepsCompleted)
	assert.Equal(t, tmpl.ID, res.ID)
	assert.Equal(t, workflow.StatusCompleted, got.Status)

	stored, err := svc.Get(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCompleted, stored.Status)
	assert.Equal(t, 5, stored.CurrentStep)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, stored.StepsCompleted)
	assert.NotEmpty(t, stored.Logs)
	assert.Contains(t, stored.Attributes, workflow.AttrFinalization)

	evs := rec.all()
	require.Len(t, evs, 1)
	assert.Equal(t, events.TopicTemplateExecuted, evs[0].topic)
	ev := evs[0].payload.(events.TemplateExecuted)
	assert.Equal(t, tmpl.ID, ev.TemplateID)
	assert.Equal(t, workflow.StatusCompleted, ev.Status)
}

func TestTemplateService_ExecuteTimeoutIsResultNotError(t *testing.T) {
	rec := &recorder{}
	svc := NewTemplateService(setupStore(t), rec, testLogger(), TemplateOptions{ExecutionTimeout: time.Nanosecond})
	ctx := context.Background()
	tmpl, err := svc.Create(ctx, "training", dawnParams())
	require.NoError(t, err)

	got, res, err := svc.Execute(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err, workflow.ErrPhaseFailed)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Equal(t, workflow.StatusFailed, got.Status)
	assert.NotEmpty(t, got.Error)

	stored, err := svc.Get(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusFailed, stored.Status)
	assert.Empty(t, stored.StepsCompleted)
	assert.Len(t, rec.all(), 1)
}

func TestTemplateService_ExecuteRerunsFresh(t *testing.T) {
	svc, _ := newTemplateService(t)
	ctx := context.Background()
	tmpl, err := svc.Create(ctx, "emergency", dawnParams())
	require.NoError(t, err)

	_, first, err := svc.Execute(ctx, tmpl.ID)
	require.NoError(t, err)
	_, second, err := svc.Execute(ctx, tmpl.ID)
	require.NoError(t, err)

	assert.Equal(t, first.StepsCompleted, second.StepsCompleted)
	stored, err := svc.Get(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Logs, 12)
}

func TestTemplateService_ExecuteNotFound(t *testing.T) {
	svc, _ := newTemplateService(t)

	_, _, err := svc.Execute(context.Background(), "tmpl_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTemplateService_ExecutePersistFailure(t *testing.T) {
	s := setupStore(t)
	creator := NewTemplateService(s, nil, testLogger(), TemplateOptions{})
	tmpl, err := creator.Create(context.Background(), "standard", dawnParams())
	require.NoError(t, err)

	svc := NewTemplateService(failingStore{s}, nil, testLogger(), TemplateOptions{})
	_, _, err = svc.Execute(context.Background(), tmpl.ID)
	assert.ErrorIs(t, err, errDiskFull)
}

// =============================================================================
// Listing / Search / Types Tests
// =============================================================================

func TestTemplateService_Search(t *testing.T) {
	svc, _ := newTemplateService(t)
	ctx := context.Background()
	opts := store.DefaultListOptions()

	dawn, err := svc.Create(ctx, "standard", dawnParams())
	require.NoError(t, err)
	_, err = svc.Create(ctx, "training", workflow.Params{Name: "Night Drill", Commander: "Maj. Chen", TargetLocation: "Range 4"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "emergency", workflow.Params{Name: "Flood Relief", Commander: "Col. Reyes", TargetLocation: "River Delta"})
	require.NoError(t, err)
	_, _, err = svc.Execute(ctx, dawn.ID)
	require.NoError(t, err)

	tests := []struct {
		name  string
		query TemplateSearch
		want  []string
	}{
		{"name ignores case", TemplateSearch{Name: "dawn"}, []string{"Operation Dawn"}},
		{"commander substring", TemplateSearch{Commander: "Reyes"}, []string{"Flood Relief", "Operation Dawn"}},
		{"target substring", TemplateSearch{TargetLocation: "Range"}, []string{"Night Drill"}},
		{"type", TemplateSearch{Type: "training"}, []string{"Night Drill"}},
		{"status", TemplateSearch{Status: "completed"}, []string{"Operation Dawn"}},
		{"combined", TemplateSearch{Commander: "Reyes", Type: "emergency"}, []string{"Flood Relief"}},
		{"no match", TemplateSearch{Name: "zulu"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := svc.Search(ctx, tt.query, opts)
			require.NoError(t, err)
			names := make([]string, 0, len(found))
			for _, f := range found {
				names = append(names, f.Name)
			}
			assert.ElementsMatch(t, tt.want, names)
		})
	}
}

func TestTemplateService_List(t *testing.T) {
	svc, _ := newTemplateService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, "standard", dawnParams())
	require.NoError(t, err)
	_, err = svc.Create(ctx, "training", dawnParams())
	require.NoError(t, err)

	all, err := svc.List(ctx, "", store.DefaultListOptions())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	training, err := svc.List(ctx, "training", store.DefaultListOptions())
	require.NoError(t, err)
	assert.Len(t, training, 1)
}

func TestTemplateService_Types(t *testing.T) {
	svc, _ := newTemplateService(t)
	ctx := context.Background()

	types, err := svc.Types(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"standard", "emergency", "training"}, types)

	_, err = svc.Create(ctx, "training", dawnParams())
	require.NoError(t, err)
	_, err = svc.Create(ctx, "emergency", dawnParams())
	require.NoError(t, err)

	types, err = svc.Types(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"emergency", "training"}, types)
}
