package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/artpar/muster/internal/core/workflow"
)

// =============================================================================
// Template
// =============================================================================

// Template is the persisted form of a workflow instance. It holds the inputs
// of the workflow and the outcome of its most recent execution.
type Template struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Type           workflow.Type       `json:"type"`
	Commander      string              `json:"commander"`
	TargetLocation string              `json:"target_location"`
	Units          []string            `json:"units"`
	Equipments     []string            `json:"equipments"`
	Description    string              `json:"description"`
	Attributes     workflow.Attributes `json:"attributes"`
	Status         workflow.Status     `json:"status"`
	CurrentStep    int                 `json:"current_step"`
	StepsTotal     int                 `json:"steps_total"`
	StepsCompleted []int               `json:"steps_completed"`
	Logs           []workflow.LogEntry `json:"logs"`
	Error          string              `json:"error,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// NewTemplate builds a record of type t. The factory validates the type.
func NewTemplate(t workflow.Type, p workflow.Params) (*Template, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}
	in, err := workflow.New(t, p)
	if err != nil {
		return nil, err
	}
	tmpl := TemplateFromInstance(in)
	return &tmpl, nil
}

// TemplateFromInstance snapshots an instance.
func TemplateFromInstance(in *workflow.Instance) Template {
	return Template{
		ID:             in.ID,
		Name:           in.Name,
		Type:           in.Type(),
		Commander:      in.Commander,
		TargetLocation: in.TargetLocation,
		Units:          nonNil(in.Units),
		Equipments:     nonNil(in.Equipments),
		Description:    in.Description,
		Attributes:     in.Attributes.Clone(),
		Status:         in.Status,
		CurrentStep:    in.CurrentStep,
		StepsTotal:     in.StepsTotal,
		StepsCompleted: append([]int{}, in.StepsCompleted...),
		Logs:           append([]workflow.LogEntry{}, in.Logs...),
		CreatedAt:      in.CreatedAt,
		UpdatedAt:      in.UpdatedAt,
	}
}

// Instance builds a fresh, unexecuted workflow instance from the record's
// inputs. The instance keeps the record's ID.
func (t *Template) Instance() (*workflow.Instance, error) {
	in, err := workflow.New(t.Type, workflow.Params{
		Name:           t.Name,
		Commander:      t.Commander,
		TargetLocation: t.TargetLocation,
		Units:          t.Units,
		Equipments:     t.Equipments,
		Description:    t.Description,
		Attributes:     t.Attributes,
	})
	if err != nil {
		return nil, err
	}
	in.ID = t.ID
	return in, nil
}

// ApplyExecution copies the outcome of an executed instance onto the record.
func (t *Template) ApplyExecution(in *workflow.Instance, res workflow.Result) {
	t.Status = in.Status
	t.CurrentStep = in.CurrentStep
	t.StepsTotal = in.StepsTotal
	t.StepsCompleted = append([]int{}, in.StepsCompleted...)
	t.Logs = append([]workflow.LogEntry{}, in.Logs...)
	t.Attributes = in.Attributes.Clone()
	t.Error = res.Error
	t.UpdatedAt = in.UpdatedAt
}

// TemplateUpdate holds the editable fields. Nil fields are left unchanged;
// attributes are merged key by key.
type TemplateUpdate struct {
	Name           *string             `json:"name,omitempty"`
	Commander      *string             `json:"commander,omitempty"`
	TargetLocation *string             `json:"target_location,omitempty"`
	Description    *string             `json:"description,omitempty"`
	Attributes     workflow.Attributes `json:"attributes,omitempty"`
}

// ApplyUpdate applies u. An explicit empty name is rejected.
func (t *Template) ApplyUpdate(u TemplateUpdate, now time.Time) error {
	if u.Name != nil {
		if strings.TrimSpace(*u.Name) == "" {
			return fmt.Errorf("%w: name cannot be empty", ErrInvalidArgument)
		}
		t.Name = *u.Name
	}
	if u.Commander != nil {
		t.Commander = *u.Commander
	}
	if u.TargetLocation != nil {
		t.TargetLocation = *u.TargetLocation
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if len(u.Attributes) > 0 {
		if t.Attributes == nil {
			t.Attributes = workflow.Attributes{}
		}
		t.Attributes.Merge(u.Attributes)
	}
	t.UpdatedAt = now
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string{}, s...)
}
