package api

import (
	"time"

	"github.com/artpar/muster/internal/core/domain"
	"github.com/artpar/muster/internal/core/workflow"
)

// =============================================================================
// Request Types
// =============================================================================

// StepRequest is one step in a deployment request. Omitted timestamps are
// kept from the stored step of the same name or stamped on save.
type StepRequest struct {
	Name      string     `json:"name"`
	Status    string     `json:"status,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Operator  string     `json:"operator,omitempty"`
	Remark    string     `json:"remark,omitempty"`
}

// CreateDeploymentRequest is the request body for creating a deployment.
type CreateDeploymentRequest struct {
	MissionID string        `json:"mission_id"`
	Steps     []StepRequest `json:"steps"`
	Status    string        `json:"status,omitempty"`
}

// ReplaceStepsRequest is the request body for replacing a deployment's steps.
type ReplaceStepsRequest struct {
	Steps []StepRequest `json:"steps"`
}

// UpdateStepRequest is the request body for updating a single step.
type UpdateStepRequest struct {
	StepName string `json:"step_name"`
	Status   string `json:"status"`
	Operator string `json:"operator"`
	Remark   string `json:"remark,omitempty"`
}

// FeedbackRequest is the request body for appending feedback.
type FeedbackRequest struct {
	Content string `json:"content"`
	Author  string `json:"author,omitempty"`
}

// SearchDeploymentsRequest is the request body for searching deployments.
type SearchDeploymentsRequest struct {
	MissionID string `json:"mission_id,omitempty"`
	Status    string `json:"status,omitempty"`
	Operator  string `json:"operator,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// CreateTemplateRequest is the request body for creating a template.
type CreateTemplateRequest struct {
	Name           string              `json:"name"`
	Type           string              `json:"type"`
	Commander      string              `json:"commander,omitempty"`
	TargetLocation string              `json:"target_location,omitempty"`
	Units          []string            `json:"units,omitempty"`
	Equipments     []string            `json:"equipments,omitempty"`
	Description    string              `json:"description,omitempty"`
	Attributes     workflow.Attributes `json:"attributes,omitempty"`
	EmergencyLevel string              `json:"emergency_level,omitempty"`
	ResponseTime   string              `json:"response_time,omitempty"`
}

// UpdateTemplateRequest is the request body for updating a template. Absent
// fields are left unchanged; attributes are merged.
type UpdateTemplateRequest struct {
	Name           *string             `json:"name,omitempty"`
	Commander      *string             `json:"commander,omitempty"`
	TargetLocation *string             `json:"target_location,omitempty"`
	Description    *string             `json:"description,omitempty"`
	Attributes     workflow.Attributes `json:"attributes,omitempty"`
}

// SearchTemplatesRequest is the request body for searching templates.
type SearchTemplatesRequest struct {
	Name           string `json:"name,omitempty"`
	Type           string `json:"type,omitempty"`
	Status         string `json:"status,omitempty"`
	Commander      string `json:"commander,omitempty"`
	TargetLocation string `json:"target_location,omitempty"`
	Limit          int    `json:"limit,omitempty"`
	Offset         int    `json:"offset,omitempty"`
}

// =============================================================================
// Response Types
// =============================================================================

// StepResponse is the API response for a step.
type StepResponse struct {
	Name      string     `json:"name"`
	Status    string     `json:"status"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Operator  string     `json:"operator,omitempty"`
	Remark    string     `json:"remark,omitempty"`
}

// FeedbackResponse is the API response for a feedback entry.
type FeedbackResponse struct {
	Content   string    `json:"content"`
	Author    string    `json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DeploymentResponse is the API response for a deployment.
type DeploymentResponse struct {
	ID        string             `json:"id"`
	MissionID string             `json:"mission_id"`
	Status    string             `json:"status"`
	Steps     []StepResponse     `json:"steps"`
	Feedbacks []FeedbackResponse `json:"feedbacks"`
	Version   int64              `json:"version"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// ListDeploymentsResponse is the response for listing deployments.
type ListDeploymentsResponse struct {
	Deployments []DeploymentResponse `json:"deployments"`
	Limit       int                  `json:"limit"`
	Offset      int                  `json:"offset"`
}

// ProgressResponse is the step summary of a deployment.
type ProgressResponse struct {
	DeploymentID string  `json:"deployment_id"`
	Status       string  `json:"status"`
	Total        int     `json:"total"`
	Completed    int     `json:"completed"`
	InProgress   int     `json:"in_progress"`
	Failed       int     `json:"failed"`
	NotStarted   int     `json:"not_started"`
	Percentage   float64 `json:"percentage"`
}

// StatusesResponse lists distinct deployment statuses.
type StatusesResponse struct {
	Statuses []string `json:"statuses"`
}

// TemplateResponse is the API response for a template.
type TemplateResponse struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Type           string              `json:"type"`
	Commander      string              `json:"commander"`
	TargetLocation string              `json:"target_location"`
	Units          []string            `json:"units"`
	Equipments     []string            `json:"equipments"`
	Description    string              `json:"description"`
	Attributes     workflow.Attributes `json:"attributes"`
	Status         string              `json:"status"`
	CurrentStep    int                 `json:"current_step"`
	StepsTotal     int                 `json:"steps_total"`
	StepsCompleted []int               `json:"steps_completed"`
	Logs           []workflow.LogEntry `json:"logs"`
	Error          string              `json:"error,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// ListTemplatesResponse is the response for listing templates.
type ListTemplatesResponse struct {
	Templates []TemplateResponse `json:"templates"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

// TypesResponse lists template types.
type TypesResponse struct {
	Types []string `json:"types"`
}

// ExecuteResponse is the response for executing a template.
type ExecuteResponse struct {
	Template TemplateResponse `json:"template"`
	Result   workflow.Result  `json:"result"`
}

// ErrorResponse is the error response format.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the readiness check response.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// =============================================================================
// Conversion Functions
// =============================================================================

func stepsFromRequest(reqs []StepRequest) []domain.Step {
	steps := make([]domain.Step, len(reqs))
	for i, r := range reqs {
		steps[i] = domain.Step{
			Name:      r.Name,
			Status:    domain.StepStatus(r.Status),
			StartedAt: utcPtr(r.StartedAt),
			EndedAt:   utcPtr(r.EndedAt),
			Operator:  r.Operator,
			Remark:    r.Remark,
		}
	}
	return steps
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func stepNames(reqs []StepRequest) []string {
	names := make([]string, len(reqs))
	for i, r := range reqs {
		names[i] = r.Name
	}
	return names
}

func deploymentToResponse(d *domain.Deployment) DeploymentResponse {
	resp := DeploymentResponse{
		ID:        d.ID,
		MissionID: d.MissionID,
		Status:    string(d.Status),
		Steps:     make([]StepResponse, len(d.Steps)),
		Feedbacks: make([]FeedbackResponse, len(d.Feedbacks)),
		Version:   d.Version,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for i, s := range d.Steps {
		resp.Steps[i] = StepResponse{
			Name:      s.Name,
			Status:    string(s.Status),
			StartedAt: s.StartedAt,
			EndedAt:   s.EndedAt,
			Operator:  s.Operator,
			Remark:    s.Remark,
		}
	}
	for i, f := range d.Feedbacks {
		resp.Feedbacks[i] = FeedbackResponse{
			Content:   f.Content,
			Author:    f.Author,
			CreatedAt: f.CreatedAt,
		}
	}
	return resp
}

func templateToResponse(t *domain.Template) TemplateResponse {
	return TemplateResponse{
		ID:             t.ID,
		Name:           t.Name,
		Type:           string(t.Type),
		Commander:      t.Commander,
		TargetLocation: t.TargetLocation,
		Units:          t.Units,
		Equipments:     t.Equipments,
		Description:    t.Description,
		Attributes:     t.Attributes,
		Status:         string(t.Status),
		CurrentStep:    t.CurrentStep,
		StepsTotal:     t.StepsTotal,
		StepsCompleted: t.StepsCompleted,
		Logs:           t.Logs,
		Error:          t.Error,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}
