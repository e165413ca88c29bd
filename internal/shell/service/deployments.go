package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/artpar/muster/internal/core/domain"
	"github.com/artpar/muster/internal/shell/events"
	"github.com/artpar/muster/internal/shell/store"
)

// =============================================================================
// Deployment Service
// =============================================================================

// DeploymentOptions tunes step handling.
type DeploymentOptions struct {
	// StrictSteps enforces the step transition table on UpdateStep.
	StrictSteps bool
}

// DeploymentService manages deployments and their steps.
type DeploymentService struct {
	store  store.Store
	events events.Publisher
	logger *slog.Logger
	opts   DeploymentOptions
	now    func() time.Time
}

// NewDeploymentService creates a deployment service. A nil publisher
// discards events.
func NewDeploymentService(s store.Store, pub events.Publisher, logger *slog.Logger, opts DeploymentOptions) *DeploymentService {
	if pub == nil {
		pub = events.Nop{}
	}
	return &DeploymentService{
		store:  s,
		events: pub,
		logger: logger.With("component", "deployments"),
		opts:   opts,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateDeploymentInput holds the creation fields. An empty Status is derived
// from the steps.
type CreateDeploymentInput struct {
	MissionID string
	Steps     []domain.Step
	Status    domain.StepStatus
}

// SearchCriteria filters deployments. Every non-empty field must match.
type SearchCriteria struct {
	MissionID string
	Status    domain.StepStatus
	// Operator matches deployments with at least one step last updated by it.
	Operator string
}

// Create validates and stores a new deployment.
func (s *DeploymentService) Create(ctx context.Context, in CreateDeploymentInput) (*domain.Deployment, error) {
	d, err := domain.NewDeployment(in.MissionID, in.Steps, in.Status, s.now())
	if err != nil {
		return nil, translate(err)
	}
	if err := s.store.CreateDeployment(ctx, d); err != nil {
		return nil, translate(err)
	}
	s.logger.Info("deployment created", "deployment_id", d.ID, "mission_id", d.MissionID, "steps", len(d.Steps))
	return d, nil
}

// Get returns a live deployment.
func (s *DeploymentService) Get(ctx context.Context, id string) (*domain.Deployment, error) {
	d, err := s.store.GetDeployment(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return d, nil
}

// List returns deployments, optionally restricted to one status.
func (s *DeploymentService) List(ctx context.Context, status domain.StepStatus, opts store.ListOptions) ([]domain.Deployment, error) {
	if status != "" && !status.Valid() {
		return nil, translate(invalidStatus(status))
	}
	list, err := s.store.ListDeployments(ctx, store.DeploymentFilter{Status: status}, opts)
	return list, translate(err)
}

// ListByMission returns the deployments of one mission.
func (s *DeploymentService) ListByMission(ctx context.Context, missionID string, opts store.ListOptions) ([]domain.Deployment, error) {
	list, err := s.store.ListDeployments(ctx, store.DeploymentFilter{MissionID: missionID}, opts)
	return list, translate(err)
}

// Search applies every provided criterion. Mission and status filter in the
// store; the operator filter applies to the returned page.
func (s *DeploymentService) Search(ctx context.Context, c SearchCriteria, opts store.ListOptions) ([]domain.Deployment, error) {
	if c.Status != "" && !c.Status.Valid() {
		return nil, translate(invalidStatus(c.Status))
	}
	list, err := s.store.ListDeployments(ctx, store.DeploymentFilter{Status: c.Status, MissionID: c.MissionID}, opts)
	if err != nil {
		return nil, translate(err)
	}
	if c.Operator == "" {
		return list, nil
	}

	out := make([]domain.Deployment, 0, len(list))
	for _, d := range list {
		for _, step := range d.Steps {
			if step.Operator == c.Operator {
				out = append(out, d)
				break
			}
		}
	}
	return out, nil
}

// ReplaceSteps swaps the step list and re-derives the status.
func (s *DeploymentService) ReplaceSteps(ctx context.Context, id string, steps []domain.Step) (*domain.Deployment, error) {
	return s.mutate(ctx, id, func(d *domain.Deployment) (bool, error) {
		return d.ReplaceSteps(steps, s.now())
	})
}

// UpdateStep applies one step update and returns the deployment with its
// recomputed status.
func (s *DeploymentService) UpdateStep(ctx context.Context, id, stepName string, u domain.StepUpdate) (*domain.Deployment, error) {
	return s.mutate(ctx, id, func(d *domain.Deployment) (bool, error) {
		return d.UpdateStep(stepName, u, s.opts.StrictSteps, s.now())
	})
}

// AddFeedback appends a feedback entry and returns the updated deployment.
func (s *DeploymentService) AddFeedback(ctx context.Context, id, content, author string) (*domain.Deployment, error) {
	fb, err := domain.NewFeedback(content, author, s.now())
	if err != nil {
		return nil, translate(err)
	}
	if err := s.store.AppendFeedback(ctx, id, fb); err != nil {
		return nil, translate(err)
	}
	s.logger.Info("feedback added", "deployment_id", id, "author", author)
	return s.Get(ctx, id)
}

// Delete soft-deletes a deployment.
func (s *DeploymentService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteDeployment(ctx, id); err != nil {
		return translate(err)
	}
	s.logger.Info("deployment deleted", "deployment_id", id)
	return nil
}

// Progress summarises the steps of a deployment alongside its status.
func (s *DeploymentService) Progress(ctx context.Context, id string) (domain.Progress, domain.StepStatus, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return domain.Progress{}, "", err
	}
	return d.Progress(), d.Status, nil
}

// Statuses returns the distinct statuses of live deployments, sorted.
func (s *DeploymentService) Statuses(ctx context.Context) ([]domain.StepStatus, error) {
	statuses, err := s.store.ListDeploymentStatuses(ctx)
	return statuses, translate(err)
}

// mutate runs a read-modify-write inside one transaction. The write is a
// version compare-and-swap; a lost race surfaces as ErrConflict.
func (s *DeploymentService) mutate(ctx context.Context, id string, fn func(*domain.Deployment) (bool, error)) (*domain.Deployment, error) {
	var (
		result  *domain.Deployment
		prior   domain.StepStatus
		changed bool
	)

	err := s.store.WithTx(ctx, func(tx store.Store) error {
		d, err := tx.GetDeployment(ctx, id)
		if err != nil {
			return err
		}
		prior = d.Status
		if changed, err = fn(d); err != nil {
			return err
		}
		if err := tx.UpdateDeployment(ctx, d); err != nil {
			return err
		}
		result = d
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}

	if changed {
		s.logger.Info("deployment status changed",
			"deployment_id", result.ID, "from", prior, "to", result.Status)
		event := events.DeploymentStatusChanged{
			DeploymentID: result.ID,
			MissionID:    result.MissionID,
			From:         prior,
			To:           result.Status,
			At:           result.UpdatedAt,
		}
		if err := s.events.Publish(ctx, events.TopicDeploymentStatusChanged, event); err != nil {
			s.logger.Warn("failed to publish status change", "deployment_id", result.ID, "error", err)
		}
	}
	return result, nil
}

func invalidStatus(status domain.StepStatus) error {
	_, err := domain.ParseStepStatus(string(status))
	return err
}
