package store

import (
	"context"

	"github.com/artpar/muster/internal/core/domain"
)

// =============================================================================
// Store Interface
// =============================================================================

// Store defines the persistence interface for deployments and templates.
// Each call is atomic on a single record; WithTx groups calls.
type Store interface {
	// Deployment operations. Soft-deleted deployments behave as not found.
	CreateDeployment(ctx context.Context, deployment *domain.Deployment) error
	GetDeployment(ctx context.Context, id string) (*domain.Deployment, error)
	// UpdateDeployment writes only if the stored version equals
	// deployment.Version, then increments it in place. A moved version
	// returns ErrConflict.
	UpdateDeployment(ctx context.Context, deployment *domain.Deployment) error
	AppendFeedback(ctx context.Context, id string, feedback domain.Feedback) error
	DeleteDeployment(ctx context.Context, id string) error
	ListDeployments(ctx context.Context, filter DeploymentFilter, opts ListOptions) ([]domain.Deployment, error)
	ListDeploymentStatuses(ctx context.Context) ([]domain.StepStatus, error)

	// Template operations. Delete is permanent.
	CreateTemplate(ctx context.Context, template *domain.Template) error
	GetTemplate(ctx context.Context, id string) (*domain.Template, error)
	UpdateTemplate(ctx context.Context, template *domain.Template) error
	DeleteTemplate(ctx context.Context, id string) error
	ListTemplates(ctx context.Context, filter TemplateFilter, opts ListOptions) ([]domain.Template, error)
	ListTemplateTypes(ctx context.Context) ([]string, error)

	// Transaction support
	WithTx(ctx context.Context, fn func(Store) error) error

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}

// =============================================================================
// Options
// =============================================================================

// DeploymentFilter narrows ListDeployments. Empty fields match everything.
type DeploymentFilter struct {
	Status    domain.StepStatus
	MissionID string
}

// TemplateFilter narrows ListTemplates. Empty fields match everything.
type TemplateFilter struct {
	Type   string
	Status string
}

// ListOptions defines pagination and filtering options.
type ListOptions struct {
	Limit  int
	Offset int
}

// DefaultListOptions returns default list options.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Limit:  100,
		Offset: 0,
	}
}

// Normalize ensures list options have valid values.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = 100
	}
	if o.Limit > 1000 {
		o.Limit = 1000
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}
