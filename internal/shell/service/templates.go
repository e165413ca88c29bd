package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/artpar/muster/internal/core/domain"
	"github.com/artpar/muster/internal/core/workflow"
	"github.com/artpar/muster/internal/shell/events"
	"github.com/artpar/muster/internal/shell/store"
)

// =============================================================================
// Template Service
// =============================================================================

// TemplateOptions tunes execution.
type TemplateOptions struct {
	// ExecutionTimeout bounds one Execute call. Zero means no deadline.
	ExecutionTimeout time.Duration
}

// TemplateService manages workflow templates and runs them.
type TemplateService struct {
	store  store.Store
	events events.Publisher
	logger *slog.Logger
	opts   TemplateOptions
	now    func() time.Time
}

// NewTemplateService creates a template service. A nil publisher discards
// events.
func NewTemplateService(s store.Store, pub events.Publisher, logger *slog.Logger, opts TemplateOptions) *TemplateService {
	if pub == nil {
		pub = events.Nop{}
	}
	return &TemplateService{
		store:  s,
		events: pub,
		logger: logger.With("component", "templates"),
		opts:   opts,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// TemplateSearch filters templates. Name, Commander and TargetLocation are
// substring matches; Name ignores case.
type TemplateSearch struct {
	Name           string
	Type           string
	Status         string
	Commander      string
	TargetLocation string
}

// Create builds a template through the workflow factory and stores it.
func (s *TemplateService) Create(ctx context.Context, typ string, p workflow.Params) (*domain.Template, error) {
	tmpl, err := domain.NewTemplate(workflow.Type(typ), p)
	if err != nil {
		return nil, translate(err)
	}
	if err := s.store.CreateTemplate(ctx, tmpl); err != nil {
		return nil, translate(err)
	}
	s.logger.Info("template created", "template_id", tmpl.ID, "type", tmpl.Type, "name", tmpl.Name)
	return tmpl, nil
}

// Get returns one template.
func (s *TemplateService) Get(ctx context.Context, id string) (*domain.Template, error) {
	tmpl, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return tmpl, nil
}

// List returns templates, optionally restricted to one type.
func (s *TemplateService) List(ctx context.Context, typ string, opts store.ListOptions) ([]domain.Template, error) {
	list, err := s.store.ListTemplates(ctx, store.TemplateFilter{Type: typ}, opts)
	return list, translate(err)
}

// Update edits the descriptive fields and merges attributes.
func (s *TemplateService) Update(ctx context.Context, id string, u domain.TemplateUpdate) (*domain.Template, error) {
	var result *domain.Template
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		tmpl, err := tx.GetTemplate(ctx, id)
		if err != nil {
			return err
		}
		if err := tmpl.ApplyUpdate(u, s.now()); err != nil {
			return err
		}
		if err := tx.UpdateTemplate(ctx, tmpl); err != nil {
			return err
		}
		result = tmpl
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return result, nil
}

// Delete removes a template permanently.
func (s *TemplateService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteTemplate(ctx, id); err != nil {
		return translate(err)
	}
	s.logger.Info("template deleted", "template_id", id)
	return nil
}

// Search applies every provided criterion. Type and status filter in the
// store; the substring filters apply to the returned page.
func (s *TemplateService) Search(ctx context.Context, q TemplateSearch, opts store.ListOptions) ([]domain.Template, error) {
	list, err := s.store.ListTemplates(ctx, store.TemplateFilter{Type: q.Type, Status: q.Status}, opts)
	if err != nil {
		return nil, translate(err)
	}

	name := strings.ToLower(q.Name)
	out := make([]domain.Template, 0, len(list))
	for _, t := range list {
		if name != "" && !strings.Contains(strings.ToLower(t.Name), name) {
			continue
		}
		if q.Commander != "" && !strings.Contains(t.Commander, q.Commander) {
			continue
		}
		if q.TargetLocation != "" && !strings.Contains(t.TargetLocation, q.TargetLocation) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Execute runs a fresh workflow instance for the template and persists the
// outcome. A failed run is reported in the Result and the record, not as an
// error.
func (s *TemplateService) Execute(ctx context.Context, id string) (*domain.Template, workflow.Result, error) {
	tmpl, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return nil, workflow.Result{}, translate(err)
	}

	in, err := tmpl.Instance()
	if err != nil {
		return nil, workflow.Result{}, translate(err)
	}

	runCtx := ctx
	if s.opts.ExecutionTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.opts.ExecutionTimeout)
		defer cancel()
	}

	s.logger.Info("executing template", "template_id", id, "type", tmpl.Type)
	res := in.Execute(runCtx)
	tmpl.ApplyExecution(in, res)

	// The outcome is recorded even if the caller has gone away.
	persistCtx := context.WithoutCancel(ctx)
	if err := s.store.UpdateTemplate(persistCtx, tmpl); err != nil {
		return nil, res, translate(err)
	}

	if res.Err != nil {
		s.logger.Warn("template execution failed",
			"template_id", id, "steps_completed", res.StepsCompleted, "error", res.Error)
	} else {
		s.logger.Info("template execution completed", "template_id", id)
	}

	event := events.TemplateExecuted{
		TemplateID:     tmpl.ID,
		Name:           tmpl.Name,
		Type:           tmpl.Type,
		Status:         tmpl.Status,
		StepsCompleted: res.StepsCompleted,
		Error:          res.Error,
		At:             tmpl.UpdatedAt,
	}
	if err := s.events.Publish(persistCtx, events.TopicTemplateExecuted, event); err != nil {
		s.logger.Warn("failed to publish execution", "template_id", id, "error", err)
	}

	return tmpl, res, nil
}

// Types returns the distinct types in use, sorted, or every supported type
// when no templates exist.
func (s *TemplateService) Types(ctx context.Context) ([]string, error) {
	types, err := s.store.ListTemplateTypes(ctx)
	if err != nil {
		return nil, translate(err)
	}
	if len(types) > 0 {
		return types, nil
	}

	defaults := make([]string, 0, len(workflow.Types()))
	for _, t := range workflow.Types() {
		defaults = append(defaults, string(t))
	}
	return defaults, nil
}
