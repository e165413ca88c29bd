// Package api provides HTTP handlers for the Muster API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/artpar/muster/internal/core/domain"
	"github.com/artpar/muster/internal/core/validation"
	"github.com/artpar/muster/internal/core/workflow"
	"github.com/artpar/muster/internal/shell/api/openapi"
	"github.com/artpar/muster/internal/shell/service"
	"github.com/artpar/muster/internal/shell/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// =============================================================================
// Handler
// =============================================================================

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler provides HTTP handlers for the API.
type Handler struct {
	deployments *service.DeploymentService
	templates   *service.TemplateService
	db          Pinger
	docs        *openapi.Generator
	logger      *slog.Logger
}

// NewHandler creates a new API handler. db backs the readiness check.
func NewHandler(d *service.DeploymentService, t *service.TemplateService, db Pinger, l *slog.Logger, version string) *Handler {
	if l == nil {
		l = slog.Default()
	}
	h := &Handler{
		deployments: d,
		templates:   t,
		db:          db,
		logger:      l.With("component", "api"),
		docs: openapi.NewGenerator(
			openapi.WithTitle("Muster API"),
			openapi.WithVersion(version),
			openapi.WithDescription("Mission deployment tracking and deployment workflow templates"),
			openapi.WithServer("/"),
		),
	}
	describeRoutes(h.docs)
	return h
}

// Routes returns the router with all routes configured.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.jsonContentType)
	r.Use(h.requestIDHeader)

	// Health endpoints
	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)
	r.Get("/openapi.json", h.docs.Handler())

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Deployment routes
		r.Route("/deployments", func(r chi.Router) {
			r.Post("/", h.handleCreateDeployment)
			r.Get("/", h.handleListDeployments)
			r.Post("/search", h.handleSearchDeployments)
			r.Get("/statuses", h.handleDeploymentStatuses)
			r.Get("/mission/{missionID}", h.handleListMissionDeployments)
			r.Get("/{id}", h.handleGetDeployment)
			r.Put("/{id}/steps", h.handleReplaceSteps)
			r.Patch("/{id}/steps", h.handleUpdateStep)
			r.Post("/{id}/feedback", h.handleAddFeedback)
			r.Get("/{id}/progress", h.handleDeploymentProgress)
			r.Delete("/{id}", h.handleDeleteDeployment)
		})

		// Template routes
		r.Route("/templates", func(r chi.Router) {
			r.Post("/", h.handleCreateTemplate)
			r.Get("/", h.handleListTemplates)
			r.Post("/search", h.handleSearchTemplates)
			r.Get("/types", h.handleTemplateTypes)
			r.Get("/{id}", h.handleGetTemplate)
			r.Put("/{id}", h.handleUpdateTemplate)
			r.Post("/{id}/execute", h.handleExecuteTemplate)
			r.Delete("/{id}", h.handleDeleteTemplate)
		})
	})

	return r
}

// =============================================================================
// Middleware
// =============================================================================

// jsonContentType sets Content-Type header to application/json.
func (h *Handler) jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// requestIDHeader copies the request ID to the response header.
func (h *Handler) requestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Health Handlers
// =============================================================================

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	if err := h.db.Ping(r.Context()); err != nil {
		h.logger.Warn("readiness check failed", "check", "database", "error", err)
		checks["database"] = "failed"
		h.writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{
			Status: "not_ready",
			Checks: checks,
		})
		return
	}
	checks["database"] = "ok"

	h.writeJSON(w, http.StatusOK, ReadyResponse{
		Status: "ready",
		Checks: checks,
	})
}

// =============================================================================
// Deployment Handlers
// =============================================================================

func (h *Handler) handleCreateDeployment(w http.ResponseWriter, r *http.Request) {
	var req CreateDeploymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	if field, msg := validation.ValidateCreateDeploymentFields(req.MissionID, stepNames(req.Steps)); field != "" {
		h.writeError(w, http.StatusBadRequest, msg, "validation_error")
		return
	}

	d, err := h.deployments.Create(r.Context(), service.CreateDeploymentInput{
		MissionID: req.MissionID,
		Steps:     stepsFromRequest(req.Steps),
		Status:    domain.StepStatus(req.Status),
	})
	if err != nil {
		h.writeServiceError(w, err, "failed to create deployment")
		return
	}

	h.writeJSON(w, http.StatusCreated, deploymentToResponse(d))
}

func (h *Handler) handleListDeployments(w http.ResponseWriter, r *http.Request) {
	opts := listOptions(r)
	status := domain.StepStatus(r.URL.Query().Get("status"))

	list, err := h.deployments.List(r.Context(), status, opts)
	if err != nil {
		h.writeServiceError(w, err, "failed to list deployments")
		return
	}
	h.writeJSON(w, http.StatusOK, deploymentList(list, opts))
}

func (h *Handler) handleListMissionDeployments(w http.ResponseWriter, r *http.Request) {
	opts := listOptions(r)
	missionID := chi.URLParam(r, "missionID")

	list, err := h.deployments.ListByMission(r.Context(), missionID, opts)
	if err != nil {
		h.writeServiceError(w, err, "failed to list deployments")
		return
	}
	h.writeJSON(w, http.StatusOK, deploymentList(list, opts))
}

func (h *Handler) handleSearchDeployments(w http.ResponseWriter, r *http.Request) {
	var req SearchDeploymentsRequest
	if !h.decode(w, r, &req) {
		return
	}
	opts := store.ListOptions{Limit: req.Limit, Offset: req.Offset}.Normalize()

	list, err := h.deployments.Search(r.Context(), service.SearchCriteria{
		MissionID: req.MissionID,
		Status:    domain.StepStatus(req.Status),
		Operator:  req.Operator,
	}, opts)
	if err != nil {
		h.writeServiceError(w, err, "failed to search deployments")
		return
	}
	h.writeJSON(w, http.StatusOK, deploymentList(list, opts))
}

func (h *Handler) handleDeploymentStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.deployments.Statuses(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "failed to list statuses")
		return
	}
	resp := StatusesResponse{Statuses: make([]string, 0, len(statuses))}
	for _, s := range statuses {
		resp.Statuses = append(resp.Statuses, string(s))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetDeployment(w http.ResponseWriter, r *http.Request) {
	d, err := h.deployments.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "failed to get deployment")
		return
	}
	h.writeJSON(w, http.StatusOK, deploymentToResponse(d))
}

func (h *Handler) handleReplaceSteps(w http.ResponseWriter, r *http.Request) {
	var req ReplaceStepsRequest
	if !h.decode(w, r, &req) {
		return
	}

	if field, msg := validation.ValidateStepNames(stepNames(req.Steps)); field != "" {
		h.writeError(w, http.StatusBadRequest, msg, "validation_error")
		return
	}

	d, err := h.deployments.ReplaceSteps(r.Context(), chi.URLParam(r, "id"), stepsFromRequest(req.Steps))
	if err != nil {
		h.writeServiceError(w, err, "failed to replace steps")
		return
	}
	h.writeJSON(w, http.StatusOK, deploymentToResponse(d))
}

func (h *Handler) handleUpdateStep(w http.ResponseWriter, r *http.Request) {
	var req UpdateStepRequest
	if !h.decode(w, r, &req) {
		return
	}

	if field, msg := validation.ValidateStepUpdateFields(req.StepName, req.Status, req.Operator); field != "" {
		h.writeError(w, http.StatusBadRequest, msg, "validation_error")
		return
	}

	d, err := h.deployments.UpdateStep(r.Context(), chi.URLParam(r, "id"), req.StepName, domain.StepUpdate{
		Status:   domain.StepStatus(req.Status),
		Operator: req.Operator,
		Remark:   req.Remark,
	})
	if err != nil {
		h.writeServiceError(w, err, "failed to update step")
		return
	}
	h.writeJSON(w, http.StatusOK, deploymentToResponse(d))
}

func (h *Handler) handleAddFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if !h.decode(w, r, &req) {
		return
	}

	if field, msg := validation.ValidateFeedbackFields(req.Content); field != "" {
		h.writeError(w, http.StatusBadRequest, msg, "validation_error")
		return
	}

	d, err := h.deployments.AddFeedback(r.Context(), chi.URLParam(r, "id"), req.Content, req.Author)
	if err != nil {
		h.writeServiceError(w, err, "failed to add feedback")
		return
	}
	h.writeJSON(w, http.StatusCreated, deploymentToResponse(d))
}

func (h *Handler) handleDeploymentProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, status, err := h.deployments.Progress(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "failed to get progress")
		return
	}
	h.writeJSON(w, http.StatusOK, ProgressResponse{
		DeploymentID: id,
		Status:       string(status),
		Total:        p.Total,
		Completed:    p.Completed,
		InProgress:   p.InProgress,
		Failed:       p.Failed,
		NotStarted:   p.NotStarted,
		Percentage:   p.Percentage,
	})
}

func (h *Handler) handleDeleteDeployment(w http.ResponseWriter, r *http.Request) {
	if err := h.deployments.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err, "failed to delete deployment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Template Handlers
// =============================================================================

func (h *Handler) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req CreateTemplateRequest
	if !h.decode(w, r, &req) {
		return
	}

	if field, msg := validation.ValidateCreateTemplateFields(req.Name, req.Type); field != "" {
		h.writeError(w, http.StatusBadRequest, msg, "validation_error")
		return
	}

	t, err := h.templates.Create(r.Context(), req.Type, workflow.Params{
		Name:           req.Name,
		Commander:      req.Commander,
		TargetLocation: req.TargetLocation,
		Units:          req.Units,
		Equipments:     req.Equipments,
		Description:    req.Description,
		Attributes:     req.Attributes,
		EmergencyLevel: req.EmergencyLevel,
		ResponseTime:   req.ResponseTime,
	})
	if err != nil {
		h.writeServiceError(w, err, "failed to create template")
		return
	}

	h.writeJSON(w, http.StatusCreated, templateToResponse(t))
}

func (h *Handler) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	opts := listOptions(r)

	list, err := h.templates.List(r.Context(), r.URL.Query().Get("type"), opts)
	if err != nil {
		h.writeServiceError(w, err, "failed to list templates")
		return
	}
	h.writeJSON(w, http.StatusOK, templateList(list, opts))
}

func (h *Handler) handleSearchTemplates(w http.ResponseWriter, r *http.Request) {
	var req SearchTemplatesRequest
	if !h.decode(w, r, &req) {
		return
	}
	opts := store.ListOptions{Limit: req.Limit, Offset: req.Offset}.Normalize()

	list, err := h.templates.Search(r.Context(), service.TemplateSearch{
		Name:           req.Name,
		Type:           req.Type,
		Status:         req.Status,
		Commander:      req.Commander,
		TargetLocation: req.TargetLocation,
	}, opts)
	if err != nil {
		h.writeServiceError(w, err, "failed to search templates")
		return
	}
	h.writeJSON(w, http.StatusOK, templateList(list, opts))
}

func (h *Handler) handleTemplateTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.templates.Types(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "failed to list template types")
		return
	}
	h.writeJSON(w, http.StatusOK, TypesResponse{Types: types})
}

func (h *Handler) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := h.templates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "failed to get template")
		return
	}
	h.writeJSON(w, http.StatusOK, templateToResponse(t))
}

func (h *Handler) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var req UpdateTemplateRequest
	if !h.decode(w, r, &req) {
		return
	}

	t, err := h.templates.Update(r.Context(), chi.URLParam(r, "id"), domain.TemplateUpdate{
		Name:           req.Name,
		Commander:      req.Commander,
		TargetLocation: req.TargetLocation,
		Description:    req.Description,
		Attributes:     req.Attributes,
	})
	if err != nil {
		h.writeServiceError(w, err, "failed to update template")
		return
	}
	h.writeJSON(w, http.StatusOK, templateToResponse(t))
}

// handleExecuteTemplate answers 200 for failed runs too; the failure is in
// the result.
func (h *Handler) handleExecuteTemplate(w http.ResponseWriter, r *http.Request) {
	t, res, err := h.templates.Execute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "failed to execute template")
		return
	}
	h.writeJSON(w, http.StatusOK, ExecuteResponse{
		Template: templateToResponse(t),
		Result:   res,
	})
}

func (h *Handler) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.templates.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err, "failed to delete template")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Helpers
// =============================================================================

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode JSON", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// writeServiceError maps service errors onto status codes. Unknown errors
// are logged and reported as internal.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, internalMsg string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error(), "not_found")
	case errors.Is(err, service.ErrConflict):
		h.writeError(w, http.StatusConflict, err.Error(), "conflict")
	case errors.Is(err, workflow.ErrUnsupportedType):
		h.writeError(w, http.StatusBadRequest, err.Error(), "unsupported_type")
	case errors.Is(err, service.ErrValidation):
		h.writeError(w, http.StatusBadRequest, err.Error(), "validation_error")
	default:
		h.logger.Error(internalMsg, "error", err)
		h.writeError(w, http.StatusInternalServerError, internalMsg, "internal_error")
	}
}

func listOptions(r *http.Request) store.ListOptions {
	opts := store.DefaultListOptions()

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			opts.Limit = l
		}
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil {
			opts.Offset = o
		}
	}
	return opts.Normalize()
}

func deploymentList(list []domain.Deployment, opts store.ListOptions) ListDeploymentsResponse {
	resp := ListDeploymentsResponse{
		Deployments: make([]DeploymentResponse, 0, len(list)),
		Limit:       opts.Limit,
		Offset:      opts.Offset,
	}
	for i := range list {
		resp.Deployments = append(resp.Deployments, deploymentToResponse(&list[i]))
	}
	return resp
}

func templateList(list []domain.Template, opts store.ListOptions) ListTemplatesResponse {
	resp := ListTemplatesResponse{
		Templates: make([]TemplateResponse, 0, len(list)),
		Limit:     opts.Limit,
		Offset:    opts.Offset,
	}
	for i := range list {
		resp.Templates = append(resp.Templates, templateToResponse(&list[i]))
	}
	return resp
}
