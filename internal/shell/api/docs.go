package api

import (
	"net/http"

	"github.com/artpar/muster/internal/shell/api/openapi"
)

// describeRoutes registers every route served by Routes with the generator.
func describeRoutes(g *openapi.Generator) {
	const (
		deployments = "/api/v1/deployments"
		templates   = "/api/v1/templates"
	)
	paging := []string{"limit", "offset"}

	for _, r := range []openapi.Route{
		{Method: http.MethodGet, Path: "/health", OperationID: "health", Summary: "Liveness probe", Tag: "Health", Response: HealthResponse{}},
		{Method: http.MethodGet, Path: "/ready", OperationID: "ready", Summary: "Readiness probe", Tag: "Health", Response: ReadyResponse{}},

		{Method: http.MethodPost, Path: deployments, OperationID: "createDeployment", Summary: "Create a deployment", Tag: "Deployments",
			Request: CreateDeploymentRequest{}, Response: DeploymentResponse{}, Status: http.StatusCreated},
		{Method: http.MethodGet, Path: deployments, OperationID: "listDeployments", Summary: "List deployments", Tag: "Deployments",
			Query: append([]string{"status"}, paging...), Response: ListDeploymentsResponse{}},
		{Method: http.MethodPost, Path: deployments + "/search", OperationID: "searchDeployments", Summary: "Search deployments", Tag: "Deployments",
			Request: SearchDeploymentsRequest{}, Response: ListDeploymentsResponse{}},
		{Method: http.MethodGet, Path: deployments + "/statuses", OperationID: "listDeploymentStatuses", Summary: "Distinct deployment statuses", Tag: "Deployments",
			Response: StatusesResponse{}},
		{Method: http.MethodGet, Path: deployments + "/mission/{missionID}", OperationID: "listMissionDeployments", Summary: "List deployments of a mission", Tag: "Deployments",
			Query: paging, Response: ListDeploymentsResponse{}},
		{Method: http.MethodGet, Path: deployments + "/{id}", OperationID: "getDeployment", Summary: "Get a deployment", Tag: "Deployments",
			Response: DeploymentResponse{}},
		{Method: http.MethodPut, Path: deployments + "/{id}/steps", OperationID: "replaceDeploymentSteps", Summary: "Replace the step list", Tag: "Deployments",
			Request: ReplaceStepsRequest{}, Response: DeploymentResponse{}},
		{Method: http.MethodPatch, Path: deployments + "/{id}/steps", OperationID: "updateDeploymentStep", Summary: "Update one step", Tag: "Deployments",
			Request: UpdateStepRequest{}, Response: DeploymentResponse{}},
		{Method: http.MethodPost, Path: deployments + "/{id}/feedback", OperationID: "addDeploymentFeedback", Summary: "Append feedback", Tag: "Deployments",
			Request: FeedbackRequest{}, Response: DeploymentResponse{}, Status: http.StatusCreated},
		{Method: http.MethodGet, Path: deployments + "/{id}/progress", OperationID: "getDeploymentProgress", Summary: "Step progress", Tag: "Deployments",
			Response: ProgressResponse{}},
		{Method: http.MethodDelete, Path: deployments + "/{id}", OperationID: "deleteDeployment", Summary: "Delete a deployment", Tag: "Deployments",
			Status: http.StatusNoContent},

		{Method: http.MethodPost, Path: templates, OperationID: "createTemplate", Summary: "Create a template", Tag: "Templates",
			Request: CreateTemplateRequest{}, Response: TemplateResponse{}, Status: http.StatusCreated},
		{Method: http.MethodGet, Path: templates, OperationID: "listTemplates", Summary: "List templates", Tag: "Templates",
			Query: append([]string{"type"}, paging...), Response: ListTemplatesResponse{}},
		{Method: http.MethodPost, Path: templates + "/search", OperationID: "searchTemplates", Summary: "Search templates", Tag: "Templates",
			Request: SearchTemplatesRequest{}, Response: ListTemplatesResponse{}},
		{Method: http.MethodGet, Path: templates + "/types", OperationID: "listTemplateTypes", Summary: "Template types", Tag: "Templates",
			Response: TypesResponse{}},
		{Method: http.MethodGet, Path: templates + "/{id}", OperationID: "getTemplate", Summary: "Get a template", Tag: "Templates",
			Response: TemplateResponse{}},
		{Method: http.MethodPut, Path: templates + "/{id}", OperationID: "updateTemplate", Summary: "Update a template", Tag: "Templates",
			Request: UpdateTemplateRequest{}, Response: TemplateResponse{}},
		{Method: http.MethodPost, Path: templates + "/{id}/execute", OperationID: "executeTemplate", Summary: "Run the deployment workflow", Tag: "Templates",
			Response: ExecuteResponse{}},
		{Method: http.MethodDelete, Path: templates + "/{id}", OperationID: "deleteTemplate", Summary: "Delete a template", Tag: "Templates",
			Status: http.StatusNoContent},
	} {
		g.AddRoute(r)
	}
}
