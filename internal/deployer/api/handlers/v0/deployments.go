package v0

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/anshumantekriwal/kadena-agents/internal/deployer/jobs"
	"github.com/anshumantekriwal/kadena-agents/pkg/models"
)

// DeploymentTracker exposes tracked pipeline runs.
type DeploymentTracker interface {
	GetJob(id jobs.JobID) (*jobs.Job, error)
	ListJobs() []*jobs.Job
}

// DeploymentInput identifies one pipeline run.
type DeploymentInput struct {
	DeploymentID string `path:"deploymentId" doc:"Deployment identifier returned by deploy-agent" example:"3f0c2a9e-6f1d-4b43-9d1a-2f7a3c1e8b55"`
}

// RegisterDeploymentsEndpoints registers the deployment tracking endpoints.
func RegisterDeploymentsEndpoints(api huma.API, basePath string, tracker DeploymentTracker) {
	huma.Register(api, huma.Operation{
		OperationID: "list-deployments",
		Method:      http.MethodGet,
		Path:        basePath + "/deployments",
		Summary:     "List recent deployments",
		Description: "Pipeline runs retained in memory, newest first. Finished runs expire after an hour.",
		Tags:        []string{"deployments"},
	}, func(_ context.Context, _ *struct{}) (*Response[ListBody[models.DeploymentStatus]], error) {
		list := tracker.ListJobs()
		statuses := make([]models.DeploymentStatus, 0, len(list))
		for _, job := range list {
			statuses = append(statuses, job.DeploymentStatus())
		}
		return &Response[ListBody[models.DeploymentStatus]]{Body: newList(statuses)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-deployment",
		Method:      http.MethodGet,
		Path:        basePath + "/deployments/{deploymentId}",
		Summary:     "Get deployment progress",
		Tags:        []string{"deployments"},
	}, func(_ context.Context, input *DeploymentInput) (*Response[models.DeploymentStatus], error) {
		job, err := tracker.GetJob(jobs.JobID(input.DeploymentID))
		if err != nil {
			if errors.Is(err, jobs.ErrJobNotFound) {
				return nil, huma.Error404NotFound("Deployment not found")
			}
			return nil, huma.Error500InternalServerError("Failed to get deployment", err)
		}
		return &Response[models.DeploymentStatus]{Body: job.DeploymentStatus()}, nil
	})
}
