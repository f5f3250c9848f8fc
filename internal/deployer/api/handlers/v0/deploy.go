package v0

import (
	"context"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/danielgtaylor/huma/v2"

	"github.com/anshumantekriwal/kadena-agents/internal/deployer/jobs"
	"github.com/anshumantekriwal/kadena-agents/internal/deployer/pipeline"
	"github.com/anshumantekriwal/kadena-agents/pkg/models"
)

// DeployFailedMessage is the only detail a caller sees for upstream failures.
const DeployFailedMessage = "Failed to deploy agent."

// Deployer runs the deployment pipeline.
type Deployer interface {
	Deploy(ctx context.Context, req pipeline.Request) (*models.DeploymentResult, error)
}

// DeployAgentInput is the body of a deployment request.
type DeployAgentInput struct {
	Body models.DeployAgentRequest
}

// RegisterDeployEndpoint registers POST /deploy-agent.
func RegisterDeployEndpoint(api huma.API, basePath string, deployer Deployer, logger *log.Logger) {
	huma.Register(api, huma.Operation{
		OperationID:   "deploy-agent",
		Method:        http.MethodPost,
		Path:          basePath + "/deploy-agent",
		Summary:       "Deploy an agent",
		Description:   "Builds the agent image, publishes it and creates its managed service. Returns once the service creation is accepted; the agent may still be starting.",
		Tags:          []string{"deployments"},
		DefaultStatus: http.StatusOK,
	}, func(ctx context.Context, input *DeployAgentInput) (*Response[models.DeploymentResult], error) {
		result, err := deployer.Deploy(ctx, pipeline.RequestFromModel(input.Body))
		if err != nil {
			return nil, deployError(err, input.Body.AgentID, logger)
		}
		return &Response[models.DeploymentResult]{Body: *result}, nil
	})
}

func deployError(err error, agentID string, logger *log.Logger) error {
	switch {
	case errors.Is(err, pipeline.ErrInvalidRequest):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, pipeline.ErrAlreadyDeployed):
		return huma.Error409Conflict("Agent is already deployed", err)
	case errors.Is(err, jobs.ErrJobAlreadyRunning):
		return huma.Error409Conflict("A deployment of this agent is already running", err)
	default:
		logger.Error("deployment error", "agent", agentID, "err", err)
		return huma.Error500InternalServerError(DeployFailedMessage)
	}
}
