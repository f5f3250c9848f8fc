package v0

import (
	"context"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/danielgtaylor/huma/v2"

	"github.com/anshumantekriwal/kadena-agents/internal/deployer/logs"
	"github.com/anshumantekriwal/kadena-agents/pkg/models"
)

// LogsService answers log and inventory queries.
type LogsService interface {
	GetLogs(ctx context.Context, agentID string, q logs.Query) (*models.LogsResult, error)
	Tail(ctx context.Context, agentID string, lines int) (*models.TailResult, error)
	ListAgents(ctx context.Context) ([]models.Agent, error)
	ListLogGroups(ctx context.Context) ([]models.LogGroup, error)
}

// TailLimits bound the tail endpoint.
type TailLimits struct {
	DefaultLines int
	MaxLines     int
}

// AgentLogsInput selects a window of an agent's logs.
type AgentLogsInput struct {
	AgentID   string `path:"agentId" doc:"Agent identifier" example:"abc123"`
	StartTime int64  `query:"startTime" minimum:"0" doc:"Earliest event, epoch milliseconds"`
	EndTime   int64  `query:"endTime" minimum:"0" doc:"Latest event, epoch milliseconds"`
	Limit     int    `query:"limit" minimum:"0" maximum:"10000" doc:"Maximum number of events (default 100)"`
	NextToken string `query:"nextToken" doc:"Continuation token from a previous response"`
}

// TailInput selects the newest events of an agent.
type TailInput struct {
	AgentID string `path:"agentId" doc:"Agent identifier" example:"abc123"`
	Lines   int    `query:"lines" minimum:"0" doc:"Number of newest events to return"`
}

// RegisterLogsEndpoints registers the log and inventory endpoints.
func RegisterLogsEndpoints(api huma.API, basePath string, svc LogsService, limits TailLimits, logger *log.Logger) {
	huma.Register(api, huma.Operation{
		OperationID: "get-agent-logs",
		Method:      http.MethodGet,
		Path:        basePath + "/agent-logs/{agentId}",
		Summary:     "Get agent logs",
		Description: "Application log events of an agent, oldest first. Follow nextToken for more.",
		Tags:        []string{"logs"},
	}, func(ctx context.Context, input *AgentLogsInput) (*Response[models.LogsResult], error) {
		if input.EndTime > 0 && input.StartTime > input.EndTime {
			return nil, huma.Error400BadRequest("startTime must not be after endTime")
		}
		result, err := svc.GetLogs(ctx, input.AgentID, logs.Query{
			StartTime: input.StartTime,
			EndTime:   input.EndTime,
			Limit:     input.Limit,
			NextToken: input.NextToken,
		})
		if err != nil {
			logger.Error("failed to fetch agent logs", "agent", input.AgentID, "err", err)
			return nil, huma.Error500InternalServerError("Failed to fetch agent logs.")
		}
		return &Response[models.LogsResult]{Body: *result}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "tail-agent-logs",
		Method:      http.MethodGet,
		Path:        basePath + "/agent-logs/{agentId}/tail",
		Summary:     "Tail agent logs",
		Description: "The newest log events of an agent, newest first.",
		Tags:        []string{"logs"},
	}, func(ctx context.Context, input *TailInput) (*Response[models.TailResult], error) {
		lines := input.Lines
		if lines == 0 {
			lines = limits.DefaultLines
		}
		if limits.MaxLines > 0 && lines > limits.MaxLines {
			return nil, huma.Error400BadRequest(fmt.Sprintf("lines must be at most %d", limits.MaxLines))
		}
		result, err := svc.Tail(ctx, input.AgentID, lines)
		if err != nil {
			logger.Error("failed to tail agent logs", "agent", input.AgentID, "err", err)
			return nil, huma.Error500InternalServerError("Failed to fetch agent logs.")
		}
		return &Response[models.TailResult]{Body: *result}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-agents",
		Method:      http.MethodGet,
		Path:        basePath + "/agents",
		Summary:     "List deployed agents",
		Description: "Managed services following the agent naming convention, with whether each has produced logs.",
		Tags:        []string{"agents"},
	}, func(ctx context.Context, _ *struct{}) (*Response[ListBody[models.Agent]], error) {
		agents, err := svc.ListAgents(ctx)
		if err != nil {
			logger.Error("failed to list agents", "err", err)
			return nil, huma.Error500InternalServerError("Failed to list agents.")
		}
		return &Response[ListBody[models.Agent]]{Body: newList(agents)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-log-groups",
		Method:      http.MethodGet,
		Path:        basePath + "/debug/log-groups",
		Summary:     "List log groups",
		Description: "Every log group under the managed service namespace.",
		Tags:        []string{"debug"},
	}, func(ctx context.Context, _ *struct{}) (*Response[ListBody[models.LogGroup]], error) {
		groups, err := svc.ListLogGroups(ctx)
		if err != nil {
			logger.Error("failed to list log groups", "err", err)
			return nil, huma.Error500InternalServerError("Failed to list log groups.")
		}
		return &Response[ListBody[models.LogGroup]]{Body: newList(groups)}, nil
	})
}
