package v0

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// HealthBody is returned by the health endpoint.
type HealthBody struct {
	Status  string `json:"status" example:"ok" doc:"Health status"`
	Version string `json:"version" example:"1.0.0" doc:"Running deployer version"`
}

// VersionBody carries build information.
type VersionBody struct {
	Version   string `json:"version" example:"1.0.0" doc:"Deployer version"`
	GitCommit string `json:"git_commit" example:"abc123d" doc:"Git commit SHA"`
	BuildTime string `json:"build_time" example:"2026-01-01T00:00:00Z" doc:"Build timestamp"`
}

// RegisterHealthEndpoint registers the liveness probe.
func RegisterHealthEndpoint(api huma.API, basePath string, versionInfo *VersionBody) {
	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        basePath + "/health",
		Summary:     "Health check",
		Description: "Reports whether the deployer process is serving requests.",
		Tags:        []string{"health"},
	}, func(_ context.Context, _ *struct{}) (*Response[HealthBody], error) {
		return &Response[HealthBody]{
			Body: HealthBody{Status: "ok", Version: versionInfo.Version},
		}, nil
	})
}

// RegisterPingEndpoint registers a connectivity probe.
func RegisterPingEndpoint(api huma.API, basePath string) {
	huma.Register(api, huma.Operation{
		OperationID: "ping",
		Method:      http.MethodGet,
		Path:        basePath + "/ping",
		Summary:     "Ping",
		Tags:        []string{"ping"},
	}, func(_ context.Context, _ *struct{}) (*Response[map[string]bool], error) {
		return &Response[map[string]bool]{Body: map[string]bool{"pong": true}}, nil
	})
}

// RegisterVersionEndpoint registers the build information endpoint.
func RegisterVersionEndpoint(api huma.API, basePath string, versionInfo *VersionBody) {
	huma.Register(api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        basePath + "/version",
		Summary:     "Get version information",
		Tags:        []string{"version"},
	}, func(_ context.Context, _ *struct{}) (*Response[VersionBody], error) {
		return &Response[VersionBody]{Body: *versionInfo}, nil
	})
}
