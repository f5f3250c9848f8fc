package router

import (
	"github.com/charmbracelet/log"
	"github.com/danielgtaylor/huma/v2"

	v0 "github.com/anshumantekriwal/kadena-agents/internal/deployer/api/handlers/v0"
)

// RegisterRoutes registers every API route under pathPrefix.
func RegisterRoutes(api huma.API, pathPrefix string, services Services, versionInfo *v0.VersionBody, logger *log.Logger) {
	registerCommonEndpoints(api, pathPrefix, versionInfo)

	if services.Deployer != nil {
		v0.RegisterDeployEndpoint(api, pathPrefix, services.Deployer, logger)
	}
	if services.Deployments != nil {
		v0.RegisterDeploymentsEndpoints(api, pathPrefix, services.Deployments)
	}
	if services.Logs != nil {
		v0.RegisterLogsEndpoints(api, pathPrefix, services.Logs, services.TailLimits, logger)
	}
}

func registerCommonEndpoints(api huma.API, pathPrefix string, versionInfo *v0.VersionBody) {
	v0.RegisterHealthEndpoint(api, pathPrefix, versionInfo)
	v0.RegisterPingEndpoint(api, pathPrefix)
	v0.RegisterVersionEndpoint(api, pathPrefix, versionInfo)
}
