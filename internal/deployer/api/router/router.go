// Package router wires the deployer's HTTP handlers, middleware and metrics.
package router

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	v0 "github.com/anshumantekriwal/kadena-agents/internal/deployer/api/handlers/v0"
	"github.com/anshumantekriwal/kadena-agents/internal/deployer/auth"
	"github.com/anshumantekriwal/kadena-agents/internal/deployer/telemetry"
)

// RootMessage is served at "/".
const RootMessage = "Agent Deployer is live"

// PublicPaths bypass authentication.
var PublicPaths = []string{"/health", "/ping", "/version"}

// Services are the backends behind the routes.
type Services struct {
	Deployer    v0.Deployer
	Logs        v0.LogsService
	Deployments v0.DeploymentTracker
	TailLimits  v0.TailLimits
}

// Middleware configuration options
type middlewareConfig struct {
	skipPaths map[string]bool
}

// MiddlewareOption configures MetricTelemetryMiddleware.
type MiddlewareOption func(*middlewareConfig)

// getRoutePath prefers the route pattern so path parameters do not explode
// metric cardinality.
func getRoutePath(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil && op.Path != "" {
		return op.Path
	}
	return ctx.URL().Path
}

// MetricTelemetryMiddleware records request count, errors and latency per
// route. A nil metrics disables it.
func MetricTelemetryMiddleware(metrics *telemetry.Metrics, options ...MiddlewareOption) func(huma.Context, func(huma.Context)) {
	config := &middlewareConfig{
		skipPaths: make(map[string]bool),
	}
	for _, opt := range options {
		opt(config)
	}

	return func(ctx huma.Context, next func(huma.Context)) {
		if metrics == nil || config.skipPaths[ctx.URL().Path] {
			next(ctx)
			return
		}

		start := time.Now()
		method := ctx.Method()
		routePath := getRoutePath(ctx)

		next(ctx)

		duration := time.Since(start).Seconds()
		statusCode := ctx.Status()

		attrs := []attribute.KeyValue{
			attribute.String("method", method),
			attribute.String("path", routePath),
			attribute.Int("status_code", statusCode),
		}

		metrics.Requests.Add(ctx.Context(), 1, metric.WithAttributes(attrs...))
		if statusCode >= 400 {
			metrics.ErrorCount.Add(ctx.Context(), 1, metric.WithAttributes(attrs...))
		}
		metrics.RequestDuration.Record(ctx.Context(), duration, metric.WithAttributes(attrs...))
	}
}

// WithSkipPaths excludes exact request paths from instrumentation.
func WithSkipPaths(paths ...string) MiddlewareOption {
	return func(c *middlewareConfig) {
		for _, path := range paths {
			c.skipPaths[path] = true
		}
	}
}

func handle404(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusNotFound)

	errorBody := map[string]any{
		"title":  "Not Found",
		"status": http.StatusNotFound,
		"detail": "Endpoint not found. See /docs for the API documentation.",
	}
	_ = json.NewEncoder(w).Encode(errorBody)
}

// NewHumaAPI creates a Huma API on mux with every route registered.
func NewHumaAPI(mux *http.ServeMux, services Services, metrics *telemetry.Metrics, versionInfo *v0.VersionBody, authnProvider auth.AuthnProvider, logger *log.Logger) huma.API {
	humaConfig := huma.DefaultConfig("Agent Deployer", versionInfo.Version)
	humaConfig.Info.Description = "Builds user-defined trading agents into container images and runs each as a managed service."
	// Disable $schema property in responses
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}

	api := humago.New(mux, humaConfig)

	api.OpenAPI().Tags = []*huma.Tag{
		{Name: "deployments", Description: "Deploy agents and follow pipeline progress"},
		{Name: "logs", Description: "Read agent log events"},
		{Name: "agents", Description: "Inventory of deployed agents"},
		{Name: "debug", Description: "Raw views of backing services"},
		{Name: "health", Description: "Health check endpoint for monitoring service availability"},
		{Name: "ping", Description: "Simple ping endpoint for testing connectivity"},
		{Name: "version", Description: "Version information endpoint"},
	}

	// metrics wrap authentication so rejected requests are counted
	api.UseMiddleware(MetricTelemetryMiddleware(metrics,
		WithSkipPaths("/health", "/metrics", "/ping", "/docs"),
	))
	if authnProvider != nil {
		api.UseMiddleware(auth.AuthnMiddleware(authnProvider, PublicPaths...))
	}

	RegisterRoutes(api, "", services, versionInfo, logger)

	if metrics != nil {
		mux.Handle("/metrics", metrics.PrometheusHandler())
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte(RootMessage))
			return
		}
		handle404(w, r)
	})
	return api
}
