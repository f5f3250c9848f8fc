// Package telemetry exposes the deployer's OpenTelemetry instruments through a
// Prometheus scrape endpoint.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const (
	// Namespace prefixes every exported metric name.
	Namespace = "agent_deployer"

	meterName   = "github.com/anshumantekriwal/kadena-agents/internal/deployer"
	serviceName = "agent-deployer"
)

// Metrics holds the instruments recorded by the HTTP layer and the pipeline.
type Metrics struct {
	Requests           metric.Int64Counter
	ErrorCount         metric.Int64Counter
	RequestDuration    metric.Float64Histogram
	Deployments        metric.Int64Counter
	DeploymentDuration metric.Float64Histogram

	registry *prometheus.Registry
}

// InitMetrics creates a meter provider backed by a private Prometheus
// registry. The returned function flushes and stops the provider.
func InitMetrics(version string) (func(context.Context) error, *Metrics, error) {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(
		otelprom.WithRegisterer(registry),
		otelprom.WithNamespace(Namespace),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", version),
	)
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	shutdown := provider.Shutdown

	if err := runtime.Start(runtime.WithMeterProvider(provider)); err != nil {
		_ = shutdown(context.Background())
		return nil, nil, fmt.Errorf("failed to start runtime metrics: %w", err)
	}

	meter := provider.Meter(meterName)
	m := &Metrics{registry: registry}

	if m.Requests, err = meter.Int64Counter("http.requests",
		metric.WithDescription("Number of HTTP requests served")); err != nil {
		return nil, nil, err
	}
	if m.ErrorCount, err = meter.Int64Counter("http.errors",
		metric.WithDescription("Number of HTTP responses with status >= 400")); err != nil {
		return nil, nil, err
	}
	if m.RequestDuration, err = meter.Float64Histogram("http.request.duration",
		metric.WithDescription("HTTP request duration in seconds")); err != nil {
		return nil, nil, err
	}
	if m.Deployments, err = meter.Int64Counter("deployments",
		metric.WithDescription("Number of deployment pipeline runs by outcome")); err != nil {
		return nil, nil, err
	}
	if m.DeploymentDuration, err = meter.Float64Histogram("deployment.duration",
		metric.WithDescription("Deployment pipeline duration in seconds"),
		metric.WithExplicitBucketBoundaries(5, 15, 30, 60, 120, 300, 600, 1200)); err != nil {
		return nil, nil, err
	}

	return shutdown, m, nil
}

// RecordDeployment counts one pipeline run. A nil receiver records nothing.
func (m *Metrics) RecordDeployment(ctx context.Context, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.Deployments.Add(ctx, 1, attrs)
	m.DeploymentDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// PrometheusHandler serves the private registry in the Prometheus text format.
func (m *Metrics) PrometheusHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
