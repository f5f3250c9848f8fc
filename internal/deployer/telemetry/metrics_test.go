package telemetry_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/anshumantekriwal/kadena-agents/internal/deployer/telemetry"
)

func TestInitMetrics_Exports(t *testing.T) {
	shutdown, metrics, err := telemetry.InitMetrics("test")
	require.NoError(t, err)
	defer func() { _ = shutdown(context.Background()) }()

	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String("path", "/agents"))
	metrics.Requests.Add(ctx, 1, attrs)
	metrics.RequestDuration.Record(ctx, 0.02, attrs)
	metrics.RecordDeployment(ctx, "success", 42*time.Second)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	metrics.PrometheusHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "agent_deployer_http_requests_total")
	assert.Contains(t, body, "agent_deployer_http_request_duration_bucket")
	assert.Contains(t, body, "agent_deployer_deployments_total")
	assert.Contains(t, body, `outcome="success"`)
	assert.Contains(t, body, "agent_deployer_deployment_duration_bucket")
}

func TestRecordDeployment_NilMetrics(t *testing.T) {
	var m *telemetry.Metrics
	assert.NotPanics(t, func() {
		m.RecordDeployment(context.Background(), "failure", time.Second)
	})
}
