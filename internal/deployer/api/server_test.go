package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anshumantekriwal/kadena-agents/internal/deployer/api"
	v0 "github.com/anshumantekriwal/kadena-agents/internal/deployer/api/handlers/v0"
	"github.com/anshumantekriwal/kadena-agents/internal/deployer/api/router"
	"github.com/anshumantekriwal/kadena-agents/internal/deployer/auth"
	"github.com/anshumantekriwal/kadena-agents/internal/deployer/jobs"
	"github.com/anshumantekriwal/kadena-agents/internal/deployer/logs"
	"github.com/anshumantekriwal/kadena-agents/internal/deployer/pipeline"
	"github.com/anshumantekriwal/kadena-agents/internal/deployer/telemetry"
	"github.com/anshumantekriwal/kadena-agents/pkg/models"
)

const testKey = "test-key"

type fakeDeployer struct {
	mu    sync.Mutex
	calls []pipeline.Request
	err   error
}

func (f *fakeDeployer) Deploy(_ context.Context, req pipeline.Request) (*models.DeploymentResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return &models.DeploymentResult{
		DeploymentID: "dep-1",
		AgentID:      req.AgentID,
		AgentURL:     "https://xyz.us-east-1.awsapprunner.com",
		ServiceARN:   "arn:aws:apprunner:us-east-1:123456789012:service/agent-" + req.AgentID + "/1",
	}, nil
}

type fakeLogs struct {
	calls     int
	tailLines int
	err       error
}

func (f *fakeLogs) GetLogs(_ context.Context, agentID string, q logs.Query) (*models.LogsResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.LogsResult{
		LogGroupName: "/aws/apprunner/agent-" + agentID + "/1/application",
		Events:       []models.LogEvent{{Message: "hello", Timestamp: q.StartTime}},
		TotalEvents:  1,
	}, nil
}

func (f *fakeLogs) Tail(_ context.Context, _ string, lines int) (*models.TailResult, error) {
	f.calls++
	f.tailLines = lines
	return &models.TailResult{Events: []models.LogEvent{}}, nil
}

func (f *fakeLogs) ListAgents(context.Context) ([]models.Agent, error) {
	f.calls++
	return []models.Agent{{AgentID: "abc123", HasLogs: true}}, nil
}

func (f *fakeLogs) ListLogGroups(context.Context) ([]models.LogGroup, error) {
	f.calls++
	return nil, nil
}

type testServer struct {
	handler  http.Handler
	deployer *fakeDeployer
	logs     *fakeLogs
	jobs     *jobs.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	shutdown, metrics, err := telemetry.InitMetrics("test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	ts := &testServer{
		deployer: &fakeDeployer{},
		logs:     &fakeLogs{},
		jobs:     jobs.NewManager(ctx),
	}
	srv := api.NewServer(":0", router.Services{
		Deployer:    ts.deployer,
		Logs:        ts.logs,
		Deployments: ts.jobs,
		TailLimits:  v0.TailLimits{DefaultLines: 50, MaxLines: 1000},
	}, metrics, &v0.VersionBody{Version: "test"}, auth.NewAPIKeyProvider("x-api-key", testKey), log.New(io.Discard))
	ts.handler = srv.Handler()
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("x-api-key", testKey)
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

const validBody = `{"agentId":"abc123","baselineFunction":"console.log('hi')","intervalFunction":"setInterval(()=>{}, 1000)","publicKey":"pub","privateKey":"priv"}`

func TestRoot(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/", "", false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, router.RootMessage, w.Body.String())

	w = ts.do(t, http.MethodGet, "/nope", "", false)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPublicEndpoints(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/health", "/ping", "/version"} {
		w := ts.do(t, http.MethodGet, path, "", false)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestUnauthenticatedRequestsRejectedBeforeQuery(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/agent-logs/abc123", "/agent-logs/abc123/tail?lines=5", "/agents", "/debug/log-groups"} {
		w := ts.do(t, http.MethodGet, path, "", false)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
	w := ts.do(t, http.MethodPost, "/deploy-agent", validBody, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Zero(t, ts.logs.calls)
	assert.Empty(t, ts.deployer.calls)
}

func TestDeployAgent(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPost, "/deploy-agent", validBody, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result models.DeploymentResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.NotEmpty(t, result.AgentURL)
	assert.Equal(t, "abc123", result.AgentID)

	require.Len(t, ts.deployer.calls, 1)
	assert.Equal(t, "setInterval(()=>{}, 1000)", ts.deployer.calls[0].IntervalFunction)
	assert.Equal(t, "priv", ts.deployer.calls[0].PrivateKey)
}

func TestDeployAgent_MissingFieldRejected(t *testing.T) {
	ts := newTestServer(t)
	for _, body := range []string{
		`{"agentId":"abc123","baselineFunction":"a","intervalFunction":"b","publicKey":"pub"}`,
		`{"agentId":"","baselineFunction":"a","intervalFunction":"b","publicKey":"pub","privateKey":"priv"}`,
	} {
		w := ts.do(t, http.MethodPost, "/deploy-agent", body, true)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, body)
	}
	assert.Empty(t, ts.deployer.calls)
}

func TestDeployAgent_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{"invalid", pipeline.ErrInvalidRequest, http.StatusBadRequest, "invalid deployment request"},
		{"already deployed", pipeline.ErrAlreadyDeployed, http.StatusConflict, "already deployed"},
		{"running", jobs.ErrJobAlreadyRunning, http.StatusConflict, "already running"},
		{"upstream", errors.New("provision: AccessDeniedException: role arn:aws:iam::1:role/x"), http.StatusInternalServerError, v0.DeployFailedMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.deployer.err = tt.err

			w := ts.do(t, http.MethodPost, "/deploy-agent", validBody, true)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantDetail)
			if tt.wantStatus == http.StatusInternalServerError {
				assert.NotContains(t, w.Body.String(), "AccessDenied")
			}
		})
	}
}

func TestAgentLogs(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/agent-logs/abc123?startTime=1000&limit=10", "", true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result models.LogsResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, int64(1000), result.Events[0].Timestamp)

	w = ts.do(t, http.MethodGet, "/agent-logs/abc123?startTime=2000&endTime=1000", "", true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAgentLogs_UpstreamFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.logs.err = errors.New("throttled")
	w := ts.do(t, http.MethodGet, "/agent-logs/abc123", "", true)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "throttled")
}

func TestTail(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/agent-logs/abc123/tail", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 50, ts.logs.tailLines)

	w = ts.do(t, http.MethodGet, "/agent-logs/abc123/tail?lines=7", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7, ts.logs.tailLines)

	w = ts.do(t, http.MethodGet, "/agent-logs/abc123/tail?lines=5000", "", true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAgentsList(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/agents", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[{"agentId":"abc123","serviceName":"","serviceUrl":"","status":"","hasLogs":true}],"count":1}`, w.Body.String())

	w = ts.do(t, http.MethodGet, "/debug/log-groups", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[],"count":0}`, w.Body.String())
}

func TestDeploymentStatus(t *testing.T) {
	ts := newTestServer(t)
	job, err := ts.jobs.CreateJob("abc123", len(pipeline.Steps))
	require.NoError(t, err)
	require.NoError(t, ts.jobs.StartStep(job.ID, pipeline.StepBuild))

	w := ts.do(t, http.MethodGet, "/deployments/"+string(job.ID), "", true)
	require.Equal(t, http.StatusOK, w.Code)
	var status models.DeploymentStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, pipeline.StepBuild, status.Step)
	assert.Equal(t, "pending", status.Status)

	w = ts.do(t, http.MethodGet, "/deployments/missing", "", true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/deployments", "", true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
}

func TestTrailingSlashRedirect(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/agents/", "", true)
	assert.Equal(t, http.StatusPermanentRedirect, w.Code)
	assert.Equal(t, "/agents", w.Header().Get("Location"))
}

func TestMetricsExposed(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/agents", "", true)
	ts.do(t, http.MethodGet, "/agent-logs/abc123", "", true)

	w := ts.do(t, http.MethodGet, "/metrics", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "agent_deployer_http_requests_total")
	assert.Contains(t, body, `path="/agent-logs/{agentId}"`)
}

func TestMetricsCountRejectedRequests(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/agents", "", false)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodGet, "/metrics", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "agent_deployer_http_errors_total")
	assert.Contains(t, body, `status_code="401"`)
}
