// Package client talks to the agent deployer HTTP API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/anshumantekriwal/kadena-agents/pkg/models"
)

const (
	// DefaultBaseURL is the address of a locally running deployer.
	DefaultBaseURL = "http://localhost:3000"
	// DefaultAPIKeyHeader carries the shared key.
	DefaultAPIKeyHeader = "x-api-key"

	queryTimeout = 30 * time.Second
	// A deployment holds the request open while the image builds and uploads.
	deployTimeout = 30 * time.Minute
)

// APIError is a non-2xx response from the deployer.
type APIError struct {
	StatusCode int
	Title      string `json:"title"`
	Detail     string `json:"detail"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = e.Message
	}
	if msg == "" {
		msg = e.Title
	}
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("deployer returned %d: %s", e.StatusCode, msg)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// Client is a deployer API client. Queries are retried on transient
// failures; deployments are attempted once.
type Client struct {
	BaseURL      string
	apiKey       string
	apiKeyHeader string
	queries      *retryablehttp.Client
	deploys      *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKeyHeader overrides the header the key is sent in.
func WithAPIKeyHeader(header string) Option {
	return func(c *Client) {
		c.apiKeyHeader = header
	}
}

// WithRetryMax sets how many times a query is retried.
func WithRetryMax(n int) Option {
	return func(c *Client) {
		c.queries.RetryMax = n
	}
}

// NewClient constructs a client with explicit baseURL and API key.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	queries := retryablehttp.NewClient()
	queries.Logger = nil
	queries.RetryMax = 3
	queries.RetryWaitMin = 200 * time.Millisecond
	queries.RetryWaitMax = 2 * time.Second
	queries.HTTPClient.Timeout = queryTimeout
	// surface the last response so API errors keep their status and detail
	queries.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		apiKeyHeader: DefaultAPIKeyHeader,
		queries:      queries,
		deploys:      &http.Client{Timeout: deployTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) newRequest(ctx context.Context, method, pathWithQuery string, in any) (*retryablehttp.Request, error) {
	var body any
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %T: %w", in, err)
		}
		body = data
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.BaseURL+pathWithQuery, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(c.apiKeyHeader, c.apiKey)
	}
	return req, nil
}

func decodeResponse(resp *http.Response, out any) error {
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// read up to 4KB of body for the error message
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(errBody, apiErr); err != nil {
			apiErr.Detail = strings.TrimSpace(string(errBody))
		}
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) get(ctx context.Context, pathWithQuery string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, pathWithQuery, nil)
	if err != nil {
		return err
	}
	resp, err := c.queries.Do(req)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

type list[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

// Ping checks that the deployer is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.get(ctx, "/ping", nil)
}

// ServerVersion is the build information of a running deployer.
type ServerVersion struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
}

// Version returns the build information of the deployer.
func (c *Client) Version(ctx context.Context) (*ServerVersion, error) {
	var v ServerVersion
	if err := c.get(ctx, "/version", &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Deploy runs a deployment. It is never retried: a repeated request for the
// same agent would be rejected as a duplicate anyway.
func (c *Client) Deploy(ctx context.Context, in models.DeployAgentRequest) (*models.DeploymentResult, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/deploy-agent", in)
	if err != nil {
		return nil, err
	}
	resp, err := c.deploys.Do(req.Request)
	if err != nil {
		return nil, err
	}
	var result models.DeploymentResult
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// LogsQuery narrows GetLogs. Zero values are omitted.
type LogsQuery struct {
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	NextToken string
}

func (q LogsQuery) encode() string {
	v := url.Values{}
	if !q.StartTime.IsZero() {
		v.Set("startTime", strconv.FormatInt(q.StartTime.UnixMilli(), 10))
	}
	if !q.EndTime.IsZero() {
		v.Set("endTime", strconv.FormatInt(q.EndTime.UnixMilli(), 10))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.NextToken != "" {
		v.Set("nextToken", q.NextToken)
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// GetLogs returns a window of an agent's log events, oldest first.
func (c *Client) GetLogs(ctx context.Context, agentID string, q LogsQuery) (*models.LogsResult, error) {
	var result models.LogsResult
	if err := c.get(ctx, "/agent-logs/"+url.PathEscape(agentID)+q.encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Tail returns up to lines of the newest events, newest first. Zero lines
// uses the server default.
func (c *Client) Tail(ctx context.Context, agentID string, lines int) (*models.TailResult, error) {
	path := "/agent-logs/" + url.PathEscape(agentID) + "/tail"
	if lines > 0 {
		path += "?lines=" + strconv.Itoa(lines)
	}
	var result models.TailResult
	if err := c.get(ctx, path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListAgents returns every deployed agent.
func (c *Client) ListAgents(ctx context.Context) ([]models.Agent, error) {
	var out list[models.Agent]
	if err := c.get(ctx, "/agents", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// ListLogGroups returns the raw log groups of the managed service.
func (c *Client) ListLogGroups(ctx context.Context) ([]models.LogGroup, error) {
	var out list[models.LogGroup]
	if err := c.get(ctx, "/debug/log-groups", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// GetDeployment returns the progress of one pipeline run.
func (c *Client) GetDeployment(ctx context.Context, id string) (*models.DeploymentStatus, error) {
	var status models.DeploymentStatus
	if err := c.get(ctx, "/deployments/"+url.PathEscape(id), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListDeployments returns the pipeline runs the deployer still remembers.
func (c *Client) ListDeployments(ctx context.Context) ([]models.DeploymentStatus, error) {
	var out list[models.DeploymentStatus]
	if err := c.get(ctx, "/deployments", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}
