// Package logs answers read-only queries about deployed agents: their log
// events and the managed services that run them. Nothing is cached.
package logs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/charmbracelet/log"

	"github.com/anshumantekriwal/kadena-agents/internal/deployer/provision"
	"github.com/anshumantekriwal/kadena-agents/pkg/models"
)

const (
	noLogsMessage = "No logs found for this agent. The agent might not have started yet or no logs have been generated."
	truncatedTail = "Only part of the lookback window was scanned; newer events may be missing. Use a time-bounded query to read them."

	// Upper bound the log service accepts for a single page.
	maxPageSize = 10000
)

// LogsAPI is the subset of the CloudWatch Logs client used here.
type LogsAPI interface {
	DescribeLogGroups(ctx context.Context, params *cloudwatchlogs.DescribeLogGroupsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogGroupsOutput, error)
	FilterLogEvents(ctx context.Context, params *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error)
}

// ServiceLister lists managed services by name prefix.
type ServiceLister interface {
	ListServices(ctx context.Context, prefix string) ([]*provision.Service, error)
}

// Options configure a Facade.
type Options struct {
	// GroupPrefix is the log group namespace of the managed service, e.g. "/aws/apprunner/".
	GroupPrefix string
	// NamePrefix is prepended to agent ids to form service names.
	NamePrefix       string
	DefaultLimit     int
	DefaultTailLines int
	TailLookback     time.Duration
	MaxPages         int
}

// Query narrows a log query. Zero values mean unbounded.
type Query struct {
	StartTime int64
	EndTime   int64
	Limit     int
	NextToken string
}

// Facade queries agent logs and the agent inventory.
type Facade struct {
	logs     LogsAPI
	services ServiceLister
	opts     Options
	now      func() time.Time
	logger   *log.Logger
}

// NewFacade returns a facade over the given clients.
func NewFacade(logsClient LogsAPI, services ServiceLister, opts Options, logger *log.Logger) *Facade {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 100
	}
	if opts.DefaultTailLines <= 0 {
		opts.DefaultTailLines = 50
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 50
	}
	if opts.TailLookback <= 0 {
		opts.TailLookback = 24 * time.Hour
	}
	return &Facade{
		logs:     logsClient,
		services: services,
		opts:     opts,
		now:      time.Now,
		logger:   logger.WithPrefix("logs"),
	}
}

func (f *Facade) agentGroupPrefix(agentID string) string {
	return f.opts.GroupPrefix + f.opts.NamePrefix + agentID + "/"
}

// defaultGroupName is reported when an agent has no log group yet.
func (f *Facade) defaultGroupName(agentID string) string {
	return f.agentGroupPrefix(agentID) + "application"
}

// FindLogGroup returns the application log group of an agent, or "" if the
// agent has not produced one.
func (f *Facade) FindLogGroup(ctx context.Context, agentID string) (string, error) {
	groups, err := f.describeGroups(ctx, f.agentGroupPrefix(agentID))
	if err != nil {
		return "", err
	}
	for _, g := range groups {
		if strings.Contains(g.Name, "/application") {
			return g.Name, nil
		}
	}
	return "", nil
}

// GetLogs returns up to q.Limit events, oldest first, following continuation
// tokens. NextToken is set when more events remain.
func (f *Facade) GetLogs(ctx context.Context, agentID string, q Query) (*models.LogsResult, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = f.opts.DefaultLimit
	}

	group, err := f.FindLogGroup(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if group == "" {
		return &models.LogsResult{
			LogGroupName: f.defaultGroupName(agentID),
			Events:       []models.LogEvent{},
			Message:      noLogsMessage,
		}, nil
	}

	input := &cloudwatchlogs.FilterLogEventsInput{
		LogGroupName: aws.String(group),
	}
	if q.StartTime > 0 {
		input.StartTime = aws.Int64(q.StartTime)
	}
	if q.EndTime > 0 {
		input.EndTime = aws.Int64(q.EndTime)
	}
	if q.NextToken != "" {
		input.NextToken = aws.String(q.NextToken)
	}

	events := []models.LogEvent{}
	var next string
	for page := 0; page < f.opts.MaxPages; page++ {
		// never ask for more than the remaining budget, so the token
		// returned resumes right after the last event kept
		input.Limit = aws.Int32(int32(min(limit-len(events), maxPageSize)))
		out, err := f.logs.FilterLogEvents(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("filter log events for %s: %w", group, err)
		}
		events = append(events, toEvents(out.Events)...)
		next = aws.ToString(out.NextToken)
		if next == "" || len(events) >= limit {
			break
		}
		input.NextToken = out.NextToken
	}

	return &models.LogsResult{
		LogGroupName: group,
		Events:       events,
		NextToken:    next,
		TotalEvents:  len(events),
	}, nil
}

// Tail returns at most lines of the newest events within the lookback window,
// newest first.
func (f *Facade) Tail(ctx context.Context, agentID string, lines int) (*models.TailResult, error) {
	now := f.now()
	if lines <= 0 {
		lines = f.opts.DefaultTailLines
	}

	group, err := f.FindLogGroup(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if group == "" {
		return &models.TailResult{
			LogGroupName: f.defaultGroupName(agentID),
			Events:       []models.LogEvent{},
			Message:      noLogsMessage,
			Timestamp:    now.UTC(),
		}, nil
	}

	input := &cloudwatchlogs.FilterLogEventsInput{
		LogGroupName: aws.String(group),
		StartTime:    aws.Int64(now.Add(-f.opts.TailLookback).UnixMilli()),
		Limit:        aws.Int32(maxPageSize),
	}

	var kept []models.LogEvent
	pending := false
	for page := 0; page < f.opts.MaxPages; page++ {
		out, err := f.logs.FilterLogEvents(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("filter log events for %s: %w", group, err)
		}
		kept = append(kept, toEvents(out.Events)...)
		if len(kept) > 2*lines {
			kept = newest(kept, lines)
		}
		pending = aws.ToString(out.NextToken) != ""
		if !pending {
			break
		}
		input.NextToken = out.NextToken
	}
	kept = newest(kept, lines)

	result := &models.TailResult{
		LogGroupName: group,
		Events:       kept,
		TotalEvents:  len(kept),
		Timestamp:    now.UTC(),
	}
	if pending {
		f.logger.Warn("tail stopped before the end of the lookback window", "agent", agentID, "group", group, "pages", f.opts.MaxPages)
		result.Message = truncatedTail
	}
	return result, nil
}

// newest sorts events newest first and keeps at most n of them.
func newest(events []models.LogEvent, n int) []models.LogEvent {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Timestamp != events[j].Timestamp {
			return events[i].Timestamp > events[j].Timestamp
		}
		return events[i].EventID > events[j].EventID
	})
	if len(events) > n {
		events = events[:n]
	}
	if events == nil {
		return []models.LogEvent{}
	}
	return events
}

// ListAgents reports every managed service named with the agent prefix and
// whether it has produced logs.
func (f *Facade) ListAgents(ctx context.Context) ([]models.Agent, error) {
	services, err := f.services.ListServices(ctx, f.opts.NamePrefix)
	if err != nil {
		return nil, err
	}

	agents := make([]models.Agent, 0, len(services))
	for _, svc := range services {
		agentID := strings.TrimPrefix(svc.Name, f.opts.NamePrefix)
		agent := models.Agent{
			AgentID:     agentID,
			ServiceName: svc.Name,
			ServiceURL:  svc.URL,
			ServiceARN:  svc.ARN,
			Status:      svc.Status,
			CreatedAt:   svc.CreatedAt,
		}
		group, err := f.FindLogGroup(ctx, agentID)
		if err != nil {
			f.logger.Warn("could not look up log group", "agent", agentID, "err", err)
		} else if group != "" {
			agent.HasLogs = true
			agent.LogGroupName = group
		}
		agents = append(agents, agent)
	}
	return agents, nil
}

// ListLogGroups returns every log group under the managed service namespace.
func (f *Facade) ListLogGroups(ctx context.Context) ([]models.LogGroup, error) {
	return f.describeGroups(ctx, f.opts.GroupPrefix)
}

func (f *Facade) describeGroups(ctx context.Context, prefix string) ([]models.LogGroup, error) {
	input := &cloudwatchlogs.DescribeLogGroupsInput{LogGroupNamePrefix: aws.String(prefix)}
	groups := []models.LogGroup{}
	for page := 0; page < f.opts.MaxPages; page++ {
		out, err := f.logs.DescribeLogGroups(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("describe log groups %s: %w", prefix, err)
		}
		for _, g := range out.LogGroups {
			groups = append(groups, models.LogGroup{
				Name:            aws.ToString(g.LogGroupName),
				ARN:             aws.ToString(g.Arn),
				CreationTime:    aws.ToInt64(g.CreationTime),
				StoredBytes:     aws.ToInt64(g.StoredBytes),
				RetentionInDays: aws.ToInt32(g.RetentionInDays),
			})
		}
		if aws.ToString(out.NextToken) == "" {
			break
		}
		input.NextToken = out.NextToken
	}
	return groups, nil
}

func toEvents(in []cwtypes.FilteredLogEvent) []models.LogEvent {
	out := make([]models.LogEvent, 0, len(in))
	for _, e := range in {
		out = append(out, models.LogEvent{
			EventID:       aws.ToString(e.EventId),
			LogStreamName: aws.ToString(e.LogStreamName),
			Timestamp:     aws.ToInt64(e.Timestamp),
			IngestionTime: aws.ToInt64(e.IngestionTime),
			Message:       aws.ToString(e.Message),
		})
	}
	return out
}
