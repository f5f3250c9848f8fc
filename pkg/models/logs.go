package models

import "time"

// LogEvent is a single line emitted by a deployed agent.
type LogEvent struct {
	EventID       string `json:"eventId,omitempty"`
	LogStreamName string `json:"logStreamName,omitempty"`
	Timestamp     int64  `json:"timestamp"`
	IngestionTime int64  `json:"ingestionTime,omitempty"`
	Message       string `json:"message"`
}

// LogsResult is returned by a filtered log query.
type LogsResult struct {
	LogGroupName string     `json:"logGroupName"`
	Events       []LogEvent `json:"events"`
	NextToken    string     `json:"nextToken,omitempty"`
	TotalEvents  int        `json:"totalEvents"`
	Message      string     `json:"message,omitempty"`
}

// TailResult is returned by a tail query. Events are ordered newest-first.
type TailResult struct {
	LogGroupName string     `json:"logGroupName"`
	Events       []LogEvent `json:"events"`
	TotalEvents  int        `json:"totalEvents"`
	Message      string     `json:"message,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
}

// LogGroup describes a log group known to the log aggregation service.
type LogGroup struct {
	Name            string `json:"logGroupName"`
	ARN             string `json:"arn,omitempty"`
	CreationTime    int64  `json:"creationTime,omitempty"`
	StoredBytes     int64  `json:"storedBytes,omitempty"`
	RetentionInDays int32  `json:"retentionInDays,omitempty"`
}
