// Package jobs tracks deployment runs in memory so callers can observe their
// progress while a pipeline is in flight.
package jobs

import (
	"slices"
	"time"

	"github.com/anshumantekriwal/kadena-agents/pkg/models"
)

// JobID uniquely identifies a deployment run.
type JobID string

// JobStatus represents the current state of a deployment run.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// JobProgress records the pipeline step in flight and the steps already done.
type JobProgress struct {
	Step      string   `json:"step,omitempty"`
	Completed []string `json:"completedSteps"`
	Total     int      `json:"totalSteps"`
}

// Job is one deployment run of one agent.
type Job struct {
	ID        JobID                    `json:"id"`
	AgentID   string                   `json:"agentId"`
	Status    JobStatus                `json:"status"`
	Progress  JobProgress              `json:"progress"`
	Result    *models.DeploymentResult `json:"result,omitempty"`
	Error     string                   `json:"error,omitempty"`
	CreatedAt time.Time                `json:"createdAt"`
	UpdatedAt time.Time                `json:"updatedAt"`
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// DeploymentStatus converts the job into its API representation.
func (j *Job) DeploymentStatus() models.DeploymentStatus {
	completed := slices.Clone(j.Progress.Completed)
	if completed == nil {
		completed = []string{}
	}
	return models.DeploymentStatus{
		ID:        string(j.ID),
		AgentID:   j.AgentID,
		Status:    string(j.Status),
		Step:      j.Progress.Step,
		Completed: completed,
		Total:     j.Progress.Total,
		Result:    j.Result,
		Error:     j.Error,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

func (j *Job) clone() *Job {
	c := *j
	c.Progress.Completed = slices.Clone(j.Progress.Completed)
	if j.Result != nil {
		r := *j.Result
		c.Result = &r
	}
	return &c
}
