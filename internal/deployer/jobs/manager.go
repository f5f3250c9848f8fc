package jobs

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anshumantekriwal/kadena-agents/pkg/models"
)

const (
	// JobTTL is how long finished jobs are retained.
	JobTTL = 1 * time.Hour

	cleanupInterval = 10 * time.Minute
)

var (
	// ErrJobNotFound is returned when a job is not found.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobAlreadyRunning is returned when the same agent already has a deployment in flight.
	ErrJobAlreadyRunning = errors.New("deployment already running for agent")
)

// Manager tracks deployment jobs in memory.
type Manager struct {
	mu   sync.RWMutex
	jobs map[JobID]*Job
	now  func() time.Time
}

// NewManager creates a new job manager. Finished jobs older than JobTTL are
// purged in the background until ctx is cancelled.
func NewManager(ctx context.Context) *Manager {
	m := &Manager{
		jobs: make(map[JobID]*Job),
		now:  func() time.Time { return time.Now().UTC() },
	}
	go m.cleanupLoop(ctx)
	return m
}

// CreateJob registers a pending deployment of agentID.
// Returns ErrJobAlreadyRunning if that agent already has an unfinished job.
func (m *Manager) CreateJob(agentID string, totalSteps int) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, job := range m.jobs {
		if job.AgentID == agentID && !job.IsTerminal() {
			return nil, ErrJobAlreadyRunning
		}
	}

	now := m.now()
	job := &Job{
		ID:        JobID(uuid.NewString()),
		AgentID:   agentID,
		Status:    JobStatusPending,
		Progress:  JobProgress{Completed: []string{}, Total: totalSteps},
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.jobs[job.ID] = job
	return job.clone(), nil
}

// GetJob retrieves a copy of a job by ID.
func (m *Manager) GetJob(id JobID) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job.clone(), nil
}

// GetRunningJob returns the unfinished job of an agent, if any.
func (m *Manager) GetRunningJob(agentID string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, job := range m.jobs {
		if job.AgentID == agentID && !job.IsTerminal() {
			return job.clone()
		}
	}
	return nil
}

// ListJobs returns copies of every retained job, newest first.
func (m *Manager) ListJobs() []*Job {
	m.mu.RLock()
	out := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, job.clone())
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Job) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

// StartJob transitions a job to running status.
func (m *Manager) StartJob(id JobID) error {
	return m.update(id, func(job *Job) {
		job.Status = JobStatusRunning
	})
}

// StartStep records the step now in flight.
func (m *Manager) StartStep(id JobID, step string) error {
	return m.update(id, func(job *Job) {
		job.Progress.Step = step
	})
}

// CompleteStep moves step to the completed list.
func (m *Manager) CompleteStep(id JobID, step string) error {
	return m.update(id, func(job *Job) {
		job.Progress.Completed = append(job.Progress.Completed, step)
		if job.Progress.Step == step {
			job.Progress.Step = ""
		}
	})
}

// CompleteJob marks a job as completed with a result.
func (m *Manager) CompleteJob(id JobID, result *models.DeploymentResult) error {
	return m.update(id, func(job *Job) {
		job.Status = JobStatusCompleted
		job.Progress.Step = ""
		job.Result = result
	})
}

// FailJob marks a job as failed. The step in flight is kept so callers can
// see where the run stopped.
func (m *Manager) FailJob(id JobID, errMsg string) error {
	return m.update(id, func(job *Job) {
		job.Status = JobStatusFailed
		job.Error = errMsg
	})
}

func (m *Manager) update(id JobID, fn func(*Job)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	fn(job)
	job.UpdatedAt = m.now()
	return nil
}

// cleanupLoop periodically removes old finished jobs.
func (m *Manager) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

func (m *Manager) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-JobTTL)
	for id, job := range m.jobs {
		if job.IsTerminal() && job.UpdatedAt.Before(cutoff) {
			delete(m.jobs, id)
		}
	}
}
