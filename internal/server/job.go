package server

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cwbudde/mobench/internal/plan"
	"github.com/google/uuid"
)

// JobState represents the current state of a job
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
)

// Done reports whether the state is terminal
func (s JobState) Done() bool {
	return s == StateCompleted || s == StateFailed
}

// Job is one benchmark plan executed in the background
type Job struct {
	ID    string     `json:"id"`
	State JobState   `json:"state"`
	Plan  *plan.Plan `json:"plan"`
	Store string     `json:"store"`

	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Failures   int `json:"failures"`
	Batches    int `json:"batches"`
	Collisions int `json:"collisions"`

	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// JobManager manages the lifecycle of jobs
type JobManager struct {
	mu       sync.RWMutex
	jobs     map[string]*Job
	progress *progressHub
}

// NewJobManager creates a new JobManager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:     make(map[string]*Job),
		progress: newProgressHub(),
	}
}

// CreateJob creates a new pending job for p. Its store file is placed at
// <baseDir>/jobs/<id>/<base name of the plan's store>.
func (jm *JobManager) CreateJob(p *plan.Plan, baseDir string) Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	id := uuid.New().String()
	job := &Job{
		ID:        id,
		State:     StatePending,
		Plan:      p,
		Store:     filepath.Join(baseDir, "jobs", id, filepath.Base(p.Store)),
		Total:     p.Size(),
		StartTime: time.Now(),
	}

	jm.jobs[job.ID] = job
	return *job
}

// GetJob returns a snapshot of the job with the given ID
func (jm *JobManager) GetJob(id string) (Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists {
		return Job{}, false
	}
	return *job, true
}

// ListJobs returns snapshots of all jobs, oldest first
func (jm *JobManager) ListJobs() []Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		jobs = append(jobs, *job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartTime.Before(jobs[j].StartTime)
	})
	return jobs
}

// UpdateJob atomically updates a job using the provided function
func (jm *JobManager) UpdateJob(id string, updateFn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	updateFn(job)
	return nil
}

// GetRunningJobs returns all jobs currently in the running state
func (jm *JobManager) GetRunningJobs() []Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	runningJobs := make([]Job, 0)
	for _, job := range jm.jobs {
		if job.State == StateRunning {
			runningJobs = append(runningJobs, *job)
		}
	}
	return runningJobs
}
