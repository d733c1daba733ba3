package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/mobench/internal/experiment"
	"github.com/cwbudde/mobench/internal/problem"
	"github.com/cwbudde/mobench/internal/solver"
	"github.com/cwbudde/mobench/internal/store"
)

// progressInterval throttles progress events to 2 per second
const progressInterval = 500 * time.Millisecond

// runJob generates the job's experiment instances and runs them with batch
// saving into the job's store file.
func runJob(ctx context.Context, jm *JobManager, problems *problem.Registry, solvers *solver.Registry, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
	})
	if err != nil {
		return err
	}

	slog.Info("Starting job", "job_id", jobID, "plan", job.Plan.Name, "instances", job.Total, "store", job.Store)

	configs, err := experiment.NewGenerator(problems, job.Plan.Seed).Generate(job.Plan.Spec())
	if err != nil {
		err = fmt.Errorf("failed to generate configs: %w", err)
		markJobFailed(jm, jobID, err)
		return err
	}

	fs, err := store.NewFileStore(job.Store)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}
	journal, err := store.NewJournalWriter(store.JournalPath(job.Store), true)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}
	defer journal.Close()

	// Start progress monitoring goroutine
	progressDone := make(chan struct{})
	go monitorProgress(ctx, jm, jobID, progressDone)

	br := &experiment.BatchRunner{
		Runner:    experiment.NewRunner(problems, solvers),
		Store:     fs,
		BatchSize: job.Plan.BatchSize,
		Journal:   journal,
		OnResult: func(_ int, res *experiment.Result) {
			jm.UpdateJob(jobID, func(j *Job) {
				j.Completed++
				if !res.Success {
					j.Failures++
				}
			})
		},
		OnFlush: func(f experiment.Flush) {
			jm.UpdateJob(jobID, func(j *Job) {
				j.Batches = f.Batch
				j.Collisions += len(f.Collisions)
			})
			broadcastState(jm, jobID)
		},
	}

	start := time.Now()
	_, err = br.Run(configs)
	close(progressDone)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.EndTime = &endTime
	})
	if err != nil {
		return err
	}

	final, _ := jm.GetJob(jobID)
	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", time.Since(start),
		"instances", final.Completed,
		"failures", final.Failures,
		"batches", final.Batches,
	)

	// Broadcast final completion event
	broadcastState(jm, jobID)
	return nil
}

// monitorProgress periodically broadcasts progress events while a job runs
func monitorProgress(ctx context.Context, jm *JobManager, jobID string, done chan struct{}) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !broadcastState(jm, jobID) {
				return
			}
		}
	}
}

// broadcastState sends the job's current counters to stream clients
func broadcastState(jm *JobManager, jobID string) bool {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return false
	}
	jm.progress.publish(job)
	return true
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)
	broadcastState(jm, jobID)
}
