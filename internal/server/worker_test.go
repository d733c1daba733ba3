package server

import (
	"context"
	"errors"
	"testing"

	"github.com/cwbudde/mobench/internal/experiment"
	"github.com/cwbudde/mobench/internal/problem"
	"github.com/cwbudde/mobench/internal/solver"
	"github.com/cwbudde/mobench/internal/store"
)

func TestRunJob_Success(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(testPlan(t), t.TempDir())

	err := runJob(context.Background(), jm, problem.Builtin(), solver.Builtin(), job.ID)
	if err != nil {
		t.Fatalf("runJob should succeed: %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateCompleted {
		t.Errorf("Job should be completed, got %s", updated.State)
	}
	if updated.Completed != 12 {
		t.Errorf("Expected 12 completed instances, got %d", updated.Completed)
	}
	// 12 instances in batches of 4
	if updated.Batches != 3 {
		t.Errorf("Expected 3 batches, got %d", updated.Batches)
	}
	if updated.EndTime == nil {
		t.Error("EndTime should be set")
	}

	fs, _ := store.NewFileStore(updated.Store)
	results, err := experiment.LoadResults(fs, experiment.Filter{})
	if err != nil {
		t.Fatalf("Failed to load stored results: %v", err)
	}
	if len(results) != 12 {
		t.Errorf("Expected 12 stored results, got %d", len(results))
	}
}

// domainProblem fails every evaluation with a domain violation.
type domainProblem struct{}

func (domainProblem) Name() string       { return "Wall" }
func (domainProblem) NumVars() int       { return 2 }
func (domainProblem) NumObjectives() int { return 2 }
func (domainProblem) Bounds() ([]float64, []float64) {
	return []float64{0, 0}, []float64{1, 1}
}
func (domainProblem) Evaluate([]float64) ([]float64, error) {
	return nil, &problem.DomainError{Problem: "Wall", Reason: "closed"}
}

func TestRunJob_CountsFailures(t *testing.T) {
	problems := problem.NewRegistry()
	problems.Register("Wall", func() problem.Problem { return domainProblem{} })

	p := testPlan(t)
	p.Problems = []string{"Wall"}
	p.Solvers = []string{solver.KindPDFPM}

	jm := NewJobManager()
	job := jm.CreateJob(p, t.TempDir())

	if err := runJob(context.Background(), jm, problems, solver.Builtin(), job.ID); err != nil {
		t.Fatalf("runJob should succeed even when every instance fails: %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateCompleted {
		t.Errorf("Job should be completed, got %s", updated.State)
	}
	if updated.Failures != updated.Total || updated.Total != 6 {
		t.Errorf("Expected 6 failures out of 6, got %d of %d", updated.Failures, updated.Total)
	}
}

func TestRunJob_UnknownProblem(t *testing.T) {
	p := testPlan(t)
	p.Problems = []string{"Missing"}

	jm := NewJobManager()
	job := jm.CreateJob(p, t.TempDir())

	err := runJob(context.Background(), jm, problem.Builtin(), solver.Builtin(), job.ID)
	var upe *problem.UnknownProblemError
	if !errors.As(err, &upe) {
		t.Errorf("Expected UnknownProblemError, got %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateFailed {
		t.Errorf("Job should be failed, got %s", updated.State)
	}
	if updated.Error == "" {
		t.Error("Error message should be set")
	}
}

func TestRunJob_NotFound(t *testing.T) {
	jm := NewJobManager()
	if err := runJob(context.Background(), jm, problem.Builtin(), solver.Builtin(), "nope"); err == nil {
		t.Error("Expected error for unknown job")
	}
}
