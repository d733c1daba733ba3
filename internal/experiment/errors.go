package experiment

import (
	"errors"
	"fmt"
)

// ErrUnsuccessful marks results whose solver returned without success.
var ErrUnsuccessful = errors.New("solver reported non-success")

// EvaluationError is a failure inside a problem callback that is not a
// domain violation, including recovered panics.
type EvaluationError struct {
	Problem string
	Op      string
	Err     error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Problem, e.Op, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// SolverError is an unexpected failure of a solver call. It carries the
// identifying fields needed to reproduce the instance.
type SolverError struct {
	Solver  string
	Problem string
	Trial   int
	Delta   float64
	Err     error
}

func (e *SolverError) Error() string {
	return fmt.Sprintf("solver %s on %s (trial %d, delta %g): %v", e.Solver, e.Problem, e.Trial, e.Delta, e.Err)
}

func (e *SolverError) Unwrap() error {
	return e.Err
}
