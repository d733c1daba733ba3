package experiment

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/cwbudde/mobench/internal/problem"
	"github.com/cwbudde/mobench/internal/solver"
	"gonum.org/v1/gonum/mat"
)

// Runner executes single experiment instances.
type Runner struct {
	Problems *problem.Registry
	Solvers  *solver.Registry
}

// NewRunner creates a runner over the given registries.
func NewRunner(problems *problem.Registry, solvers *solver.Registry) *Runner {
	return &Runner{Problems: problems, Solvers: solvers}
}

// Run executes cfg and never fails: every error, including panics in the
// problem or the solver, is turned into a failed Result.
func (r *Runner) Run(cfg Config) (res *Result) {
	k := 0
	defer func() {
		if rec := recover(); rec != nil {
			res = r.fail(cfg, k, &SolverError{
				Solver: cfg.Solver, Problem: cfg.Problem, Trial: cfg.Trial, Delta: cfg.Delta,
				Err: fmt.Errorf("panic: %v", rec),
			})
		}
	}()

	p, err := r.Problems.New(cfg.Problem)
	if err != nil {
		return r.fail(cfg, k, err)
	}
	k = p.NumObjectives()
	n := p.NumVars()

	opts, err := r.Solvers.Options(cfg.Solver, cfg.SolverConfig)
	if err != nil {
		return r.fail(cfg, k, err)
	}
	entry, err := r.Solvers.Lookup(cfg.Solver)
	if err != nil {
		return r.fail(cfg, k, err)
	}

	if len(cfg.X0) != n {
		return r.fail(cfg, k, fmt.Errorf("starting point has %d entries, %s has %d variables: %w", len(cfg.X0), cfg.Problem, n, solver.ErrConfiguration))
	}
	if err := cfg.Perturbation.Validate(k, n); err != nil {
		return r.fail(cfg, k, fmt.Errorf("invalid perturbation: %v: %w", err, solver.ErrConfiguration))
	}

	lower, upper := p.Bounds()
	x0 := append([]float64(nil), cfg.X0...)
	eval := evalFunc(p)

	var out *solver.Outcome
	switch entry.Convention {
	case solver.ConventionA:
		var jac solver.JacFunc
		if d, ok := p.(problem.Differentiable); ok && entry.UsesJacobian {
			jac = jacFunc(d)
		}
		out, err = entry.GradientFree(eval, cfg.Perturbation, cfg.Delta, x0, opts, lower, upper, jac)
	case solver.ConventionB:
		d, ok := p.(problem.Differentiable)
		if !ok {
			return r.fail(cfg, k, &solver.UnsupportedSolverError{
				Kind:   cfg.Solver,
				Reason: cfg.Problem + " has no Jacobian",
			})
		}
		out, err = entry.GradientBased(eval, jacFunc(d), cfg.Perturbation, cfg.Delta, x0, opts, lower, upper)
	default:
		err = &solver.UnsupportedSolverError{Kind: cfg.Solver, Reason: "unknown calling convention"}
	}

	if err != nil {
		if !errors.Is(err, problem.ErrDomain) && !errors.Is(err, solver.ErrConfiguration) {
			err = &SolverError{Solver: cfg.Solver, Problem: cfg.Problem, Trial: cfg.Trial, Delta: cfg.Delta, Err: err}
		}
		return r.fail(cfg, k, err)
	}
	if out == nil {
		return r.fail(cfg, k, &SolverError{
			Solver: cfg.Solver, Problem: cfg.Problem, Trial: cfg.Trial, Delta: cfg.Delta,
			Err: errors.New("solver returned no outcome"),
		})
	}
	if !out.Success {
		return r.fail(cfg, k, fmt.Errorf("%w: %s", ErrUnsuccessful, out.Message))
	}
	if len(out.FInit) != k || len(out.FFinal) != k {
		return r.fail(cfg, k, &SolverError{
			Solver: cfg.Solver, Problem: cfg.Problem, Trial: cfg.Trial, Delta: cfg.Delta,
			Err: fmt.Errorf("objective vectors have lengths %d and %d, expected %d", len(out.FInit), len(out.FFinal), k),
		})
	}

	return &Result{
		Solver:     cfg.Solver,
		Problem:    cfg.Problem,
		Trial:      cfg.Trial,
		Delta:      cfg.Delta,
		X0:         copyVector(cfg.X0),
		Success:    true,
		Iterations: out.Iterations,
		FuncEvals:  out.FuncEvals,
		JacEvals:   out.JacEvals,
		Elapsed:    out.Elapsed,
		FInit:      copyVector(out.FInit),
		FFinal:     copyVector(out.FFinal),
		Message:    out.Message,
		Trace:      copyVector(out.Trace),
	}
}

// fail builds the fixed-shape failure record for cfg and logs the cause.
func (r *Runner) fail(cfg Config, k int, cause error) *Result {
	attrs := []any{
		"solver", cfg.Solver,
		"problem", cfg.Problem,
		"trial", cfg.Trial,
		"delta", cfg.Delta,
		"error", cause,
	}
	switch {
	case errors.Is(cause, problem.ErrDomain):
		slog.Warn("Domain violation", attrs...)
	case errors.Is(cause, ErrUnsuccessful):
		slog.Warn("Solver did not succeed", attrs...)
	default:
		slog.Error("Experiment failed", attrs...)
	}

	return &Result{
		Solver:  cfg.Solver,
		Problem: cfg.Problem,
		Trial:   cfg.Trial,
		Delta:   cfg.Delta,
		X0:      copyVector(cfg.X0),
		FInit:   nanVector(k),
		FFinal:  nanVector(k),
		Message: cause.Error(),
		Cause:   cause,
	}
}

// RunAll runs configs in order.
func (r *Runner) RunAll(configs []Config) []*Result {
	results := make([]*Result, 0, len(configs))
	for _, cfg := range configs {
		results = append(results, r.Run(cfg))
	}
	return results
}

// RunExperiment runs configs in memory against the built-in registries.
func RunExperiment(configs []Config) []*Result {
	return NewRunner(problem.Builtin(), solver.Builtin()).RunAll(configs)
}

// evalFunc wraps p.Evaluate. Domain violations pass through unchanged;
// any other error or panic becomes an EvaluationError.
func evalFunc(p problem.Problem) solver.EvalFunc {
	k := p.NumObjectives()
	return func(x []float64) (fx []float64, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				fx, err = nil, &EvaluationError{Problem: p.Name(), Op: "evaluate", Err: fmt.Errorf("panic: %v", rec)}
			}
		}()

		fx, err = p.Evaluate(x)
		if err != nil {
			if errors.Is(err, problem.ErrDomain) {
				return nil, err
			}
			return nil, &EvaluationError{Problem: p.Name(), Op: "evaluate", Err: err}
		}
		if len(fx) != k {
			return nil, &EvaluationError{Problem: p.Name(), Op: "evaluate", Err: fmt.Errorf("got %d objectives, expected %d", len(fx), k)}
		}
		return fx, nil
	}
}

func jacFunc(p problem.Differentiable) solver.JacFunc {
	return func(x []float64) (j *mat.Dense, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				j, err = nil, &EvaluationError{Problem: p.Name(), Op: "jacobian", Err: fmt.Errorf("panic: %v", rec)}
			}
		}()

		j, err = p.Jacobian(x)
		if err != nil {
			if errors.Is(err, problem.ErrDomain) {
				return nil, err
			}
			return nil, &EvaluationError{Problem: p.Name(), Op: "jacobian", Err: err}
		}
		return j, nil
	}
}
