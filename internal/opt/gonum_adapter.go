package opt

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// Method names a gonum local optimization method.
type Method string

const (
	MethodNelderMead      Method = "nelder-mead"
	MethodGradientDescent Method = "gradient"
	MethodLBFGS           Method = "lbfgs"
)

// GonumAdapter runs one of gonum's local methods. Bounds are not enforced
// here; callers fold them into the objective.
type GonumAdapter struct {
	method      Method
	simplexSize float64
	memory      int
}

// NewNelderMead creates a derivative-free simplex optimizer. simplexSize
// sets the edge length of the initial simplex (0 uses gonum's default).
func NewNelderMead(simplexSize float64) Optimizer {
	return &GonumAdapter{method: MethodNelderMead, simplexSize: simplexSize}
}

// NewGradientDescent creates a steepest-descent optimizer with line search.
func NewGradientDescent() Optimizer {
	return &GonumAdapter{method: MethodGradientDescent}
}

// NewLBFGS creates a limited-memory BFGS optimizer keeping memory updates
// (0 uses gonum's default).
func NewLBFGS(memory int) Optimizer {
	return &GonumAdapter{method: MethodLBFGS, memory: memory}
}

func (a *GonumAdapter) gonumMethod() optimize.Method {
	switch a.method {
	case MethodGradientDescent:
		return &optimize.GradientDescent{}
	case MethodLBFGS:
		return &optimize.LBFGS{Store: a.memory}
	default:
		return &optimize.NelderMead{SimplexSize: a.simplexSize}
	}
}

func (a *GonumAdapter) needsGradient() bool {
	return a.method != MethodNelderMead
}

// Run executes the gonum minimization.
func (a *GonumAdapter) Run(p Problem, x0 []float64, s Settings) (*Result, error) {
	if a.needsGradient() && p.Grad == nil {
		return nil, fmt.Errorf("gonum %s requires a gradient", a.method)
	}

	g := &guard{}
	problem := optimize.Problem{Func: g.objective(p.Func)}
	if p.Grad != nil && a.needsGradient() {
		problem.Grad = g.gradient(p.Grad)
	}

	rec := &recorder{method: a.method, every: s.LogEvery, trace: s.Trace}
	settings := &optimize.Settings{
		MajorIterations: s.MaxIterations,
		Runtime:         s.MaxTime,
		Recorder:        rec,
	}
	if s.GradientTol > 0 {
		settings.GradientThreshold = s.GradientTol
	}
	settings.Converger = converger(s)

	res, err := optimize.Minimize(problem, x0, settings, a.gonumMethod())
	if g.err != nil {
		return nil, g.err
	}
	if res == nil {
		return nil, fmt.Errorf("gonum %s failed: %w", a.method, err)
	}

	x := make([]float64, len(res.X))
	copy(x, res.X)

	return &Result{
		X:          x,
		F:          res.F,
		Iterations: res.Stats.MajorIterations,
		FuncEvals:  g.funcEvals,
		GradEvals:  g.gradEvals,
		Converged:  (err == nil || isBudgetStatus(res.Status)) && !math.IsNaN(res.F) && !math.IsInf(res.F, 0),
		Status:     res.Status.String(),
		Trace:      rec.values,
	}, nil
}

// converger maps FunctionTol onto a gonum converger. A zero tolerance
// disables function-change termination instead of falling back to the
// library default.
func converger(s Settings) optimize.Converger {
	if s.FunctionTol > 0 {
		return &optimize.FunctionConverge{
			Absolute:   s.FunctionTol,
			Iterations: 20,
		}
	}
	return optimize.NeverTerminate{}
}

// isBudgetStatus reports statuses that stop a healthy run on its budget.
func isBudgetStatus(status optimize.Status) bool {
	switch status {
	case optimize.IterationLimit, optimize.RuntimeLimit, optimize.FunctionEvaluationLimit:
		return true
	}
	return false
}

// recorder implements optimize.Recorder for progress logging and traces.
type recorder struct {
	method Method
	every  int
	trace  bool
	values []float64
}

func (r *recorder) Init() error {
	return nil
}

func (r *recorder) Record(loc *optimize.Location, op optimize.Operation, stats *optimize.Stats) error {
	if op&optimize.MajorIteration == 0 {
		return nil
	}
	if r.trace {
		r.values = append(r.values, loc.F)
	}
	if r.every > 0 && stats.MajorIterations%r.every == 0 {
		slog.Debug("Optimizer progress",
			"method", r.method,
			"iteration", stats.MajorIterations,
			"cost", loc.F,
			"func_evals", stats.FuncEvaluations,
		)
	}
	return nil
}
