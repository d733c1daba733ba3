package opt

import (
	"math"
	"time"
)

// Objective evaluates a scalar cost. A non-nil error aborts the run and is
// returned unchanged by Optimizer.Run.
type Objective func(x []float64) (float64, error)

// Gradient writes the gradient at x into grad.
type Gradient func(grad, x []float64) error

// Problem is a box-constrained scalar minimization problem.
type Problem struct {
	Func  Objective
	Grad  Gradient // nil for derivative-free methods
	Lower []float64
	Upper []float64
}

// Settings bound a single optimizer run.
type Settings struct {
	MaxIterations int
	MaxTime       time.Duration
	FunctionTol   float64
	GradientTol   float64

	// Trace records the best cost after every major iteration.
	Trace bool
	// LogEvery emits a debug log line every N major iterations (0 disables).
	LogEvery int
}

// Result is the outcome of an optimizer run.
type Result struct {
	X          []float64
	F          float64
	Iterations int
	FuncEvals  int
	GradEvals  int
	Converged  bool
	Status     string
	Trace      []float64
}

// Optimizer defines an optimization algorithm interface
type Optimizer interface {
	// Run minimizes p starting from x0. Evaluation errors stop the run and
	// are returned as is so callers can classify them.
	Run(p Problem, x0 []float64, s Settings) (*Result, error)
}

// guard counts evaluations and latches the first evaluation error. Backends
// whose callbacks cannot return errors see +Inf once an error occurred.
type guard struct {
	err       error
	funcEvals int
	gradEvals int
}

func (g *guard) objective(f Objective) func([]float64) float64 {
	return func(x []float64) float64 {
		if g.err != nil {
			return math.Inf(1)
		}
		g.funcEvals++
		v, err := f(x)
		if err != nil {
			g.err = err
			return math.Inf(1)
		}
		return v
	}
}

func (g *guard) gradient(f Gradient) func(grad, x []float64) {
	return func(grad, x []float64) {
		if g.err != nil {
			for i := range grad {
				grad[i] = 0
			}
			return
		}
		g.gradEvals++
		if err := f(grad, x); err != nil {
			g.err = err
			for i := range grad {
				grad[i] = 0
			}
		}
	}
}

// Clamp projects x onto the box [lower, upper] in place.
func Clamp(x, lower, upper []float64) {
	for i := range x {
		x[i] = math.Max(lower[i], math.Min(upper[i], x[i]))
	}
}
