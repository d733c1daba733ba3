package opt

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/cwbudde/mayfly"
)

// MayflyAdapter wraps the external Mayfly library to conform to our Optimizer interface
type MayflyAdapter struct {
	popSize int
	seed    int64
}

// NewMayfly creates a new Mayfly optimizer adapter
func NewMayfly(popSize int, seed int64) Optimizer {
	return &MayflyAdapter{
		popSize: popSize,
		seed:    seed,
	}
}

// stopRun is raised from the objective to abandon a library run that has
// spent its time budget or hit an evaluation error.
type stopRun struct{}

// Run executes the Mayfly optimization using the external library.
// MaxTime is checked before every evaluation; FunctionTol and GradientTol
// are not supported.
func (m *MayflyAdapter) Run(p Problem, x0 []float64, s Settings) (*Result, error) {
	dim := len(x0)
	if len(p.Lower) != dim || len(p.Upper) != dim {
		return nil, fmt.Errorf("mayfly: bounds length mismatch: dim %d, lower %d, upper %d", dim, len(p.Lower), len(p.Upper))
	}
	if m.popSize < 2 {
		return nil, fmt.Errorf("mayfly: population size must be at least 2, got %d", m.popSize)
	}

	config := mayfly.NewDefaultConfig()
	config.ProblemSize = dim
	config.MaxIterations = s.MaxIterations
	config.NPop = m.popSize
	config.NPopF = m.popSize
	config.NC = m.popSize - m.popSize%2
	config.NM = int(math.Round(0.05 * float64(m.popSize)))
	config.Rand = rand.New(rand.NewSource(m.seed))

	g := &guard{}
	cost := g.objective(p.Func)

	// Starting point cost is part of the evaluation budget
	start := append([]float64(nil), x0...)
	Clamp(start, p.Lower, p.Upper)
	startCost := cost(start)
	if g.err != nil {
		return nil, g.err
	}

	tr := &mayflyTracker{
		initEvals: config.NPop + config.NPopF,
		iterEvals: config.NPop + config.NPopF + config.NC + config.NM,
		best:      startCost,
		bestX:     start,
		trace:     s.Trace,
		logEvery:  s.LogEvery,
	}
	if s.MaxTime > 0 {
		tr.deadline = time.Now().Add(s.MaxTime)
	}

	// The library takes scalar bounds, so candidates are clamped into the
	// per-dimension box before evaluation.
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := 0; i < dim; i++ {
		lo = math.Min(lo, p.Lower[i])
		hi = math.Max(hi, p.Upper[i])
	}
	config.LowerBound = lo
	config.UpperBound = hi

	scratch := make([]float64, dim)
	config.ObjectiveFunc = func(x []float64) float64 {
		if g.err != nil || tr.expired() {
			panic(stopRun{})
		}
		copy(scratch, x)
		Clamp(scratch, p.Lower, p.Upper)
		c := cost(scratch)
		tr.observe(scratch, c)
		return c
	}

	err := optimizeMayfly(config)
	if g.err != nil {
		return nil, g.err
	}
	if err != nil {
		return nil, fmt.Errorf("mayfly optimization failed: %w", err)
	}

	status := "IterationLimit"
	if tr.timedOut {
		status = "RuntimeLimit"
	}

	return &Result{
		X:          tr.bestX,
		F:          tr.best,
		Iterations: tr.iterations,
		FuncEvals:  g.funcEvals,
		Converged:  !math.IsNaN(tr.best) && !math.IsInf(tr.best, 0),
		Status:     status,
		Trace:      tr.values,
	}, nil
}

// optimizeMayfly runs the library and turns a stopRun abort into a normal return.
func optimizeMayfly(config *mayfly.Config) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(stopRun); !ok {
				panic(r)
			}
			err = nil
		}
	}()
	_, err = mayfly.Optimize(config)
	return err
}

// mayflyTracker follows the library's evaluation sequence: initEvals for
// the initial populations, then iterEvals per iteration (females, males,
// offspring, mutants).
type mayflyTracker struct {
	initEvals int
	iterEvals int

	evals      int
	iterations int

	best  float64
	bestX []float64

	trace    bool
	values   []float64
	logEvery int

	deadline time.Time
	timedOut bool
}

func (t *mayflyTracker) expired() bool {
	if !t.timedOut && !t.deadline.IsZero() && time.Now().After(t.deadline) {
		t.timedOut = true
	}
	return t.timedOut
}

func (t *mayflyTracker) observe(x []float64, c float64) {
	t.evals++
	if c < t.best {
		t.best = c
		copy(t.bestX, x)
	}

	if t.evals <= t.initEvals || (t.evals-t.initEvals)%t.iterEvals != 0 {
		return
	}
	t.iterations++
	if t.trace {
		t.values = append(t.values, t.best)
	}
	if t.logEvery > 0 && t.iterations%t.logEvery == 0 {
		slog.Debug("Optimizer progress",
			"method", "mayfly",
			"iteration", t.iterations,
			"cost", t.best,
			"func_evals", t.evals,
		)
	}
}
