package experiment

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cwbudde/mobench/internal/problem"
	"github.com/cwbudde/mobench/internal/solver"
	"github.com/cwbudde/mobench/internal/store"
	"gonum.org/v1/gonum/mat"
)

// fakeProblem is a two-variable, two-objective problem on [-1,1]^2.
type fakeProblem struct {
	name string
	eval func(x []float64) ([]float64, error)
}

func (p *fakeProblem) Name() string       { return p.name }
func (p *fakeProblem) NumVars() int       { return 2 }
func (p *fakeProblem) NumObjectives() int { return 2 }

func (p *fakeProblem) Bounds() ([]float64, []float64) {
	return []float64{-1, -1}, []float64{1, 1}
}

func (p *fakeProblem) Evaluate(x []float64) ([]float64, error) {
	return p.eval(x)
}

type fakeDiffProblem struct {
	fakeProblem
}

func (p *fakeDiffProblem) Jacobian(x []float64) (*mat.Dense, error) {
	return mat.NewDense(2, 2, []float64{2 * x[0], 0, 0, 2 * x[1]}), nil
}

func quadEval(x []float64) ([]float64, error) {
	return []float64{x[0] * x[0], x[1] * x[1]}, nil
}

func testProblems() *problem.Registry {
	r := problem.NewRegistry()
	r.Register("Quad", func() problem.Problem {
		return &fakeDiffProblem{fakeProblem{name: "Quad", eval: quadEval}}
	})
	r.Register("Flat", func() problem.Problem {
		return &fakeProblem{name: "Flat", eval: quadEval}
	})
	r.Register("Domain", func() problem.Problem {
		return &fakeProblem{name: "Domain", eval: func([]float64) ([]float64, error) {
			return nil, &problem.DomainError{Problem: "Domain", Reason: "always outside"}
		}}
	})
	r.Register("Broken", func() problem.Problem {
		return &fakeProblem{name: "Broken", eval: func([]float64) ([]float64, error) {
			return nil, errors.New("evaluation bug")
		}}
	})
	r.Register("Panics", func() problem.Problem {
		return &fakeProblem{name: "Panics", eval: func([]float64) ([]float64, error) {
			panic("index out of range")
		}}
	})
	return r
}

// jacSeen records which solver calls were handed a Jacobian callback.
type jacSeen struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (j *jacSeen) set(kind string, v bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.seen[kind] = v
}

func (j *jacSeen) get(kind string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.seen[kind]
}

func echo(kind string, seen *jacSeen) solver.GradientFree {
	return func(f solver.EvalFunc, pert solver.Perturbation, delta float64, x0 []float64, opts solver.Options, lower, upper []float64, jac solver.JacFunc) (*solver.Outcome, error) {
		seen.set(kind, jac != nil)
		fx, err := f(x0)
		if err != nil {
			return nil, err
		}
		return &solver.Outcome{
			Success: true, Iterations: 3, FuncEvals: 1,
			FInit: fx, FFinal: fx, Message: "done",
		}, nil
	}
}

func testSolvers(seen *jacSeen) *solver.Registry {
	r := solver.NewRegistry()
	r.Register("Echo", solver.Entry{Convention: solver.ConventionA, Map: solver.MapDF, GradientFree: echo("Echo", seen)})
	r.Register("EchoJac", solver.Entry{Convention: solver.ConventionA, UsesJacobian: true, Map: solver.MapDF, GradientFree: echo("EchoJac", seen)})
	r.Register("Grad", solver.Entry{
		Convention: solver.ConventionB,
		Map:        solver.MapProxGrad,
		GradientBased: func(f solver.EvalFunc, jac solver.JacFunc, pert solver.Perturbation, delta float64, x0 []float64, opts solver.Options, lower, upper []float64) (*solver.Outcome, error) {
			if _, err := jac(x0); err != nil {
				return nil, err
			}
			fx, err := f(x0)
			if err != nil {
				return nil, err
			}
			return &solver.Outcome{Success: true, Iterations: 1, FuncEvals: 1, JacEvals: 1, FInit: fx, FFinal: fx}, nil
		},
	})
	r.Register("NoSuccess", solver.Entry{
		Convention: solver.ConventionA,
		Map:        solver.MapDF,
		GradientFree: func(f solver.EvalFunc, pert solver.Perturbation, delta float64, x0 []float64, opts solver.Options, lower, upper []float64, jac solver.JacFunc) (*solver.Outcome, error) {
			return &solver.Outcome{Success: false, Iterations: 10, FuncEvals: 20, FInit: []float64{1, 1}, FFinal: []float64{1, 1}, Message: "IterationLimit"}, nil
		},
	})
	r.Register("Boom", solver.Entry{
		Convention: solver.ConventionA,
		Map:        solver.MapDF,
		GradientFree: func(f solver.EvalFunc, pert solver.Perturbation, delta float64, x0 []float64, opts solver.Options, lower, upper []float64, jac solver.JacFunc) (*solver.Outcome, error) {
			panic("solver bug")
		},
	})
	r.Register("Short", solver.Entry{
		Convention: solver.ConventionA,
		Map:        solver.MapDF,
		GradientFree: func(f solver.EvalFunc, pert solver.Perturbation, delta float64, x0 []float64, opts solver.Options, lower, upper []float64, jac solver.JacFunc) (*solver.Outcome, error) {
			return &solver.Outcome{Success: true, FInit: []float64{1}, FFinal: []float64{1}}, nil
		},
	})
	return r
}

func identity2() solver.Perturbation {
	return solver.Perturbation{
		mat.NewDense(2, 2, []float64{1, 0, 0, 1}),
		mat.NewDense(2, 2, []float64{1, 0, 0, 1}),
	}
}

func testConfig(kind, problemName string, trial int) Config {
	return Config{
		Solver:       kind,
		Problem:      problemName,
		Trial:        trial,
		Delta:        0.1,
		X0:           []float64{0.5, -0.25},
		SolverConfig: solver.NewConfiguration(solver.DefaultCommonOptions(), solver.SpecificOptions{}),
		Perturbation: identity2(),
	}
}

func testConfigs(n int) []Config {
	configs := make([]Config, n)
	for i := range configs {
		configs[i] = testConfig("Echo", "Quad", i+1)
	}
	return configs
}

func newTestRunner() *Runner {
	return NewRunner(testProblems(), testSolvers(&jacSeen{seen: map[string]bool{}}))
}

// memStore is an in-memory store that records batch sizes and can be told
// to fail after a number of appends.
type memStore struct {
	tree      *store.Tree
	sizes     []int
	failAfter int
}

func newMemStore() *memStore {
	return &memStore{tree: store.NewTree(), failAfter: -1}
}

func (m *memStore) Read() (*store.Tree, error) {
	return m.tree, nil
}

func (m *memStore) Write(t *store.Tree) error {
	m.tree = t
	return nil
}

func (m *memStore) Append(batch *store.Tree) ([]string, error) {
	if m.failAfter >= 0 && len(m.sizes) >= m.failAfter {
		return nil, &store.IOError{Op: "write", Path: "mem", Err: fmt.Errorf("disk full")}
	}
	m.sizes = append(m.sizes, batch.Len())
	return m.tree.Merge(batch), nil
}

func (m *memStore) Reset() error {
	m.tree = store.NewTree()
	return nil
}
