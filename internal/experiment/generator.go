package experiment

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/mobench/internal/problem"
	"github.com/cwbudde/mobench/internal/solver"
	"gonum.org/v1/gonum/mat"
)

// GenerateSpec lists what to cross into experiment instances.
type GenerateSpec struct {
	Problems []string
	Solvers  []string
	Trials   int
	Deltas   []float64
	Common   solver.CommonOptions
	// Overrides holds solver-specific options per solver kind. Kinds
	// without an entry get empty overrides.
	Overrides map[string]solver.SpecificOptions
}

func (s GenerateSpec) validate() error {
	if s.Trials < 1 {
		return fmt.Errorf("trial count must be positive, got %d", s.Trials)
	}
	if err := unique("problem", s.Problems); err != nil {
		return err
	}
	if err := unique("solver", s.Solvers); err != nil {
		return err
	}
	seen := make(map[float64]bool, len(s.Deltas))
	for _, d := range s.Deltas {
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return fmt.Errorf("perturbation level must be finite, got %g", d)
		}
		if d < 0 {
			return fmt.Errorf("perturbation level must be non-negative, got %g", d)
		}
		if seen[d] {
			return fmt.Errorf("duplicate perturbation level: %g", d)
		}
		seen[d] = true
	}
	return nil
}

func unique(what string, names []string) error {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return fmt.Errorf("duplicate %s: %s", what, n)
		}
		seen[n] = true
	}
	return nil
}

// Size returns the number of configs Generate produces for s.
func (s GenerateSpec) Size() int {
	return len(s.Problems) * len(s.Deltas) * len(s.Solvers) * s.Trials
}

// Generator expands a GenerateSpec into experiment instances.
type Generator struct {
	Problems *problem.Registry
	Rand     *rand.Rand
}

// NewGenerator creates a generator drawing from a source seeded with seed.
func NewGenerator(problems *problem.Registry, seed int64) *Generator {
	return &Generator{
		Problems: problems,
		Rand:     rand.New(rand.NewSource(seed)),
	}
}

// Generate returns |problems| x |deltas| x |solvers| x trials configs,
// ordered by problem, delta, solver, trial.
//
// Starting points are drawn once per problem and perturbation matrices once
// per (problem, delta); every solver in that group receives the same values.
// Solver kinds are not checked here: an unknown kind fails at run time as a
// failed result.
func (g *Generator) Generate(spec GenerateSpec) ([]Config, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}

	configs := make([]Config, 0, spec.Size())
	for _, name := range spec.Problems {
		p, err := g.Problems.New(name)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve problem: %w", err)
		}
		n, k := p.NumVars(), p.NumObjectives()
		lower, upper := p.Bounds()

		starts := make([][]float64, spec.Trials)
		for i := range starts {
			starts[i] = g.uniform(lower, upper)
		}

		for _, delta := range spec.Deltas {
			pert := g.perturbation(k, n)

			for _, kind := range spec.Solvers {
				cfg := solver.NewConfiguration(spec.Common, spec.Overrides[kind])

				for trial, x0 := range starts {
					configs = append(configs, Config{
						Solver:       kind,
						Problem:      name,
						Trial:        trial + 1,
						Delta:        delta,
						X0:           x0,
						SolverConfig: cfg,
						Perturbation: pert,
					})
				}
			}
		}
	}
	return configs, nil
}

func (g *Generator) uniform(lower, upper []float64) []float64 {
	x := make([]float64, len(lower))
	for i := range x {
		x[i] = lower[i] + g.Rand.Float64()*(upper[i]-lower[i])
	}
	return x
}

// perturbation draws k standard normal n x n matrices.
func (g *Generator) perturbation(k, n int) solver.Perturbation {
	pert := make(solver.Perturbation, k)
	for i := range pert {
		data := make([]float64, n*n)
		for j := range data {
			data[j] = g.Rand.NormFloat64()
		}
		pert[i] = mat.NewDense(n, n, data)
	}
	return pert
}

// GenerateExperimentConfigs generates configs for the built-in problems.
func GenerateExperimentConfigs(problems, solvers []string, trials int, deltas []float64, common solver.CommonOptions, overrides map[string]solver.SpecificOptions, seed int64) ([]Config, error) {
	return NewGenerator(problem.Builtin(), seed).Generate(GenerateSpec{
		Problems:  problems,
		Solvers:   solvers,
		Trials:    trials,
		Deltas:    deltas,
		Common:    common,
		Overrides: overrides,
	})
}
