// Package plan loads benchmark plans: which problems and solvers to cross,
// how many trials, which perturbation levels, and where to store results.
package plan

import (
	"fmt"
	"math"
	"os"

	"github.com/cwbudde/mobench/internal/experiment"
	"github.com/cwbudde/mobench/internal/problem"
	"github.com/cwbudde/mobench/internal/solver"
	"gopkg.in/yaml.v3"
)

// Default values for fields a plan leaves out.
const (
	DefaultName      = "benchmark"
	DefaultSeed      = 1
	DefaultTrials    = 10
	DefaultBatchSize = 100
	DefaultStore     = "results/results.json"
)

// Plan describes one benchmark run.
type Plan struct {
	Name      string                            `yaml:"name" json:"name"`
	Seed      int64                             `yaml:"seed" json:"seed"`
	Problems  []string                          `yaml:"problems" json:"problems"`
	Solvers   []string                          `yaml:"solvers" json:"solvers"`
	Trials    int                               `yaml:"trials" json:"trials"`
	Deltas    []float64                         `yaml:"deltas" json:"deltas"`
	BatchSize int                               `yaml:"batch_size" json:"batchSize"`
	Store     string                            `yaml:"store" json:"store"`
	Common    solver.CommonOptions              `yaml:"common" json:"common"`
	Overrides map[string]solver.SpecificOptions `yaml:"overrides,omitempty" json:"overrides,omitempty"`
}

// Default returns a plan with every optional field set.
func Default() *Plan {
	return &Plan{
		Name:      DefaultName,
		Seed:      DefaultSeed,
		Trials:    DefaultTrials,
		Deltas:    []float64{0},
		BatchSize: DefaultBatchSize,
		Store:     DefaultStore,
		Common:    solver.DefaultCommonOptions(),
	}
}

// Load reads and parses a plan file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse plan file %s: %w", path, err)
	}
	return p, nil
}

// Parse parses a plan from YAML bytes on top of the defaults and validates it.
// This is used for APIs where the plan is provided as payload.
func Parse(data []byte) (*Plan, error) {
	p := Default()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse plan yaml: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	return p, nil
}

// Validate checks the plan's structure.
func (p *Plan) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if p.Trials <= 0 {
		return fmt.Errorf("trials must be positive, got %d", p.Trials)
	}
	if p.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", p.BatchSize)
	}
	if p.Store == "" {
		return fmt.Errorf("store cannot be empty")
	}

	if err := validateNames("problem", p.Problems); err != nil {
		return err
	}
	if err := validateNames("solver", p.Solvers); err != nil {
		return err
	}

	if len(p.Deltas) == 0 {
		return fmt.Errorf("at least one delta must be defined")
	}
	seen := make(map[float64]bool)
	for _, d := range p.Deltas {
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return fmt.Errorf("delta must be finite, got %g", d)
		}
		if d < 0 {
			return fmt.Errorf("delta cannot be negative, got %g", d)
		}
		if seen[d] {
			return fmt.Errorf("duplicate delta: %g", d)
		}
		seen[d] = true
	}

	if err := validateCommon(p.Common); err != nil {
		return fmt.Errorf("common validation failed: %w", err)
	}

	for kind, o := range p.Overrides {
		if !contains(p.Solvers, kind) {
			return fmt.Errorf("overrides given for solver %s which is not in the plan", kind)
		}
		if err := validateSpecific(o); err != nil {
			return fmt.Errorf("overrides for %s: %w", kind, err)
		}
	}
	return nil
}

// Check verifies that every problem and solver in the plan is registered.
func (p *Plan) Check(problems *problem.Registry, solvers *solver.Registry) error {
	known := problems.Names()
	for _, name := range p.Problems {
		if !contains(known, name) {
			return &problem.UnknownProblemError{Name: name}
		}
	}
	kinds := solvers.Kinds()
	for _, kind := range p.Solvers {
		if !contains(kinds, kind) {
			return &solver.UnknownSolverError{Kind: kind}
		}
	}
	return nil
}

// Spec returns the generator input for the plan.
func (p *Plan) Spec() experiment.GenerateSpec {
	return experiment.GenerateSpec{
		Problems:  p.Problems,
		Solvers:   p.Solvers,
		Trials:    p.Trials,
		Deltas:    p.Deltas,
		Common:    p.Common,
		Overrides: p.Overrides,
	}
}

// Size returns the number of experiment instances in the plan.
func (p *Plan) Size() int {
	return p.Spec().Size()
}

func validateNames(what string, names []string) error {
	if len(names) == 0 {
		return fmt.Errorf("at least one %s must be defined", what)
	}
	seen := make(map[string]bool)
	for _, n := range names {
		if n == "" {
			return fmt.Errorf("%s name cannot be empty", what)
		}
		if seen[n] {
			return fmt.Errorf("duplicate %s: %s", what, n)
		}
		seen[n] = true
	}
	return nil
}

func validateCommon(c solver.CommonOptions) error {
	if c.MaxIter <= 0 {
		return fmt.Errorf("max_iter must be positive, got %d", c.MaxIter)
	}
	if c.OptimalityTol < 0 {
		return fmt.Errorf("optimality_tol cannot be negative, got %g", c.OptimalityTol)
	}
	if c.FunctionTol < 0 {
		return fmt.Errorf("function_tol cannot be negative, got %g", c.FunctionTol)
	}
	if c.MaxTime < 0 {
		return fmt.Errorf("max_time cannot be negative, got %s", c.MaxTime)
	}
	if c.LogInterval < 0 {
		return fmt.Errorf("log_interval cannot be negative, got %d", c.LogInterval)
	}

	validCriteria := map[string]bool{
		solver.StopDefault:        true,
		solver.StopFirstOrder:     true,
		solver.StopFunctionChange: true,
	}
	if !validCriteria[c.StopCriterion] {
		return fmt.Errorf("invalid stop_criterion: %s (must be first_order or function_change)", c.StopCriterion)
	}
	return nil
}

func validateSpecific(o solver.SpecificOptions) error {
	positive := map[string]*float64{
		"mu":        o.Mu,
		"sub_tol":   o.SubTol,
		"penalty":   o.Penalty,
		"step_size": o.StepSize,
	}
	for name, v := range positive {
		if v != nil && *v <= 0 {
			return fmt.Errorf("%s must be positive, got %g", name, *v)
		}
	}
	if o.SubMaxIter != nil && *o.SubMaxIter <= 0 {
		return fmt.Errorf("sub_max_iter must be positive, got %d", *o.SubMaxIter)
	}
	if o.PopSize != nil && *o.PopSize < 20 {
		return fmt.Errorf("pop_size must be at least 20, got %d", *o.PopSize)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
