// Package problem defines the test-problem contract consumed by the benchmark
// harness and a small library of standard multiobjective test problems.
package problem

import (
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// Problem is a box-constrained multiobjective test problem.
type Problem interface {
	Name() string
	NumVars() int
	NumObjectives() int

	// Bounds returns the lower and upper box bounds, both of length NumVars.
	Bounds() (lower, upper []float64)

	// Evaluate returns the objective vector at x. Points outside the
	// problem's natural domain yield an error matching ErrDomain.
	Evaluate(x []float64) ([]float64, error)
}

// Differentiable is implemented by problems with an analytic Jacobian.
type Differentiable interface {
	Problem

	// Jacobian returns the NumObjectives x NumVars Jacobian at x, or an
	// error matching ErrDomain.
	Jacobian(x []float64) (*mat.Dense, error)
}

// Constructor builds a fresh problem instance.
type Constructor func() Problem

// Registry maps problem identifiers to constructors.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Register adds a constructor under name. Registering a name twice is an error.
func (r *Registry) Register(name string, ctor Constructor) error {
	if name == "" {
		return fmt.Errorf("problem name cannot be empty")
	}
	if ctor == nil {
		return fmt.Errorf("constructor for %s cannot be nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ctors[name]; exists {
		return fmt.Errorf("problem already registered: %s", name)
	}
	r.ctors[name] = ctor
	return nil
}

// New instantiates the named problem.
func (r *Registry) New(name string) (Problem, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &UnknownProblemError{Name: name}
	}

	p := ctor()
	if p == nil {
		return nil, fmt.Errorf("constructor for %s returned nil", name)
	}
	return p, nil
}

// Names returns the registered identifiers in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtin returns a registry populated with the bundled test problems.
func Builtin() *Registry {
	r := NewRegistry()
	r.ctors["ZDT1"] = func() Problem { return NewZDT1(30) }
	r.ctors["ZDT2"] = func() Problem { return NewZDT2(30) }
	r.ctors["ZDT3"] = func() Problem { return NewZDT3(30) }
	r.ctors["JOS1"] = func() Problem { return NewJOS1(5) }
	r.ctors["SP1"] = func() Problem { return NewSP1() }
	return r
}
