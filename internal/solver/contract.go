package solver

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
)

// EvalFunc evaluates the problem's objective vector.
type EvalFunc func(x []float64) ([]float64, error)

// JacFunc evaluates the problem's Jacobian (objectives x variables).
type JacFunc func(x []float64) (*mat.Dense, error)

// GradientFree is calling convention A. jac is nil unless the solver kind
// exploits Jacobians and the problem provides one.
type GradientFree func(f EvalFunc, pert Perturbation, delta float64, x0 []float64, opts Options, lower, upper []float64, jac JacFunc) (*Outcome, error)

// GradientBased is calling convention B. jac is always non-nil.
type GradientBased func(f EvalFunc, jac JacFunc, pert Perturbation, delta float64, x0 []float64, opts Options, lower, upper []float64) (*Outcome, error)

// Outcome is what a solver reports back.
type Outcome struct {
	Success    bool
	Iterations int
	FuncEvals  int
	JacEvals   int
	Elapsed    time.Duration
	FInit      []float64
	FFinal     []float64
	Message    string
	Trace      []float64
}

// Perturbation is the shared random payload of one (problem, delta) pair:
// one square matrix per objective. It is read-only once generated.
type Perturbation []*mat.Dense

// Validate checks that there are k square matrices of size n.
func (p Perturbation) Validate(k, n int) error {
	if len(p) != k {
		return fmt.Errorf("perturbation has %d matrices, expected %d", len(p), k)
	}
	for i, a := range p {
		if a == nil {
			return fmt.Errorf("perturbation matrix %d is nil", i)
		}
		r, c := a.Dims()
		if r != n || c != n {
			return fmt.Errorf("perturbation matrix %d is %dx%d, expected %dx%d", i, r, c, n, n)
		}
	}
	return nil
}

// Equal reports whether both payloads hold the same values.
func (p Perturbation) Equal(other Perturbation) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if !mat.Equal(p[i], other[i]) {
			return false
		}
	}
	return true
}

// L1 returns ||A_i x||_1.
func (p Perturbation) L1(i int, x []float64) float64 {
	var y mat.VecDense
	y.MulVec(p[i], mat.NewVecDense(len(x), x))
	var sum float64
	for j := 0; j < y.Len(); j++ {
		sum += math.Abs(y.AtVec(j))
	}
	return sum
}
