package problem

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// JOS1 is the convex bi-objective problem of Jin, Olhofer and Sendhoff:
// f1 = 0.5*|x|^2, f2 = 0.5*|x-2|^2 on [-5,5]^n.
type JOS1 struct {
	n int
}

func NewJOS1(n int) *JOS1 { return &JOS1{n: n} }

func (p *JOS1) Name() string       { return "JOS1" }
func (p *JOS1) NumVars() int       { return p.n }
func (p *JOS1) NumObjectives() int { return 2 }

func (p *JOS1) Bounds() ([]float64, []float64) {
	return fill(p.n, -5), fill(p.n, 5)
}

func (p *JOS1) Evaluate(x []float64) ([]float64, error) {
	if len(x) != p.n {
		return nil, fmt.Errorf("JOS1: expected %d variables, got %d", p.n, len(x))
	}
	var f1, f2 float64
	for _, v := range x {
		f1 += v * v
		f2 += (v - 2) * (v - 2)
	}
	return []float64{0.5 * f1, 0.5 * f2}, nil
}

func (p *JOS1) Jacobian(x []float64) (*mat.Dense, error) {
	if len(x) != p.n {
		return nil, fmt.Errorf("JOS1: expected %d variables, got %d", p.n, len(x))
	}
	jac := mat.NewDense(2, p.n, nil)
	for i, v := range x {
		jac.Set(0, i, v)
		jac.Set(1, i, v-2)
	}
	return jac, nil
}

// SP1 is the two-variable quadratic problem
// f1 = (x1-1)^2 + (x1-x2)^2, f2 = (x2-3)^2 + (x1-x2)^2 on [-10,10]^2.
type SP1 struct{}

func NewSP1() *SP1 { return &SP1{} }

func (p *SP1) Name() string       { return "SP1" }
func (p *SP1) NumVars() int       { return 2 }
func (p *SP1) NumObjectives() int { return 2 }

func (p *SP1) Bounds() ([]float64, []float64) {
	return fill(2, -10), fill(2, 10)
}

func (p *SP1) Evaluate(x []float64) ([]float64, error) {
	if len(x) != 2 {
		return nil, fmt.Errorf("SP1: expected 2 variables, got %d", len(x))
	}
	d := x[0] - x[1]
	return []float64{
		(x[0]-1)*(x[0]-1) + d*d,
		(x[1]-3)*(x[1]-3) + d*d,
	}, nil
}

func (p *SP1) Jacobian(x []float64) (*mat.Dense, error) {
	if len(x) != 2 {
		return nil, fmt.Errorf("SP1: expected 2 variables, got %d", len(x))
	}
	d := x[0] - x[1]
	return mat.NewDense(2, 2, []float64{
		2*(x[0]-1) + 2*d, -2 * d,
		2 * d, 2*(x[1]-3) - 2*d,
	}), nil
}

func fill(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}
