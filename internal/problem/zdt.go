package problem

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// zdtVariant selects the second objective of the ZDT family.
type zdtVariant int

const (
	zdt1 zdtVariant = iota + 1
	zdt2
	zdt3
)

// ZDT is one of the Zitzler-Deb-Thiele bi-objective problems on [0,1]^n.
type ZDT struct {
	n       int
	variant zdtVariant
}

// NewZDT1 creates ZDT1 with n variables (convex front).
func NewZDT1(n int) *ZDT { return &ZDT{n: n, variant: zdt1} }

// NewZDT2 creates ZDT2 with n variables (concave front).
func NewZDT2(n int) *ZDT { return &ZDT{n: n, variant: zdt2} }

// NewZDT3 creates ZDT3 with n variables (disconnected front).
func NewZDT3(n int) *ZDT { return &ZDT{n: n, variant: zdt3} }

func (z *ZDT) Name() string       { return fmt.Sprintf("ZDT%d", z.variant) }
func (z *ZDT) NumVars() int       { return z.n }
func (z *ZDT) NumObjectives() int { return 2 }

func (z *ZDT) Bounds() ([]float64, []float64) {
	lower := make([]float64, z.n)
	upper := make([]float64, z.n)
	for i := range upper {
		upper[i] = 1
	}
	return lower, upper
}

// g is the distance function 1 + 9/(n-1) * sum(x[1:]).
func (z *ZDT) g(x []float64) float64 {
	if z.n == 1 {
		return 1
	}
	var sum float64
	for _, v := range x[1:] {
		sum += v
	}
	return 1 + 9*sum/float64(z.n-1)
}

func (z *ZDT) dg() float64 {
	if z.n == 1 {
		return 0
	}
	return 9 / float64(z.n-1)
}

func (z *ZDT) check(x []float64) (f1, g float64, err error) {
	if len(x) != z.n {
		return 0, 0, fmt.Errorf("%s: expected %d variables, got %d", z.Name(), z.n, len(x))
	}
	f1 = x[0]
	g = z.g(x)
	if f1 < 0 {
		return 0, 0, &DomainError{Problem: z.Name(), Reason: fmt.Sprintf("x1 = %g is negative", f1)}
	}
	if g <= 0 {
		return 0, 0, &DomainError{Problem: z.Name(), Reason: fmt.Sprintf("g = %g is not positive", g)}
	}
	return f1, g, nil
}

func (z *ZDT) Evaluate(x []float64) ([]float64, error) {
	f1, g, err := z.check(x)
	if err != nil {
		return nil, err
	}

	var f2 float64
	switch z.variant {
	case zdt1:
		f2 = g - math.Sqrt(f1*g)
	case zdt2:
		f2 = g * (1 - (f1/g)*(f1/g))
	case zdt3:
		f2 = g - math.Sqrt(f1*g) - f1*math.Sin(10*math.Pi*f1)
	}
	return []float64{f1, f2}, nil
}

func (z *ZDT) Jacobian(x []float64) (*mat.Dense, error) {
	f1, g, err := z.check(x)
	if err != nil {
		return nil, err
	}
	// sqrt(g/f1) is unbounded at x1 = 0
	if z.variant != zdt2 && f1 == 0 {
		return nil, &DomainError{Problem: z.Name(), Reason: "Jacobian undefined at x1 = 0"}
	}

	jac := mat.NewDense(2, z.n, nil)
	jac.Set(0, 0, 1)

	dg := z.dg()
	switch z.variant {
	case zdt1:
		jac.Set(1, 0, -0.5*math.Sqrt(g/f1))
		for i := 1; i < z.n; i++ {
			jac.Set(1, i, dg*(1-0.5*math.Sqrt(f1/g)))
		}
	case zdt2:
		r := f1 / g
		jac.Set(1, 0, -2*r)
		for i := 1; i < z.n; i++ {
			jac.Set(1, i, dg*(1+r*r))
		}
	case zdt3:
		w := 10 * math.Pi
		jac.Set(1, 0, -0.5*math.Sqrt(g/f1)-math.Sin(w*f1)-w*f1*math.Cos(w*f1))
		for i := 1; i < z.n; i++ {
			jac.Set(1, i, dg*(1-0.5*math.Sqrt(f1/g)))
		}
	}
	return jac, nil
}
