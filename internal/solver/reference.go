package solver

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"github.com/cwbudde/mobench/internal/opt"
)

// Reference implementations of the built-in solver kinds. Each minimizes
// the perturbed scalarization
//
//	phi(x) = sum_i F_i(x) + delta * w * sum_i ||A_i x||_1
//
// over the box and reports Psi_i(x) = F_i(x) + delta*||A_i x||_1 at the
// starting point and at the solution.

// boxPenalty weights the quadratic bound penalty of solvers without a
// Penalty option.
const boxPenalty = 1e3

// ProxGrad is the proximal gradient reference solver (convention B).
func ProxGrad(f EvalFunc, jac JacFunc, pert Perturbation, delta float64, x0 []float64, opts Options, lower, upper []float64) (*Outcome, error) {
	o, ok := opts.(ProxGradOptions)
	if !ok {
		return nil, fmt.Errorf("ProxGrad: expected ProxGradOptions, got %T: %w", opts, ErrConfiguration)
	}
	s := &scalarization{
		f: f, jac: jac, pert: pert, delta: delta,
		weight: o.Mu, eps: o.SubTol, penalty: boxPenalty,
		lower: lower, upper: upper,
	}
	return s.solve(opt.NewGradientDescent(), x0, o.CommonOptions, true)
}

// CondG is the conditional gradient reference solver (convention B).
// SubMaxIter sets the L-BFGS memory; StepSize is accepted but unused
// because the backend line search picks its own first step.
func CondG(f EvalFunc, jac JacFunc, pert Perturbation, delta float64, x0 []float64, opts Options, lower, upper []float64) (*Outcome, error) {
	o, ok := opts.(CondGOptions)
	if !ok {
		return nil, fmt.Errorf("CondG: expected CondGOptions, got %T: %w", opts, ErrConfiguration)
	}
	s := &scalarization{
		f: f, jac: jac, pert: pert, delta: delta,
		weight: 1, eps: o.SubTol, penalty: boxPenalty,
		lower: lower, upper: upper,
	}
	return s.solve(opt.NewLBFGS(o.SubMaxIter), x0, o.CommonOptions, true)
}

// PDFPM is the partially derivative-free penalty solver (convention A).
// With a Jacobian it switches to a smoothed quasi-Newton backend.
func PDFPM(f EvalFunc, pert Perturbation, delta float64, x0 []float64, opts Options, lower, upper []float64, jac JacFunc) (*Outcome, error) {
	o, ok := opts.(DFOptions)
	if !ok {
		return nil, fmt.Errorf("PDFPM: expected DFOptions, got %T: %w", opts, ErrConfiguration)
	}
	s := &scalarization{
		f: f, jac: jac, pert: pert, delta: delta,
		weight: 1, penalty: o.Penalty,
		lower: lower, upper: upper,
	}
	if jac != nil {
		s.eps = o.SubTol
	}
	return s.solve(pdfpmBackend(o, jac != nil), x0, o.CommonOptions, jac != nil)
}

// pdfpmBackend picks the PDFPM optimizer. The simplex path keeps |t| exact,
// so SubTol only applies with a Jacobian; SubMaxIter sets the L-BFGS memory.
func pdfpmBackend(o DFOptions, withJac bool) opt.Optimizer {
	if withJac {
		return opt.NewLBFGS(o.SubMaxIter)
	}
	return opt.NewNelderMead(o.StepSize)
}

// Mayfly runs the mayfly metaheuristic on the scalarization (convention A).
// The seed is derived from the starting point so trials are reproducible.
// SubTol, SubMaxIter and StepSize have no meaning for a population search.
func Mayfly(f EvalFunc, pert Perturbation, delta float64, x0 []float64, opts Options, lower, upper []float64, _ JacFunc) (*Outcome, error) {
	o, ok := opts.(DFOptions)
	if !ok {
		return nil, fmt.Errorf("Mayfly: expected DFOptions, got %T: %w", opts, ErrConfiguration)
	}
	s := &scalarization{
		f: f, pert: pert, delta: delta,
		weight: 1, penalty: o.Penalty,
		lower: lower, upper: upper,
	}
	return s.solve(opt.NewMayfly(o.PopSize, seedFrom(x0)), x0, o.CommonOptions, false)
}

func seedFrom(x []float64) int64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, v := range x {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	return int64(h.Sum64() >> 1)
}

// settingsFor translates common options into optimizer settings.
func settingsFor(c CommonOptions) (opt.Settings, error) {
	s := opt.Settings{
		MaxIterations: c.MaxIter,
		MaxTime:       c.MaxTime,
		FunctionTol:   c.FunctionTol,
		GradientTol:   c.OptimalityTol,
		Trace:         c.StoreTrace,
	}
	if c.Verbose {
		s.LogEvery = max(c.LogInterval, 1)
	}

	switch c.StopCriterion {
	case StopDefault:
	case StopFirstOrder:
		s.FunctionTol = 0
	case StopFunctionChange:
		s.GradientTol = 0
	default:
		return s, fmt.Errorf("unknown stop criterion %q: %w", c.StopCriterion, ErrConfiguration)
	}
	return s, nil
}

type scalarization struct {
	f     EvalFunc
	jac   JacFunc
	pert  Perturbation
	delta float64

	weight  float64 // weight of the nonsmooth term
	eps     float64 // smoothing width of |t|, 0 keeps it exact
	penalty float64 // weight of the quadratic bound penalty

	lower, upper []float64

	funcEvals int
	jacEvals  int
}

func (s *scalarization) solve(backend opt.Optimizer, x0 []float64, common CommonOptions, useGrad bool) (*Outcome, error) {
	settings, err := settingsFor(common)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	fInit, err := s.psi(x0)
	if err != nil {
		return nil, err
	}

	p := opt.Problem{Func: s.value, Lower: s.lower, Upper: s.upper}
	if useGrad {
		p.Grad = s.gradient
	}

	res, err := backend.Run(p, append([]float64(nil), x0...), settings)
	if err != nil {
		return nil, err
	}

	x := append([]float64(nil), res.X...)
	opt.Clamp(x, s.lower, s.upper)
	fFinal, err := s.psi(x)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		Success:    res.Converged,
		Iterations: res.Iterations,
		FuncEvals:  s.funcEvals,
		JacEvals:   s.jacEvals,
		Elapsed:    time.Since(start),
		FInit:      fInit,
		FFinal:     fFinal,
		Message:    res.Status,
		Trace:      res.Trace,
	}, nil
}

// psi returns the perturbed objective vector at x.
func (s *scalarization) psi(x []float64) ([]float64, error) {
	s.funcEvals++
	fx, err := s.f(x)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(fx))
	for i := range fx {
		out[i] = fx[i]
		if s.delta != 0 && i < len(s.pert) {
			out[i] += s.delta * s.pert.L1(i, x)
		}
	}
	return out, nil
}

func (s *scalarization) abs(t float64) float64 {
	if s.eps > 0 {
		return math.Sqrt(t*t+s.eps*s.eps) - s.eps
	}
	return math.Abs(t)
}

func (s *scalarization) dabs(t float64) float64 {
	if s.eps > 0 {
		return t / math.Sqrt(t*t+s.eps*s.eps)
	}
	switch {
	case t > 0:
		return 1
	case t < 0:
		return -1
	}
	return 0
}

func (s *scalarization) clamped(x []float64) []float64 {
	xc := append([]float64(nil), x...)
	opt.Clamp(xc, s.lower, s.upper)
	return xc
}

// value is phi(clamp(x)) plus the bound penalty.
func (s *scalarization) value(x []float64) (float64, error) {
	xc := s.clamped(x)

	s.funcEvals++
	fx, err := s.f(xc)
	if err != nil {
		return 0, err
	}

	var v float64
	for _, fi := range fx {
		v += fi
	}
	if s.delta != 0 {
		for i := range s.pert {
			a := s.pert[i]
			n, _ := a.Dims()
			for r := 0; r < n; r++ {
				var y float64
				for j, xj := range xc {
					y += a.At(r, j) * xj
				}
				v += s.delta * s.weight * s.abs(y)
			}
		}
	}
	for j := range x {
		d := x[j] - xc[j]
		v += s.penalty * d * d
	}
	return v, nil
}

func (s *scalarization) gradient(grad, x []float64) error {
	xc := s.clamped(x)

	s.jacEvals++
	jac, err := s.jac(xc)
	if err != nil {
		return err
	}

	rows, cols := jac.Dims()
	if cols != len(x) {
		return fmt.Errorf("jacobian has %d columns, expected %d", cols, len(x))
	}
	for j := range grad {
		grad[j] = 0
		for i := 0; i < rows; i++ {
			grad[j] += jac.At(i, j)
		}
	}

	if s.delta != 0 {
		for i := range s.pert {
			a := s.pert[i]
			n, _ := a.Dims()
			for r := 0; r < n; r++ {
				var y float64
				for j, xj := range xc {
					y += a.At(r, j) * xj
				}
				d := s.delta * s.weight * s.dabs(y)
				for j := range grad {
					grad[j] += d * a.At(r, j)
				}
			}
		}
	}

	// Clamped coordinates only see the penalty slope.
	for j := range x {
		if x[j] != xc[j] {
			grad[j] = 2 * s.penalty * (x[j] - xc[j])
		}
	}
	return nil
}
