package opt

import (
	"errors"
	"math"
	"testing"
)

func TestGonumAdapters_Sphere(t *testing.T) {
	tests := []struct {
		name      string
		optimizer Optimizer
		grad      Gradient
	}{
		{"nelder-mead", NewNelderMead(0.5), nil},
		{"gradient", NewGradientDescent(), sphereGrad},
		{"lbfgs", NewLBFGS(5), sphereGrad},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lower, upper := box(3, -10, 10)
			p := Problem{Func: sphere, Grad: tt.grad, Lower: lower, Upper: upper}

			res, err := tt.optimizer.Run(p, []float64{3, -2, 1}, Settings{MaxIterations: 500, Trace: true})
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if !res.Converged {
				t.Errorf("Expected converged run, status %s", res.Status)
			}
			if res.F > 1e-3 {
				t.Errorf("Expected cost near 0, got %g", res.F)
			}
			if res.FuncEvals == 0 {
				t.Error("Expected function evaluations to be counted")
			}
			if tt.grad != nil && res.GradEvals == 0 {
				t.Error("Expected gradient evaluations to be counted")
			}
			if len(res.Trace) == 0 {
				t.Error("Expected trace to be recorded")
			}
		})
	}
}

func TestGonumAdapter_RequiresGradient(t *testing.T) {
	lower, upper := box(2, -1, 1)
	p := Problem{Func: sphere, Lower: lower, Upper: upper}

	if _, err := NewLBFGS(0).Run(p, []float64{0.5, 0.5}, Settings{}); err == nil {
		t.Error("Expected error when gradient is missing")
	}
}

func TestGonumAdapter_EvaluationError(t *testing.T) {
	errDomain := errors.New("outside domain")
	lower, upper := box(2, -1, 1)
	p := Problem{
		Func: func(x []float64) (float64, error) {
			if x[0] < 0.4 {
				return 0, errDomain
			}
			return sphere(x)
		},
		Lower: lower,
		Upper: upper,
	}

	_, err := NewNelderMead(0).Run(p, []float64{0.5, 0.5}, Settings{MaxIterations: 200})
	if !errors.Is(err, errDomain) {
		t.Errorf("Expected domain error to propagate, got %v", err)
	}
}

func TestGonumAdapter_ZeroFunctionTolNeverConverges(t *testing.T) {
	lower, upper := box(2, -1, 1)
	flat := func(x []float64) (float64, error) { return 1, nil }
	p := Problem{Func: flat, Lower: lower, Upper: upper}

	res, err := NewNelderMead(0.5).Run(p, []float64{0.5, 0.5}, Settings{MaxIterations: 150})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Status != "IterationLimit" {
		t.Errorf("Expected IterationLimit with FunctionTol 0, got %s", res.Status)
	}
	if res.Iterations != 150 {
		t.Errorf("Expected 150 iterations, got %d", res.Iterations)
	}

	res, err = NewNelderMead(0.5).Run(p, []float64{0.5, 0.5}, Settings{MaxIterations: 150, FunctionTol: 1e-8})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Status != "FunctionConvergence" {
		t.Errorf("Expected FunctionConvergence with FunctionTol set, got %s", res.Status)
	}
}

func TestClamp(t *testing.T) {
	x := []float64{-2, 0.5, 7}
	Clamp(x, []float64{-1, -1, -1}, []float64{1, 1, 1})

	want := []float64{-1, 0.5, 1}
	for i := range x {
		if math.Abs(x[i]-want[i]) > 0 {
			t.Errorf("x[%d] = %f, want %f", i, x[i], want[i])
		}
	}
}
