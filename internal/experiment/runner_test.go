package experiment

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/mobench/internal/problem"
	"github.com/cwbudde/mobench/internal/solver"
)

func assertFailedShape(t *testing.T, res *Result, k int) {
	t.Helper()

	if res.Success {
		t.Error("Expected success=false")
	}
	if res.Iterations != 0 || res.FuncEvals != 0 || res.JacEvals != 0 || res.Elapsed != 0 {
		t.Errorf("Expected zero counters, got iter=%d f=%d j=%d elapsed=%v",
			res.Iterations, res.FuncEvals, res.JacEvals, res.Elapsed)
	}
	if len(res.FInit) != k || len(res.FFinal) != k {
		t.Fatalf("Expected objective vectors of length %d, got %d and %d", k, len(res.FInit), len(res.FFinal))
	}
	for i := 0; i < k; i++ {
		if !math.IsNaN(res.FInit[i]) || !math.IsNaN(res.FFinal[i]) {
			t.Errorf("Expected NaN at %d, got %f and %f", i, res.FInit[i], res.FFinal[i])
		}
	}
	if res.Cause == nil {
		t.Error("Expected failure cause")
	}
}

func TestRun_Success(t *testing.T) {
	r := newTestRunner()
	cfg := testConfig("Echo", "Quad", 4)

	res := r.Run(cfg)
	if !res.Success {
		t.Fatalf("Expected success, got cause %v", res.Cause)
	}
	if res.Solver != "Echo" || res.Problem != "Quad" || res.Trial != 4 || res.Delta != 0.1 {
		t.Errorf("Identifying fields not copied: %+v", res)
	}
	if res.Iterations != 3 || res.FuncEvals != 1 {
		t.Errorf("Counters not copied: iter=%d f=%d", res.Iterations, res.FuncEvals)
	}
	if res.FFinal[0] != 0.25 || res.FFinal[1] != 0.0625 {
		t.Errorf("Unexpected final objectives: %v", res.FFinal)
	}
	if res.Message != "done" {
		t.Errorf("Expected solver message, got %q", res.Message)
	}

	// The result owns its vectors.
	cfg.X0[0] = 99
	if res.X0[0] != 0.5 {
		t.Error("Result aliases the config's starting point")
	}
}

func TestRun_ConventionB(t *testing.T) {
	res := newTestRunner().Run(testConfig("Grad", "Quad", 1))
	if !res.Success {
		t.Fatalf("Expected success, got cause %v", res.Cause)
	}
	if res.JacEvals != 1 {
		t.Errorf("Expected 1 Jacobian evaluation, got %d", res.JacEvals)
	}
}

func TestRun_JacobianOnlyForKindsThatUseIt(t *testing.T) {
	seen := &jacSeen{seen: map[string]bool{}}
	r := NewRunner(testProblems(), testSolvers(seen))

	r.Run(testConfig("Echo", "Quad", 1))
	r.Run(testConfig("EchoJac", "Quad", 1))
	if seen.get("Echo") {
		t.Error("Echo should not receive a Jacobian")
	}
	if !seen.get("EchoJac") {
		t.Error("EchoJac should receive a Jacobian for a differentiable problem")
	}

	r.Run(testConfig("EchoJac", "Flat", 1))
	if seen.get("EchoJac") {
		t.Error("EchoJac should not receive a Jacobian for a problem without one")
	}
}

func TestRun_FailureShape(t *testing.T) {
	tests := []struct {
		name    string
		cfg     func() Config
		wantErr error
	}{
		{"domain violation", func() Config { return testConfig("Echo", "Domain", 1) }, problem.ErrDomain},
		{"unknown solver", func() Config { return testConfig("Nope", "Quad", 1) }, solver.ErrConfiguration},
		{"no jacobian for convention B", func() Config { return testConfig("Grad", "Flat", 1) }, solver.ErrConfiguration},
		{"non-success", func() Config { return testConfig("NoSuccess", "Quad", 1) }, ErrUnsuccessful},
		{"solver panic", func() Config { return testConfig("Boom", "Quad", 1) }, nil},
		{"evaluation error", func() Config { return testConfig("Echo", "Broken", 1) }, nil},
		{"evaluation panic", func() Config { return testConfig("Echo", "Panics", 1) }, nil},
		{"wrong objective count", func() Config { return testConfig("Short", "Quad", 1) }, nil},
		{"wrong starting point", func() Config {
			c := testConfig("Echo", "Quad", 1)
			c.X0 = []float64{1, 2, 3}
			return c
		}, solver.ErrConfiguration},
		{"wrong perturbation", func() Config {
			c := testConfig("Echo", "Quad", 1)
			c.Perturbation = c.Perturbation[:1]
			return c
		}, solver.ErrConfiguration},
	}

	r := newTestRunner()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Run(tt.cfg())
			assertFailedShape(t, res, 2)

			if tt.wantErr != nil && !errors.Is(res.Cause, tt.wantErr) {
				t.Errorf("Expected cause matching %v, got %v", tt.wantErr, res.Cause)
			}
			if res.Message == "" {
				t.Error("Expected failure message")
			}
		})
	}
}

func TestRun_InternalErrorsCarryContext(t *testing.T) {
	r := newTestRunner()

	res := r.Run(testConfig("Boom", "Quad", 7))
	var se *SolverError
	if !errors.As(res.Cause, &se) {
		t.Fatalf("Expected SolverError, got %T: %v", res.Cause, res.Cause)
	}
	if se.Solver != "Boom" || se.Problem != "Quad" || se.Trial != 7 || se.Delta != 0.1 {
		t.Errorf("SolverError lacks context: %+v", se)
	}

	res = r.Run(testConfig("Echo", "Panics", 1))
	var ee *EvaluationError
	if !errors.As(res.Cause, &ee) {
		t.Fatalf("Expected EvaluationError, got %T: %v", res.Cause, res.Cause)
	}
	if ee.Op != "evaluate" {
		t.Errorf("Expected evaluate op, got %q", ee.Op)
	}
}

func TestRun_UnknownProblem(t *testing.T) {
	res := newTestRunner().Run(testConfig("Echo", "Missing", 1))
	assertFailedShape(t, res, 0)

	var upe *problem.UnknownProblemError
	if !errors.As(res.Cause, &upe) {
		t.Errorf("Expected UnknownProblemError, got %v", res.Cause)
	}
}

func TestRun_ReferenceSolvers(t *testing.T) {
	r := NewRunner(testProblems(), solver.Builtin())

	for _, kind := range solver.Builtin().Kinds() {
		t.Run(kind, func(t *testing.T) {
			cfg := testConfig(kind, "Domain", 1)
			if kind == solver.KindProxGrad || kind == solver.KindCondG {
				// Convention B needs a differentiable problem; Domain has
				// no Jacobian, so this fails before the solver runs.
				res := r.Run(cfg)
				assertFailedShape(t, res, 2)
				return
			}

			res := r.Run(cfg)
			assertFailedShape(t, res, 2)
			if !errors.Is(res.Cause, problem.ErrDomain) {
				t.Errorf("Expected domain violation, got %v", res.Cause)
			}
		})
	}
}

func TestRunAll_Order(t *testing.T) {
	configs := testConfigs(4)
	configs[2] = testConfig("Boom", "Quad", 3)

	results := newTestRunner().RunAll(configs)
	if len(results) != 4 {
		t.Fatalf("Expected 4 results, got %d", len(results))
	}
	for i, res := range results {
		if res.Trial != i+1 {
			t.Errorf("Result %d has trial %d", i, res.Trial)
		}
	}
	if results[2].Success {
		t.Error("Expected failing instance to fail")
	}
	if !results[3].Success {
		t.Error("Expected instance after a failure to run normally")
	}
}
