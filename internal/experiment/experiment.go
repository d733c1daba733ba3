// Package experiment generates benchmark experiment instances, runs them
// against registered solvers, and persists their results in batches.
package experiment

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/cwbudde/mobench/internal/solver"
	"github.com/cwbudde/mobench/internal/store"
)

// Config fully specifies one experiment instance. Configs are built by the
// Generator and must not be modified afterwards; X0 and Perturbation are
// shared with the other configs of the same group.
type Config struct {
	Solver  string
	Problem string
	// Trial is 1-based and unique within its (problem, solver, delta) group.
	Trial int
	Delta float64
	X0    []float64

	SolverConfig *solver.Configuration
	Perturbation solver.Perturbation
}

// Key returns the store path of the result this config produces.
func (c Config) Key() []string {
	return store.ResultPath(c.Solver, c.Problem, c.Delta, c.Trial)
}

// Result is the outcome of one experiment instance.
type Result struct {
	Solver  string
	Problem string
	Trial   int
	Delta   float64
	X0      Vector

	Success    bool
	Iterations int
	FuncEvals  int
	JacEvals   int
	Elapsed    time.Duration
	FInit      Vector
	FFinal     Vector

	// Message is the solver's termination message, or the failure cause.
	Message string
	// Trace holds the scalarized objective per iteration when the solver
	// was asked to keep it.
	Trace Vector

	// Cause is the error that made the instance fail. It is not persisted.
	Cause error
}

// Key returns the store path of r.
func (r *Result) Key() []string {
	return store.ResultPath(r.Solver, r.Problem, r.Delta, r.Trial)
}

type resultJSON struct {
	Solver     string  `json:"solver"`
	Problem    string  `json:"problem"`
	Trial      int     `json:"trial"`
	Delta      float64 `json:"delta"`
	X0         Vector  `json:"x0"`
	Success    bool    `json:"success"`
	Iterations int     `json:"iterations"`
	FuncEvals  int     `json:"f_evals"`
	JacEvals   int     `json:"jac_evals"`
	Elapsed    float64 `json:"elapsed"`
	FInit      Vector  `json:"F_init"`
	FFinal     Vector  `json:"final_objective_value"`
	Message    string  `json:"message,omitempty"`
	Trace      Vector  `json:"trace,omitempty"`
}

// MarshalJSON encodes the result with elapsed time in seconds.
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		Solver:     r.Solver,
		Problem:    r.Problem,
		Trial:      r.Trial,
		Delta:      r.Delta,
		X0:         r.X0,
		Success:    r.Success,
		Iterations: r.Iterations,
		FuncEvals:  r.FuncEvals,
		JacEvals:   r.JacEvals,
		Elapsed:    r.Elapsed.Seconds(),
		FInit:      r.FInit,
		FFinal:     r.FFinal,
		Message:    r.Message,
		Trace:      r.Trace,
	})
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var w resultJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Result{
		Solver:     w.Solver,
		Problem:    w.Problem,
		Trial:      w.Trial,
		Delta:      w.Delta,
		X0:         w.X0,
		Success:    w.Success,
		Iterations: w.Iterations,
		FuncEvals:  w.FuncEvals,
		JacEvals:   w.JacEvals,
		Elapsed:    time.Duration(w.Elapsed * float64(time.Second)),
		FInit:      w.FInit,
		FFinal:     w.FFinal,
		Message:    w.Message,
		Trace:      w.Trace,
	}
	return nil
}

// Vector is a float slice whose JSON form can carry non-finite values:
// NaN and the infinities are written as the strings "NaN", "+Inf", "-Inf".
type Vector []float64

func (v Vector) MarshalJSON() ([]byte, error) {
	out := make([]any, len(v))
	for i, x := range v {
		switch {
		case math.IsNaN(x):
			out[i] = "NaN"
		case math.IsInf(x, 1):
			out[i] = "+Inf"
		case math.IsInf(x, -1):
			out[i] = "-Inf"
		default:
			out[i] = x
		}
	}
	return json.Marshal(out)
}

func (v *Vector) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Vector, len(raw))
	for i, r := range raw {
		if len(r) > 0 && r[0] == '"' {
			var s string
			if err := json.Unmarshal(r, &s); err != nil {
				return err
			}
			switch s {
			case "NaN":
				out[i] = math.NaN()
			case "+Inf", "Inf":
				out[i] = math.Inf(1)
			case "-Inf":
				out[i] = math.Inf(-1)
			default:
				return fmt.Errorf("invalid vector element %q", s)
			}
			continue
		}
		if err := json.Unmarshal(r, &out[i]); err != nil {
			return err
		}
	}
	*v = out
	return nil
}

// nanVector returns k NaN sentinels.
func nanVector(k int) Vector {
	v := make(Vector, k)
	for i := range v {
		v[i] = math.NaN()
	}
	return v
}

func copyVector(x []float64) Vector {
	if x == nil {
		return nil
	}
	return append(Vector(nil), x...)
}
