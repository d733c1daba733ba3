package experiment

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"
)

func storedRuns(t *testing.T) *memStore {
	t.Helper()

	ms := newMemStore()
	configs := []Config{
		testConfig("Echo", "Quad", 1),
		testConfig("Echo", "Quad", 2),
		testConfig("Echo", "Domain", 1),
		testConfig("Grad", "Quad", 1),
	}
	configs[1].Delta = 0

	br := &BatchRunner{Runner: newTestRunner(), Store: ms, BatchSize: 10}
	if _, err := br.Run(configs); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return ms
}

func TestLoadResults_Filter(t *testing.T) {
	ms := storedRuns(t)
	zero := 0.0

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 4},
		{"solver", Filter{Solver: "Echo"}, 3},
		{"problem", Filter{Problem: "Quad"}, 3},
		{"delta", Filter{Delta: &zero}, 1},
		{"success only", Filter{SuccessOnly: true}, 3},
		{"combined", Filter{Solver: "Echo", Problem: "Domain", SuccessOnly: true}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := LoadResults(ms, tt.filter)
			if err != nil {
				t.Fatalf("LoadResults failed: %v", err)
			}
			if len(results) != tt.want {
				t.Errorf("Expected %d results, got %d", tt.want, len(results))
			}
		})
	}
}

func TestLoadResults_NumericOrder(t *testing.T) {
	ms := newMemStore()
	var configs []Config
	for _, trial := range []int{10, 2, 1} {
		configs = append(configs, testConfig("Echo", "Quad", trial))
	}
	small := testConfig("Echo", "Quad", 3)
	small.Delta = 0.02
	configs = append(configs, small)

	br := &BatchRunner{Runner: newTestRunner(), Store: ms, BatchSize: 10}
	if _, err := br.Run(configs); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	results, err := LoadResults(ms, Filter{})
	if err != nil {
		t.Fatalf("LoadResults failed: %v", err)
	}

	want := []struct {
		delta float64
		trial int
	}{{0.02, 3}, {0.1, 1}, {0.1, 2}, {0.1, 10}}
	if len(results) != len(want) {
		t.Fatalf("Expected %d results, got %d", len(want), len(results))
	}
	for i, w := range want {
		if results[i].Delta != w.delta || results[i].Trial != w.trial {
			t.Errorf("Result %d: expected delta %g trial %d, got delta %g trial %d",
				i, w.delta, w.trial, results[i].Delta, results[i].Trial)
		}
	}
}

func TestPending(t *testing.T) {
	ms := newMemStore()
	configs := testConfigs(5)

	br := &BatchRunner{Runner: newTestRunner(), Store: ms, BatchSize: 2}
	if _, err := br.Run(configs[:3]); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	pending, err := Pending(ms, configs)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(pending) != 2 || pending[0].Trial != 4 || pending[1].Trial != 5 {
		t.Errorf("Expected trials 4 and 5 pending, got %+v", pending)
	}
}

func TestSummarize(t *testing.T) {
	results := []*Result{
		{Solver: "A", Problem: "P", Delta: 0.1, Success: true, Iterations: 10, FuncEvals: 20, Elapsed: 2 * time.Second},
		{Solver: "A", Problem: "P", Delta: 0.1, Success: true, Iterations: 30, FuncEvals: 40, Elapsed: 4 * time.Second},
		{Solver: "A", Problem: "P", Delta: 0.1, Success: false},
		{Solver: "A", Problem: "P", Delta: 0, Success: false},
		{Solver: "B", Problem: "P", Delta: 0, Success: true, Iterations: 5, JacEvals: 5},
	}

	summaries := Summarize(results)
	if len(summaries) != 3 {
		t.Fatalf("Expected 3 groups, got %d", len(summaries))
	}

	first := summaries[0]
	if first.Solver != "A" || first.Delta != 0 || first.Runs != 1 || first.Successes != 0 {
		t.Errorf("Unexpected first group: %+v", first)
	}
	if first.MeanIterations != 0 {
		t.Errorf("Expected zero means without successes, got %f", first.MeanIterations)
	}

	second := summaries[1]
	if second.Runs != 3 || second.Successes != 2 {
		t.Errorf("Expected 3 runs and 2 successes, got %+v", second)
	}
	if second.MeanIterations != 20 || second.MeanFuncEvals != 30 || second.MeanElapsed != 3*time.Second {
		t.Errorf("Unexpected means: %+v", second)
	}
	if math.Abs(second.SuccessRate()-2.0/3.0) > 1e-12 {
		t.Errorf("Unexpected success rate %f", second.SuccessRate())
	}

	if summaries[2].Solver != "B" || summaries[2].MeanJacEvals != 5 {
		t.Errorf("Unexpected last group: %+v", summaries[2])
	}
}

func TestResultJSON(t *testing.T) {
	res := &Result{
		Solver:     "PDFPM",
		Problem:    "ZDT1",
		Trial:      2,
		Delta:      0.05,
		X0:         Vector{0.1, 0.30000000000000004},
		Success:    false,
		Elapsed:    1500 * time.Millisecond,
		FInit:      Vector{math.NaN(), math.Inf(1)},
		FFinal:     Vector{math.Inf(-1), 1e-300},
		Message:    "failed",
	}

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	s := string(data)
	for _, want := range []string{
		`"elapsed":1.5`,
		`"F_init":["NaN","+Inf"]`,
		`"final_objective_value":["-Inf",1e-300]`,
		`"f_evals":0`,
		`"jac_evals":0`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("Encoded result missing %s: %s", want, s)
		}
	}
	if strings.Contains(s, "trace") {
		t.Errorf("Expected empty trace to be omitted: %s", s)
	}

	var back Result
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back.Elapsed != res.Elapsed {
		t.Errorf("Elapsed: expected %v, got %v", res.Elapsed, back.Elapsed)
	}
	if back.X0[1] != 0.30000000000000004 {
		t.Errorf("Precision lost: %v", back.X0[1])
	}
	if !math.IsNaN(back.FInit[0]) || !math.IsInf(back.FInit[1], 1) || !math.IsInf(back.FFinal[0], -1) {
		t.Errorf("Non-finite values not restored: %v %v", back.FInit, back.FFinal)
	}
}

func TestVectorRejectsUnknownString(t *testing.T) {
	var v Vector
	if err := json.Unmarshal([]byte(`[1, "abc"]`), &v); err == nil {
		t.Error("Expected error for unknown string element")
	}
}
