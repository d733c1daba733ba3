package experiment

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cwbudde/mobench/internal/store"
)

// Filter selects stored results. Zero fields match everything.
type Filter struct {
	Solver      string
	Problem     string
	Delta       *float64
	SuccessOnly bool
}

func (f Filter) matchKey(path []string) bool {
	if f.Solver != "" && path[0] != f.Solver {
		return false
	}
	if f.Problem != "" && path[1] != f.Problem {
		return false
	}
	if f.Delta != nil && path[2] != store.DeltaKey(*f.Delta) {
		return false
	}
	return true
}

// LoadResults reads the results in s that match f, ordered by solver,
// problem, delta and trial.
func LoadResults(s store.Store, f Filter) ([]*Result, error) {
	tree, err := s.Read()
	if err != nil {
		return nil, err
	}

	var results []*Result
	err = tree.Walk(func(path []string, value json.RawMessage) error {
		if len(path) != store.Depth || !f.matchKey(path) {
			return nil
		}
		res := &Result{}
		if err := json.Unmarshal(value, res); err != nil {
			return fmt.Errorf("failed to decode result %s: %w", strings.Join(path, "/"), err)
		}
		if f.SuccessOnly && !res.Success {
			return nil
		}
		results = append(results, res)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Solver != b.Solver {
			return a.Solver < b.Solver
		}
		if a.Problem != b.Problem {
			return a.Problem < b.Problem
		}
		if a.Delta != b.Delta {
			return a.Delta < b.Delta
		}
		return a.Trial < b.Trial
	})
	return results, nil
}

// Pending returns the configs whose result is not in s yet. A missing
// store means everything is pending.
func Pending(s store.Store, configs []Config) ([]Config, error) {
	tree, err := s.Read()
	if errors.Is(err, store.ErrNotFound) {
		return configs, nil
	}
	if err != nil {
		return nil, err
	}

	pending := make([]Config, 0, len(configs))
	for _, cfg := range configs {
		if _, ok := tree.Get(cfg.Key()...); !ok {
			pending = append(pending, cfg)
		}
	}
	return pending, nil
}

// Summary aggregates the runs of one (solver, problem, delta) group.
// Means are taken over successful runs.
type Summary struct {
	Solver    string  `json:"solver"`
	Problem   string  `json:"problem"`
	Delta     float64 `json:"delta"`
	Runs      int     `json:"runs"`
	Successes int     `json:"successes"`

	MeanIterations float64       `json:"meanIterations"`
	MeanFuncEvals  float64       `json:"meanFuncEvals"`
	MeanJacEvals   float64       `json:"meanJacEvals"`
	MeanElapsed    time.Duration `json:"meanElapsed"`
}

// SuccessRate returns Successes / Runs.
func (s Summary) SuccessRate() float64 {
	if s.Runs == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Runs)
}

type groupKey struct {
	solver, problem string
	delta           float64
}

// Summarize groups results by solver, problem and delta, sorted in that order.
func Summarize(results []*Result) []Summary {
	groups := make(map[groupKey]*Summary)
	elapsed := make(map[groupKey]time.Duration)

	for _, res := range results {
		key := groupKey{res.Solver, res.Problem, res.Delta}
		s, ok := groups[key]
		if !ok {
			s = &Summary{Solver: res.Solver, Problem: res.Problem, Delta: res.Delta}
			groups[key] = s
		}
		s.Runs++
		if !res.Success {
			continue
		}
		s.Successes++
		s.MeanIterations += float64(res.Iterations)
		s.MeanFuncEvals += float64(res.FuncEvals)
		s.MeanJacEvals += float64(res.JacEvals)
		elapsed[key] += res.Elapsed
	}

	out := make([]Summary, 0, len(groups))
	for key, s := range groups {
		if s.Successes > 0 {
			n := float64(s.Successes)
			s.MeanIterations /= n
			s.MeanFuncEvals /= n
			s.MeanJacEvals /= n
			s.MeanElapsed = elapsed[key] / time.Duration(s.Successes)
		}
		out = append(out, *s)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Solver != b.Solver {
			return a.Solver < b.Solver
		}
		if a.Problem != b.Problem {
			return a.Problem < b.Problem
		}
		return a.Delta < b.Delta
	})
	return out
}
