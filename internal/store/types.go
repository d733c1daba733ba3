package store

import (
	"strconv"
	"strings"
)

// Depth is the number of key levels: solver / problem / delta / trial.
const Depth = 4

// DeltaKey returns the key-safe bucket name for a perturbation level,
// e.g. 0.05 -> "delta_0_05".
func DeltaKey(delta float64) string {
	s := strconv.FormatFloat(delta, 'f', -1, 64)
	return "delta_" + strings.ReplaceAll(s, ".", "_")
}

// TrialKey returns the bucket name for a trial index, e.g. 3 -> "run_3".
func TrialKey(trial int) string {
	return "run_" + strconv.Itoa(trial)
}

// ResultPath returns the four-level key path of one result.
func ResultPath(solver, problem string, delta float64, trial int) []string {
	return []string{solver, problem, DeltaKey(delta), TrialKey(trial)}
}

// ParseDeltaKey reverses DeltaKey.
func ParseDeltaKey(key string) (float64, bool) {
	s, ok := strings.CutPrefix(key, "delta_")
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, "_", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseTrialKey reverses TrialKey.
func ParseTrialKey(key string) (int, bool) {
	s, ok := strings.CutPrefix(key, "run_")
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}
