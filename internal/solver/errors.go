package solver

import "errors"

// ErrConfiguration matches every solver configuration error.
var ErrConfiguration = errors.New("solver configuration error")

// UnknownSolverError is returned by the option mapper for a kind outside the registry.
type UnknownSolverError struct {
	Kind string
}

func (e *UnknownSolverError) Error() string {
	return "unknown solver: " + e.Kind
}

func (e *UnknownSolverError) Is(target error) bool {
	return target == ErrConfiguration
}

// UnsupportedSolverError is returned when a kind cannot be dispatched.
type UnsupportedSolverError struct {
	Kind   string
	Reason string
}

func (e *UnsupportedSolverError) Error() string {
	if e.Reason != "" {
		return "unsupported solver " + e.Kind + ": " + e.Reason
	}
	return "unsupported solver: " + e.Kind
}

func (e *UnsupportedSolverError) Is(target error) bool {
	return target == ErrConfiguration
}
