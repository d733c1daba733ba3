package problem

import (
	"errors"
	"fmt"
)

// ErrDomain matches every domain violation raised by a problem.
var ErrDomain = errors.New("point outside problem domain")

// DomainError reports an evaluation attempted outside a problem's valid input region.
type DomainError struct {
	Problem string
	Reason  string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("domain violation in %s: %s", e.Problem, e.Reason)
}

func (e *DomainError) Is(target error) bool {
	return target == ErrDomain
}

// UnknownProblemError is returned when no constructor is registered for a name.
type UnknownProblemError struct {
	Name string
}

func (e *UnknownProblemError) Error() string {
	return "unknown problem: " + e.Name
}
