// Package solver holds solver configurations, the per-kind option shapes
// that solver implementations consume, and the registry that maps solver
// kinds to calling conventions and option mappers.
package solver

import "time"

// Stopping criteria understood by the reference solvers.
const (
	StopDefault        = ""
	StopFirstOrder     = "first_order"
	StopFunctionChange = "function_change"
)

// CommonOptions are shared by every solver kind.
type CommonOptions struct {
	Verbose       bool          `yaml:"verbose" json:"verbose"`
	MaxIter       int           `yaml:"max_iter" json:"maxIter"`
	OptimalityTol float64       `yaml:"optimality_tol" json:"optimalityTol"`
	FunctionTol   float64       `yaml:"function_tol" json:"functionTol"`
	MaxTime       time.Duration `yaml:"max_time" json:"maxTime"`
	LogInterval   int           `yaml:"log_interval" json:"logInterval"`
	StoreTrace    bool          `yaml:"store_trace" json:"storeTrace"`
	StopCriterion string        `yaml:"stop_criterion" json:"stopCriterion"`
}

// Common returns the options themselves; option shapes embedding
// CommonOptions satisfy Options through it.
func (c CommonOptions) Common() CommonOptions {
	return c
}

// DefaultCommonOptions returns the options used when a plan leaves them out.
func DefaultCommonOptions() CommonOptions {
	return CommonOptions{
		MaxIter:       1000,
		OptimalityTol: 1e-6,
		FunctionTol:   1e-8,
		MaxTime:       60 * time.Second,
		LogInterval:   10,
	}
}

// SpecificOptions carries solver-specific settings. A nil field means
// "use the solver's own default".
type SpecificOptions struct {
	Mu         *float64 `yaml:"mu,omitempty" json:"mu,omitempty"`
	SubTol     *float64 `yaml:"sub_tol,omitempty" json:"subTol,omitempty"`
	Penalty    *float64 `yaml:"penalty,omitempty" json:"penalty,omitempty"`
	StepSize   *float64 `yaml:"step_size,omitempty" json:"stepSize,omitempty"`
	SubMaxIter *int     `yaml:"sub_max_iter,omitempty" json:"subMaxIter,omitempty"`
	PopSize    *int     `yaml:"pop_size,omitempty" json:"popSize,omitempty"`
}

// Float returns a pointer to v for populating SpecificOptions.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v for populating SpecificOptions.
func Int(v int) *int { return &v }

// clone deep-copies every set field so the copy shares no memory with s.
func (s SpecificOptions) clone() SpecificOptions {
	out := SpecificOptions{}
	if s.Mu != nil {
		out.Mu = Float(*s.Mu)
	}
	if s.SubTol != nil {
		out.SubTol = Float(*s.SubTol)
	}
	if s.Penalty != nil {
		out.Penalty = Float(*s.Penalty)
	}
	if s.StepSize != nil {
		out.StepSize = Float(*s.StepSize)
	}
	if s.SubMaxIter != nil {
		out.SubMaxIter = Int(*s.SubMaxIter)
	}
	if s.PopSize != nil {
		out.PopSize = Int(*s.PopSize)
	}
	return out
}

// Configuration is an immutable solver configuration: common options plus
// solver-specific overrides. Build it with NewConfiguration.
type Configuration struct {
	common   CommonOptions
	specific SpecificOptions
}

// NewConfiguration snapshots common and specific into a Configuration.
func NewConfiguration(common CommonOptions, specific SpecificOptions) *Configuration {
	return &Configuration{
		common:   common,
		specific: specific.clone(),
	}
}

// Common returns the common options.
func (c *Configuration) Common() CommonOptions {
	return c.common
}

// Specific returns a copy of the solver-specific options.
func (c *Configuration) Specific() SpecificOptions {
	return c.specific.clone()
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
