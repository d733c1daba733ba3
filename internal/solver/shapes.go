package solver

// Defaults substituted for unset solver-specific fields.
const (
	DefaultMu         = 1.0
	DefaultSubTol     = 1e-6
	DefaultPenalty    = 1.0
	DefaultStepSize   = 0.1
	DefaultSubMaxIter = 50
	DefaultPopSize    = 20
)

// Options is the solver-specific parameter value handed to a solver.
type Options interface {
	Common() CommonOptions
}

// ProxGradOptions parameterize the proximal gradient solver.
type ProxGradOptions struct {
	CommonOptions
	Mu     float64
	SubTol float64
}

// CondGOptions parameterize the conditional gradient solver.
type CondGOptions struct {
	CommonOptions
	StepSize   float64
	SubMaxIter int
	SubTol     float64
}

// DFOptions parameterize the derivative-free and partially derivative-free
// solvers (PDFPM, PDFPMJac, Mayfly).
type DFOptions struct {
	CommonOptions
	Penalty    float64
	StepSize   float64
	SubMaxIter int
	SubTol     float64
	PopSize    int
}

// Mapper turns a generic configuration into a solver's options shape.
type Mapper func(cfg *Configuration) Options

// MapProxGrad builds ProxGradOptions.
func MapProxGrad(cfg *Configuration) Options {
	s := cfg.specific
	return ProxGradOptions{
		CommonOptions: cfg.common,
		Mu:            floatOr(s.Mu, DefaultMu),
		SubTol:        floatOr(s.SubTol, DefaultSubTol),
	}
}

// MapCondG builds CondGOptions.
func MapCondG(cfg *Configuration) Options {
	s := cfg.specific
	return CondGOptions{
		CommonOptions: cfg.common,
		StepSize:      floatOr(s.StepSize, DefaultStepSize),
		SubMaxIter:    intOr(s.SubMaxIter, DefaultSubMaxIter),
		SubTol:        floatOr(s.SubTol, DefaultSubTol),
	}
}

// MapDF builds DFOptions.
func MapDF(cfg *Configuration) Options {
	s := cfg.specific
	return DFOptions{
		CommonOptions: cfg.common,
		Penalty:       floatOr(s.Penalty, DefaultPenalty),
		StepSize:      floatOr(s.StepSize, DefaultStepSize),
		SubMaxIter:    intOr(s.SubMaxIter, DefaultSubMaxIter),
		SubTol:        floatOr(s.SubTol, DefaultSubTol),
		PopSize:       intOr(s.PopSize, DefaultPopSize),
	}
}
