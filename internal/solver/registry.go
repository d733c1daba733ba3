package solver

import (
	"fmt"
	"sort"
	"sync"
)

// Convention identifies a solver calling signature.
type Convention int

const (
	ConventionUnknown Convention = iota
	// ConventionA solvers take an optional Jacobian callback.
	ConventionA
	// ConventionB solvers require a Jacobian callback.
	ConventionB
)

func (c Convention) String() string {
	switch c {
	case ConventionA:
		return "A"
	case ConventionB:
		return "B"
	default:
		return "unknown"
	}
}

// Entry describes one solver kind.
type Entry struct {
	Convention Convention
	// UsesJacobian marks convention A kinds that are handed a Jacobian
	// callback when the problem provides one.
	UsesJacobian bool
	Map          Mapper

	GradientFree  GradientFree
	GradientBased GradientBased
}

func (e Entry) validate() error {
	if e.Map == nil {
		return fmt.Errorf("option mapper cannot be nil")
	}
	switch e.Convention {
	case ConventionA:
		if e.GradientFree == nil {
			return fmt.Errorf("convention A entry needs a GradientFree solver")
		}
	case ConventionB:
		if e.GradientBased == nil {
			return fmt.Errorf("convention B entry needs a GradientBased solver")
		}
	default:
		return fmt.Errorf("unknown calling convention %d", e.Convention)
	}
	return nil
}

// Registry maps solver kinds to their entries.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds or replaces the entry for kind.
func (r *Registry) Register(kind string, entry Entry) error {
	if kind == "" {
		return fmt.Errorf("solver kind cannot be empty")
	}
	if err := entry.validate(); err != nil {
		return fmt.Errorf("invalid entry for %s: %w", kind, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[kind] = entry
	return nil
}

// Lookup returns the entry for kind, or UnsupportedSolverError.
func (r *Registry) Lookup(kind string) (Entry, error) {
	r.mu.RLock()
	entry, ok := r.entries[kind]
	r.mu.RUnlock()

	if !ok {
		return Entry{}, &UnsupportedSolverError{Kind: kind}
	}
	return entry, nil
}

// Options maps cfg to the options shape the kind expects. It fails with
// UnknownSolverError for kinds outside the registry.
func (r *Registry) Options(kind string, cfg *Configuration) (Options, error) {
	r.mu.RLock()
	entry, ok := r.entries[kind]
	r.mu.RUnlock()

	if !ok {
		return nil, &UnknownSolverError{Kind: kind}
	}
	if cfg == nil {
		cfg = NewConfiguration(CommonOptions{}, SpecificOptions{})
	}
	return entry.Map(cfg), nil
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.entries))
	for kind := range r.entries {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Built-in solver kinds.
const (
	KindProxGrad = "ProxGrad"
	KindCondG    = "CondG"
	KindPDFPM    = "PDFPM"
	KindPDFPMJac = "PDFPMJac"
	KindMayfly   = "Mayfly"
)

// Builtin returns a registry with the reference solver kinds. PDFPM,
// PDFPMJac and Mayfly share the DFOptions shape.
func Builtin() *Registry {
	r := NewRegistry()
	r.entries[KindProxGrad] = Entry{Convention: ConventionB, Map: MapProxGrad, GradientBased: ProxGrad}
	r.entries[KindCondG] = Entry{Convention: ConventionB, Map: MapCondG, GradientBased: CondG}
	r.entries[KindPDFPM] = Entry{Convention: ConventionA, Map: MapDF, GradientFree: PDFPM}
	r.entries[KindPDFPMJac] = Entry{Convention: ConventionA, UsesJacobian: true, Map: MapDF, GradientFree: PDFPM}
	r.entries[KindMayfly] = Entry{Convention: ConventionA, Map: MapDF, GradientFree: Mayfly}
	return r
}

// GetSolverOptions maps cfg with the built-in registry.
func GetSolverOptions(kind string, cfg *Configuration) (Options, error) {
	return Builtin().Options(kind, cfg)
}
