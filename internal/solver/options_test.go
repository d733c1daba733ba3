package solver

import (
	"errors"
	"testing"
	"time"
)

func testCommon() CommonOptions {
	return CommonOptions{
		Verbose:       true,
		MaxIter:       250,
		OptimalityTol: 1e-5,
		FunctionTol:   1e-7,
		MaxTime:       5 * time.Second,
		LogInterval:   7,
		StoreTrace:    true,
		StopCriterion: StopFirstOrder,
	}
}

func TestGetSolverOptions_ProxGradMuDefault(t *testing.T) {
	cfg := NewConfiguration(testCommon(), SpecificOptions{})

	opts, err := GetSolverOptions(KindProxGrad, cfg)
	if err != nil {
		t.Fatalf("GetSolverOptions failed: %v", err)
	}
	pg, ok := opts.(ProxGradOptions)
	if !ok {
		t.Fatalf("Expected ProxGradOptions, got %T", opts)
	}
	if pg.Mu != 1.0 {
		t.Errorf("Expected default mu 1.0, got %f", pg.Mu)
	}
	if pg.SubTol != DefaultSubTol {
		t.Errorf("Expected default sub tol %g, got %g", DefaultSubTol, pg.SubTol)
	}
	if pg.CommonOptions != testCommon() {
		t.Errorf("Common options not copied verbatim: %+v", pg.CommonOptions)
	}
}

func TestGetSolverOptions_ProxGradMuOverride(t *testing.T) {
	cfg := NewConfiguration(testCommon(), SpecificOptions{Mu: Float(2.5)})

	opts, err := GetSolverOptions(KindProxGrad, cfg)
	if err != nil {
		t.Fatalf("GetSolverOptions failed: %v", err)
	}
	if mu := opts.(ProxGradOptions).Mu; mu != 2.5 {
		t.Errorf("Expected mu 2.5, got %f", mu)
	}
}

func TestGetSolverOptions_Defaults(t *testing.T) {
	cfg := NewConfiguration(testCommon(), SpecificOptions{})

	cg, err := GetSolverOptions(KindCondG, cfg)
	if err != nil {
		t.Fatalf("CondG: %v", err)
	}
	c := cg.(CondGOptions)
	if c.StepSize != 0.1 || c.SubMaxIter != 50 || c.SubTol != DefaultSubTol {
		t.Errorf("Unexpected CondG defaults: %+v", c)
	}

	df, err := GetSolverOptions(KindPDFPM, cfg)
	if err != nil {
		t.Fatalf("PDFPM: %v", err)
	}
	d := df.(DFOptions)
	if d.Penalty != 1.0 || d.StepSize != 0.1 || d.SubMaxIter != 50 || d.PopSize != DefaultPopSize {
		t.Errorf("Unexpected PDFPM defaults: %+v", d)
	}
}

func TestGetSolverOptions_AliasedShapes(t *testing.T) {
	cfg := NewConfiguration(testCommon(), SpecificOptions{Penalty: Float(4), SubMaxIter: Int(9)})

	var shapes []DFOptions
	for _, kind := range []string{KindPDFPM, KindPDFPMJac, KindMayfly} {
		opts, err := GetSolverOptions(kind, cfg)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		df, ok := opts.(DFOptions)
		if !ok {
			t.Fatalf("%s: expected DFOptions, got %T", kind, opts)
		}
		shapes = append(shapes, df)
	}

	for i := 1; i < len(shapes); i++ {
		if shapes[i] != shapes[0] {
			t.Errorf("Aliased kinds produced different options: %+v vs %+v", shapes[0], shapes[i])
		}
	}
	if shapes[0].Penalty != 4 || shapes[0].SubMaxIter != 9 {
		t.Errorf("Overrides not applied: %+v", shapes[0])
	}
}

func TestGetSolverOptions_UnknownSolver(t *testing.T) {
	_, err := GetSolverOptions("Simplex9000", NewConfiguration(testCommon(), SpecificOptions{}))

	var unknown *UnknownSolverError
	if !errors.As(err, &unknown) {
		t.Fatalf("Expected UnknownSolverError, got %v", err)
	}
	if !errors.Is(err, ErrConfiguration) {
		t.Error("UnknownSolverError should match ErrConfiguration")
	}
}

func TestConfiguration_Immutable(t *testing.T) {
	mu := 3.0
	specific := SpecificOptions{Mu: &mu}
	cfg := NewConfiguration(testCommon(), specific)

	// Mutating the caller's value must not leak into the configuration
	mu = 9
	if got := *cfg.Specific().Mu; got != 3.0 {
		t.Errorf("Configuration changed with caller's value: %f", got)
	}

	// Nor may mutating a returned copy
	s := cfg.Specific()
	*s.Mu = 11
	if got := *cfg.Specific().Mu; got != 3.0 {
		t.Errorf("Configuration changed through returned copy: %f", got)
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	if err := r.Register("Bad", Entry{Convention: ConventionA, Map: MapDF}); err == nil {
		t.Error("Expected error for convention A entry without solver")
	}
	if err := r.Register("Bad", Entry{Convention: ConventionUnknown, Map: MapDF, GradientFree: PDFPM}); err == nil {
		t.Error("Expected error for unknown convention")
	}
	if err := r.Register("Custom", Entry{Convention: ConventionA, Map: MapDF, GradientFree: PDFPM}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	entry, err := r.Lookup("Custom")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if entry.Convention != ConventionA {
		t.Errorf("Expected convention A, got %s", entry.Convention)
	}

	_, err = r.Lookup("Missing")
	var unsupported *UnsupportedSolverError
	if !errors.As(err, &unsupported) {
		t.Errorf("Expected UnsupportedSolverError, got %v", err)
	}
}

func TestBuiltin_Kinds(t *testing.T) {
	kinds := Builtin().Kinds()
	want := []string{KindCondG, KindMayfly, KindPDFPM, KindPDFPMJac, KindProxGrad}

	if len(kinds) != len(want) {
		t.Fatalf("Expected %d kinds, got %v", len(want), kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("kinds[%d] = %s, want %s", i, kinds[i], want[i])
		}
	}
}
