package quadrature

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

// integral is a definite integral with a known value.
type integral struct {
	name  string
	a, b  float64
	f     func(float64) float64
	value float64
}

func knownIntegrals() []integral {
	return []integral{
		{"∫_{-1}^{2} 3dx", -1, 2, func(float64) float64 { return 3 }, 9},
		{"∫_{-1}^{2} x^5dx", -1, 2, func(x float64) float64 { return math.Pow(x, 5) }, (64.0 - 1.0) / 6},
		{"∫_0^1 sin(x)dx", 0, 1, math.Sin, 1 - math.Cos(1)},
		{"∫_0^1 x*exp(-x)dx", 0, 1, func(x float64) float64 { return x * math.Exp(-x) }, (math.E - 2) / math.E},
		{"∫_{-π}^{π} cos²(x)dx", -math.Pi, math.Pi, func(x float64) float64 { c := math.Cos(x); return c * c }, math.Pi},
		{"∫_{-∞}^{∞} exp(-x²)dx", math.Inf(-1), math.Inf(1), func(x float64) float64 { return math.Exp(-x * x) }, math.Sqrt(math.Pi)},
		{"∫_0^∞ exp(-x)dx", 0, math.Inf(1), func(x float64) float64 { return math.Exp(-x) }, 1},
	}
}

func TestIntegrate_KnownValues(t *testing.T) {
	cfg := Default()
	for _, tc := range knownIntegrals() {
		t.Run(tc.name, func(t *testing.T) {
			got, err := cfg.Integrate(tc.f, tc.a, tc.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tc.value) > 1e-9*math.Max(1, math.Abs(tc.value)) {
				t.Fatalf("got %.15g, want %.15g", got, tc.value)
			}
		})
	}
}

func TestIntegrate_Breakpoints(t *testing.T) {
	// |x| has a kink at 0; splitting there makes each piece a polynomial.
	cfg := Config{RelTol: 1e-14, AbsTol: 1e-14, MinNodes: 4, MaxNodes: 16}
	got, err := cfg.Integrate(math.Abs, -1, 2, 0)
	if err != nil {
		t.Fatalf("with breakpoint: %v", err)
	}
	if math.Abs(got-2.5) > 1e-13 {
		t.Fatalf("got %v want 2.5", got)
	}
	if _, err := cfg.Integrate(math.Abs, -1, 2); err == nil {
		t.Fatalf("expected the kink to defeat a 16-node budget without a breakpoint")
	}
}

func TestIntegrate_EndpointBreakpointsIgnored(t *testing.T) {
	cfg := Default()
	f := func(x float64) float64 { return 1 + math.Cos(x) }
	a, err := cfg.Integrate(f, -math.Pi, math.Pi, -math.Pi, math.Pi)
	if err != nil {
		t.Fatal(err)
	}
	b, err := cfg.Integrate(f, -math.Pi, math.Pi)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("endpoint breakpoints changed the result: %v vs %v", a, b)
	}
}

func TestIntegrate_ReversedBounds(t *testing.T) {
	cfg := Default()
	fwd, _ := cfg.Integrate(math.Exp, 0, 1)
	rev, err := cfg.Integrate(math.Exp, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if fwd != -rev {
		t.Fatalf("reversed bounds: %v vs %v", fwd, rev)
	}
	if z, err := cfg.Integrate(math.Exp, 3, 3); err != nil || z != 0 {
		t.Fatalf("empty interval: %v %v", z, err)
	}
}

func TestIntegrate_NonConvergenceSurfaced(t *testing.T) {
	cfg := Config{RelTol: 1e-14, AbsTol: 1e-14, MinNodes: 8, MaxNodes: 64}
	_, err := cfg.Integrate(func(x float64) float64 { return 1 / math.Sqrt(x) }, 0, 1)
	if err == nil {
		t.Fatal("expected non-convergence for an endpoint singularity")
	}
	if !errors.Is(err, ErrNoConvergence) {
		t.Fatalf("error does not match ErrNoConvergence: %v", err)
	}
	var nc *NonConvergenceError
	if !errors.As(err, &nc) {
		t.Fatalf("expected *NonConvergenceError, got %T", err)
	}
	if nc.Nodes != 64 || nc.A != 0 || nc.B != 1 {
		t.Fatalf("unexpected details: %+v", nc)
	}
	wrapped := fmt.Errorf("solve: %w", err)
	if !errors.Is(wrapped, ErrNoConvergence) {
		t.Fatal("wrapping lost the sentinel")
	}
}

func TestIntegrate_NaNIntegrand(t *testing.T) {
	_, err := Default().Integrate(func(float64) float64 { return math.NaN() }, 0, 1)
	if !errors.Is(err, ErrNoConvergence) {
		t.Fatalf("want ErrNoConvergence for NaN integrand, got %v", err)
	}
}

func TestPieces(t *testing.T) {
	got := pieces(-1, 1, []float64{0.5, -2, 0, 0.5, 1})
	want := []float64{-1, 0, 0.5, 1}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("pieces = %v, want %v", got, want)
	}
}

func TestIntegrate_ZeroConfigUsesDefaults(t *testing.T) {
	got, err := Config{}.Integrate(math.Sin, 0, math.Pi)
	if err != nil {
		t.Fatalf("zero config: %v", err)
	}
	if math.Abs(got-2) > 1e-12 {
		t.Fatalf("got %.15g want 2", got)
	}
	if c := (Config{MinNodes: 8192}).normalized(); c.MaxNodes != 8192 {
		t.Fatalf("MaxNodes = %d, want the MinNodes floor", c.MaxNodes)
	}
}

func TestIntegrate_InfiniteBounds(t *testing.T) {
	lorentz := func(x float64) float64 { return 1 / (1 + x*x) }
	cfg := Default()
	for _, tc := range []struct {
		name        string
		a, b        float64
		breakpoints []float64
		want        float64
	}{
		{"whole line", math.Inf(-1), math.Inf(1), nil, math.Pi},
		{"split at 0", math.Inf(-1), math.Inf(1), []float64{0}, math.Pi},
		{"split twice", math.Inf(-1), math.Inf(1), []float64{-1, 1}, math.Pi},
		{"right half", 1, math.Inf(1), nil, math.Pi / 4},
		{"left half", math.Inf(-1), -1, nil, math.Pi / 4},
		{"reversed", math.Inf(1), 0, nil, -math.Pi / 2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := cfg.Integrate(lorentz, tc.a, tc.b, tc.breakpoints...)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("got %.15g want %.15g", got, tc.want)
			}
		})
	}
}

func TestIntegrate_InfiniteNonConvergenceKeepsBounds(t *testing.T) {
	cfg := Config{RelTol: 1e-14, AbsTol: 1e-14, MinNodes: 8, MaxNodes: 64}
	_, err := cfg.Integrate(func(x float64) float64 { return 1 / (1 + x) }, 0, math.Inf(1))
	var nc *NonConvergenceError
	if !errors.As(err, &nc) {
		t.Fatalf("want *NonConvergenceError for a divergent tail, got %v", err)
	}
	if nc.A != 0 || !math.IsInf(nc.B, 1) {
		t.Fatalf("bounds not reported in x: %+v", nc)
	}
}
