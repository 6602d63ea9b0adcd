package grandpotential

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PDoakORNL/BetheAnsatz/internal/fixedpoint"
	"github.com/PDoakORNL/BetheAnsatz/internal/grounded"
)

const testU = 4.0

func state(t *testing.T) *grounded.State {
	t.Helper()
	s, err := grounded.NewSolver(grounded.Config{U: testU, K: 40, L: 81}, nil)
	require.NoError(t, err)
	st, err := s.Solve(context.Background())
	require.NoError(t, err)
	return st
}

func omega(t *testing.T, st *grounded.State, mu, T float64, opts Options) float64 {
	t.Helper()
	g, err := New(st, mu, T, opts)
	require.NoError(t, err)
	r, err := g.Evaluate(context.Background())
	require.NoError(t, err)
	require.False(t, math.IsNaN(r.Omega))
	require.Less(t, r.Residual, DefaultTol)
	return r.Omega
}

func TestOmega_EmptyBand(t *testing.T) {
	st := state(t)
	assert.InDelta(t, 0, omega(t, st, -4, 0.05, Options{}), 2e-3)
}

func TestOmega_MottGapPinsGroundState(t *testing.T) {
	st := state(t)
	for _, mu := range []float64{1.5, 2} {
		assert.InDelta(t, st.E0()-mu, omega(t, st, mu, 0.05, Options{}), 5e-3, "mu=%v", mu)
	}
}

func TestOmega_HighTemperature(t *testing.T) {
	st := state(t)
	for _, tc := range []struct{ mu, T float64 }{{0, 500}, {1, 200}} {
		want := -tc.T*math.Log(4) + testU/4 - tc.mu
		assert.InDelta(t, want, omega(t, st, tc.mu, tc.T, Options{}), 0.02, "mu=%v T=%v", tc.mu, tc.T)
	}
}

func TestOmega_ParticleHole(t *testing.T) {
	st := state(t)
	for _, mu := range []float64{0.5, -1} {
		a := omega(t, st, mu, 0.5, Options{})
		b := omega(t, st, testU-mu, 0.5, Options{})
		assert.InDelta(t, testU-2*mu, a-b, 1e-7, "mu=%v", mu)
	}
}

func TestOmega_FieldLowersOmega(t *testing.T) {
	st := state(t)
	zero := omega(t, st, 0.5, 0.2, Options{})
	field := omega(t, st, 0.5, 0.2, Options{Field: 0.3})
	assert.Less(t, field, zero)
	assert.Equal(t, field, omega(t, st, 0.5, 0.2, Options{Field: -0.3}))
}

func TestOmega_DecreasesWithMu(t *testing.T) {
	st := state(t)
	prev := math.Inf(1)
	for _, mu := range []float64{-1, 0, 1, 2, 3} {
		o := omega(t, st, mu, 0.3, Options{})
		assert.Less(t, o, prev, "mu=%v", mu)
		prev = o
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	st := state(t)
	a := omega(t, st, 0.7, 0.4, Options{})
	b := omega(t, st, 0.7, 0.4, Options{})
	assert.Equal(t, math.Float64bits(a), math.Float64bits(b))
}

func TestEvaluate_NonConvergence(t *testing.T) {
	st := state(t)
	g, err := New(st, 0.5, 0.1, Options{MaxIter: 2})
	require.NoError(t, err)
	_, err = g.Evaluate(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, fixedpoint.ErrNoConvergence))
	assert.Contains(t, err.Error(), "T=0.1")
}

func TestEvaluate_Cancelled(t *testing.T) {
	st := state(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Omega(ctx, st, 0.5, 0.5, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_RejectsInvalidPoints(t *testing.T) {
	st := state(t)
	for _, tc := range []struct {
		name string
		mu   float64
		T    float64
		opts Options
	}{
		{"zero T", 0, 0, Options{}},
		{"negative T", 0, -1, Options{}},
		{"infinite T", 0, math.Inf(1), Options{}},
		{"NaN T", 0, math.NaN(), Options{}},
		{"NaN mu", math.NaN(), 1, Options{}},
		{"infinite mu", math.Inf(-1), 1, Options{}},
		{"NaN field", 0, 1, Options{Field: math.NaN()}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(st, tc.mu, tc.T, tc.opts)
			assert.ErrorIs(t, err, ErrInvalidPoint)
		})
	}
	_, err := New(st, 0, 1, Options{Strings: -1})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidPoint)
}

func TestInitial_Layout(t *testing.T) {
	st := state(t)
	g, err := New(st, 0.5, 1, Options{Strings: 3})
	require.NoError(t, err)
	x := g.initial()
	nk, nl := st.KMesh().Len(), st.LambdaMesh().Len()
	require.Len(t, x, nk+2*3*nl)
	z, eta, etp := g.split(x)
	assert.Len(t, z, nk)
	require.Len(t, eta, 3)
	require.Len(t, etp, 3)
	assert.Equal(t, math.Log(3), eta[0][0])
	assert.InDelta(t, flatLog((testU-1)/2, 3), etp[2][nl-1], 1e-15)
	assert.InDelta(t, st.Kappa0()[0], z[0], 1e-15)
}
