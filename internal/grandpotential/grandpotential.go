// Package grandpotential evaluates Ω(μ, T) per site of the Hubbard chain from
// Takahashi's thermodynamic Bethe-Ansatz equations in their simplified form,
// with the string hierarchies truncated at Strings levels.
//
//	ln ζ     = κ0/T + s(Λ − sin k) ⋆ [F(ln η'_1) − F(ln η_1)]
//	ln η_1   = s ∗ F(ln η_2) − cos k s(Λ − sin k) ⋆ F(−ln ζ)
//	ln η'_1  = s ∗ F(ln η'_2) − cos k s(Λ − sin k) ⋆ F(ln ζ)
//	ln η_n   = s ∗ [F(ln η_{n−1}) + F(ln η_{n+1})]           (same for η')
//	Ω        = E0 − μ − T∫ρ0 F(ln ζ) dk − T∫σ F(ln η_1) dΛ
//
// F(x) = ln(1 + eˣ). The field B and μ enter only through the closure at
// level N+1, through 2B/T for spin strings and (U − 2μ)/T for k-Λ strings.
package grandpotential

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/PDoakORNL/BetheAnsatz/internal/fixedpoint"
	"github.com/PDoakORNL/BetheAnsatz/internal/grounded"
	"github.com/PDoakORNL/BetheAnsatz/internal/kernel"
	"github.com/PDoakORNL/BetheAnsatz/internal/toeplitz"
)

// ErrInvalidPoint reports a temperature or chemical potential the equations
// are not defined for.
var ErrInvalidPoint = errors.New("grandpotential: invalid point")

const (
	DefaultStrings = 10
	DefaultTol     = 1e-10
	DefaultMaxIter = 100000
)

// Options tunes the truncation and the iteration.
type Options struct {
	Strings int     // levels kept in each string hierarchy
	Tol     float64 // stop when T·max|Δ ln| < Tol
	MaxIter int
	Mixing  float64 // in (0, 1]; 0 selects 1
	Field   float64 // magnetic field B
}

func (o Options) withDefaults() Options {
	if o.Strings == 0 {
		o.Strings = DefaultStrings
	}
	if o.Tol == 0 {
		o.Tol = DefaultTol
	}
	if o.MaxIter == 0 {
		o.MaxIter = DefaultMaxIter
	}
	if o.Mixing == 0 {
		o.Mixing = 1
	}
	return o
}

// Result is Ω plus the diagnostics of the iteration that produced it.
type Result struct {
	Omega      float64
	Iterations int
	Residual   float64
}

// GrandPotential is bound to one (State, μ, T). It owns its work buffers and
// must not be shared between goroutines.
type GrandPotential struct {
	st   *grounded.State
	mu   float64
	temp float64
	opts Options

	kappa0, rho0, sigma []float64
	spinStep            float64   // closure for η
	chargeStep          []float64 // closure for η', per Λ

	ws     *toeplitz.Workspace
	fz, gz []float64   // F(ln ζ), F(−ln ζ)
	fe, fp [][]float64 // F(ln η_n), F(ln η'_n) for n = 1..N+1
	src    []float64
	diff   []float64
	cg, cf []float64 // CK·gz, CK·fz
}

// New checks the point and allocates the buffers.
func New(st *grounded.State, mu, T float64, opts Options) (*GrandPotential, error) {
	opts = opts.withDefaults()
	switch {
	case !(T > 0) || math.IsInf(T, 0):
		return nil, fmt.Errorf("%w: T=%g", ErrInvalidPoint, T)
	case math.IsNaN(mu) || math.IsInf(mu, 0):
		return nil, fmt.Errorf("%w: mu=%g", ErrInvalidPoint, mu)
	case math.IsNaN(opts.Field) || math.IsInf(opts.Field, 0):
		return nil, fmt.Errorf("%w: field=%g", ErrInvalidPoint, opts.Field)
	case opts.Strings < 1:
		return nil, fmt.Errorf("grandpotential: strings must be >= 1, got %d", opts.Strings)
	}

	nk, nl, n := st.KMesh().Len(), st.LambdaMesh().Len(), opts.Strings
	g := &GrandPotential{
		st:     st,
		mu:     mu,
		temp:   T,
		opts:   opts,
		kappa0: st.Kappa0(),
		rho0:   st.Rho0(),
		sigma:  st.Sigma(),
		ws:     st.SS().NewWorkspace(),
		fz:     make([]float64, nk),
		gz:     make([]float64, nk),
		fe:     matrix(n+1, nl),
		fp:     matrix(n+1, nl),
		src:    make([]float64, nl),
		diff:   make([]float64, nl),
		cg:     make([]float64, nl),
		cf:     make([]float64, nl),
	}

	U := st.U()
	g.spinStep = closureStep(math.Abs(opts.Field)/T, n)
	base := closureStep(math.Abs(U-2*mu)/(2*T), n)
	lm := st.LambdaMesh()
	g.chargeStep = make([]float64, nl)
	for j := range g.chargeStep {
		lambda := lm.Point(j)
		bare := 4*(kernel.ReSqrtN(U, n+1, lambda)-kernel.ReSqrtN(U, n, lambda)) - U
		g.chargeStep[j] = base + bare/T
	}
	return g, nil
}

// Evaluate iterates the equations to convergence and returns Ω.
func (g *GrandPotential) Evaluate(ctx context.Context) (Result, error) {
	res, err := fixedpoint.Iterate(ctx, g.initial(), g.sweep, fixedpoint.Options{
		Tol:     g.opts.Tol,
		MaxIter: g.opts.MaxIter,
		Mixing:  g.opts.Mixing,
		Scale:   g.temp,
	})
	if err != nil {
		return Result{}, fmt.Errorf("grandpotential: T=%g mu=%g: %w", g.temp, g.mu, err)
	}
	return Result{Omega: g.omega(res.X), Iterations: res.Iterations, Residual: res.Residual}, nil
}

// Omega is New followed by Evaluate.
func Omega(ctx context.Context, st *grounded.State, mu, T float64, opts Options) (float64, error) {
	g, err := New(st, mu, T, opts)
	if err != nil {
		return 0, err
	}
	r, err := g.Evaluate(ctx)
	return r.Omega, err
}

// The unknowns are packed as [ln ζ (K) | ln η_1..N (N·L) | ln η'_1..N (N·L)].
func (g *GrandPotential) split(x []float64) (z []float64, eta, etp [][]float64) {
	nk, nl, n := len(g.fz), len(g.src), g.opts.Strings
	z = x[:nk]
	eta = make([][]float64, n)
	etp = make([][]float64, n)
	off := nk
	for i := 0; i < n; i++ {
		eta[i] = x[off : off+nl]
		etp[i] = x[off+n*nl : off+(n+1)*nl]
		off += nl
	}
	return z, eta, etp
}

func (g *GrandPotential) initial() []float64 {
	nk, nl, n := len(g.fz), len(g.src), g.opts.Strings
	x := make([]float64, nk+2*n*nl)
	z, eta, etp := g.split(x)
	for i, k := range g.kappa0 {
		z[i] = k / g.temp
	}
	ys := math.Abs(g.opts.Field) / g.temp
	yc := math.Abs(g.st.U()-2*g.mu) / (2 * g.temp)
	for i := 0; i < n; i++ {
		fill(eta[i], flatLog(ys, i+1))
		fill(etp[i], flatLog(yc, i+1))
	}
	return x
}

func (g *GrandPotential) sweep(dst, x []float64) error {
	n := g.opts.Strings
	z, eta, etp := g.split(x)
	dz, deta, detp := g.split(dst)

	for i, v := range z {
		g.fz[i] = softplus(v)
		g.gz[i] = softplus(-v)
	}
	for i := 0; i < n; i++ {
		softplusTo(g.fe[i], eta[i])
		softplusTo(g.fp[i], etp[i])
	}
	for j := range g.src {
		g.fe[n][j] = g.fe[n-1][j] + g.spinStep
		g.fp[n][j] = g.fp[n-1][j] + g.chargeStep[j]
	}

	for j := range g.diff {
		g.diff[j] = g.fp[0][j] - g.fe[0][j]
	}
	g.st.MulSK(dz, g.diff)
	for i, k := range g.kappa0 {
		dz[i] += k / g.temp
	}

	g.st.MulCK(g.cg, g.gz)
	g.st.MulCK(g.cf, g.fz)
	g.hierarchy(deta, g.fe, g.cg)
	g.hierarchy(detp, g.fp, g.cf)
	return nil
}

// hierarchy writes ln η_n = s ∗ [F_{n−1} + F_{n+1}] with F_0 = 0, minus the
// k coupling on the first level.
func (g *GrandPotential) hierarchy(out [][]float64, f [][]float64, coupling []float64) {
	ss := g.st.SS()
	for i := range out {
		if i == 0 {
			copy(g.src, f[1])
		} else {
			for j := range g.src {
				g.src[j] = f[i-1][j] + f[i+1][j]
			}
		}
		ss.Apply(out[i], g.src, g.ws)
	}
	for j, c := range coupling {
		out[0][j] -= c
	}
}

func (g *GrandPotential) omega(x []float64) float64 {
	z, eta, _ := g.split(x)
	km, lm := g.st.KMesh(), g.st.LambdaMesh()
	charge, spin := 0.0, 0.0
	for i, v := range z {
		charge += km.Weight(i) * g.rho0[i] * softplus(v)
	}
	for j, v := range eta[0] {
		spin += lm.Weight(j) * g.sigma[j] * softplus(v)
	}
	return g.st.E0() - g.mu - g.temp*(charge+spin)
}

func softplusTo(dst, x []float64) {
	for i, v := range x {
		dst[i] = softplus(v)
	}
}

func fill(v []float64, c float64) {
	for i := range v {
		v[i] = c
	}
}

func matrix(r, c int) [][]float64 {
	m := make([][]float64, r)
	for i := range m {
		m[i] = make([]float64, c)
	}
	return m
}
