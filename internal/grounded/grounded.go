// internal/grounded/grounded.go
// Half-filled ground state of the Hubbard chain and the kernel operators the
// finite-temperature equations reuse.
//
//	σ(Λ) = (1/2π)∫ a1(sin k − Λ) dk − ∫ a2(Λ − Λ')σ(Λ') dΛ'
//	ρ0(k) = 1/2π + cos k ∫ a1(sin k − Λ)σ(Λ) dΛ
//	E0 = −2∫ cos k ρ0(k) dk
//	κ0(k) = −2cos k − 4∫ s(λ − sin k) Re√(1 − (λ − iU/4)²) dλ
package grounded

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/PDoakORNL/BetheAnsatz/internal/fixedpoint"
	"github.com/PDoakORNL/BetheAnsatz/internal/kernel"
	"github.com/PDoakORNL/BetheAnsatz/internal/mesh"
	"github.com/PDoakORNL/BetheAnsatz/internal/quadrature"
)

// ErrAlreadySolved is returned by a second call to Solver.Solve.
var ErrAlreadySolved = errors.New("grounded: solver already used")

const (
	DefaultTol     = 1e-12
	DefaultMaxIter = 10000

	// σ ← ½σ + ½(g − a2∗σ); a2∗ has spectrum in [0, 1).
	damping = 0.5

	// Weight of s outside [−Λmax, Λmax] above which the cutoff is reported.
	tailWarn = 1e-8
)

// Config selects U, the mesh sizes and the stopping rule.
type Config struct {
	U         float64
	K         int     // k mesh size
	L         int     // Λ mesh size
	LambdaMax float64 // Λ cutoff; 0 selects mesh.LambdaMax(U)
	Tol       float64 // 0 selects DefaultTol
	MaxIter   int     // 0 selects DefaultMaxIter
	Quad      quadrature.Config
}

func (c Config) withDefaults() Config {
	if c.LambdaMax == 0 {
		c.LambdaMax = mesh.LambdaMax(c.U)
	}
	if c.Tol == 0 {
		c.Tol = DefaultTol
	}
	if c.MaxIter == 0 {
		c.MaxIter = DefaultMaxIter
	}
	return c
}

func (c Config) validate() error {
	switch {
	case !(c.U > 0) || math.IsInf(c.U, 0):
		return fmt.Errorf("grounded: U must be positive and finite, got %g", c.U)
	case c.K < 4:
		return fmt.Errorf("grounded: K must be >= 4, got %d", c.K)
	case c.L < 3:
		return fmt.Errorf("grounded: L must be >= 3, got %d", c.L)
	case !(c.Tol > 0):
		return fmt.Errorf("grounded: tolerance must be positive, got %g", c.Tol)
	case c.MaxIter < 1:
		return fmt.Errorf("grounded: MaxIter must be >= 1, got %d", c.MaxIter)
	}
	return nil
}

// Solver performs one ground-state solve. It is not safe for concurrent use.
type Solver struct {
	cfg  Config
	log  *zap.Logger
	used bool
}

// NewSolver validates cfg. A nil logger discards output.
func NewSolver(cfg Config, log *zap.Logger) (*Solver, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Solver{cfg: cfg, log: log}, nil
}

// Solve runs the self-consistent iteration and builds the State.
// Any failure is final; the solver cannot be reused.
func (s *Solver) Solve(ctx context.Context) (*State, error) {
	if s.used {
		return nil, ErrAlreadySolved
	}
	s.used = true
	start := time.Now()
	cfg := s.cfg

	km, err := mesh.Periodic(cfg.K)
	if err != nil {
		return nil, err
	}
	lm, err := mesh.Uniform(cfg.L, cfg.LambdaMax)
	if err != nil {
		return nil, err
	}
	st := &State{u: cfg.U, k: km, lambda: lm}

	g, err := s.bareTerm(ctx, lm)
	if err != nil {
		return nil, err
	}
	a2, err := trapezoidOperator(lm, func(x float64) float64 { return kernel.Lorentz(2, cfg.U/4, x) })
	if err != nil {
		return nil, err
	}
	ws := a2.NewWorkspace()
	density := func(dst, sigma []float64) error {
		a2.Apply(dst, sigma, ws)
		floats.SubTo(dst, g, dst)
		return nil
	}
	res, err := fixedpoint.Iterate(ctx, g, density, fixedpoint.Options{
		Tol:     cfg.Tol,
		MaxIter: cfg.MaxIter,
		Mixing:  damping,
	})
	if err != nil {
		return nil, fmt.Errorf("grounded: density equation: %w", err)
	}
	st.sigma = res.X
	st.iterations = res.Iterations
	st.residual = res.Residual

	if st.sigma0, err = s.sigmaZero(ctx, lm); err != nil {
		return nil, err
	}
	st.rho0 = chargeDensity(cfg.U, km, lm, st.sigma)
	st.e0 = 0
	for i := 0; i < km.Len(); i++ {
		k, w := km.At(i)
		st.e0 -= 2 * w * math.Cos(k) * st.rho0[i]
	}
	if st.kappa0, err = s.dressedEnergy(ctx, km); err != nil {
		return nil, err
	}
	if st.ss, err = latticeOperator(lm, cfg.U); err != nil {
		return nil, err
	}
	st.sk = spinCharge(km, lm, cfg.U)
	st.ck = chargeSpin(km, lm, cfg.U)

	tail := 2 * kernel.STail(cfg.U, cfg.LambdaMax)
	if tail > tailWarn {
		s.log.Warn("Lambda cutoff truncates the spin kernel",
			zap.Float64("lambdaMax", cfg.LambdaMax),
			zap.Float64("kernelTail", tail),
		)
	}
	s.log.Info("Grounded state solved",
		zap.Float64("U", cfg.U),
		zap.Int("K", cfg.K),
		zap.Int("L", cfg.L),
		zap.Float64("lambdaMax", cfg.LambdaMax),
		zap.Float64("kernelTail", tail),
		zap.Int("iterations", st.iterations),
		zap.Float64("residual", st.residual),
		zap.Float64("E0", st.e0),
		zap.Float64("sigmaDeviation", floats.Distance(st.sigma, st.sigma0, math.Inf(1))),
		zap.Duration("elapsed", time.Since(start)),
	)
	return st, nil
}

// bareTerm is g(Λ) = (1/2π)∫_{−π}^{π} a1(sin k − Λ) dk.
func (s *Solver) bareTerm(ctx context.Context, lm *mesh.Mesh) ([]float64, error) {
	u := s.cfg.U / 4
	g := make([]float64, lm.Len())
	for j := range g {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lambda := lm.Point(j)
		f := func(k float64) float64 { return kernel.Lorentz(1, u, math.Sin(k)-lambda) }
		v, err := s.cfg.Quad.Integrate(f, -math.Pi, math.Pi, breakpoints(lambda)...)
		if err != nil {
			return nil, fmt.Errorf("grounded: bare term at Λ=%g: %w", lambda, err)
		}
		g[j] = v / (2 * math.Pi)
	}
	return g, nil
}

// sigmaZero is the closed-form solution ∫ (1/2π) s(Λ − sin k) dk.
func (s *Solver) sigmaZero(ctx context.Context, lm *mesh.Mesh) ([]float64, error) {
	out := make([]float64, lm.Len())
	for j := range out {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := kernel.Params{U: s.cfg.U, Ref: lm.Point(j), Mode: kernel.ModeSigmaZero}
		v, err := s.cfg.Quad.Integrate(p.Func(), -math.Pi, math.Pi, breakpoints(p.Ref)...)
		if err != nil {
			return nil, fmt.Errorf("grounded: sigma0 at Λ=%g: %w", p.Ref, err)
		}
		out[j] = v
	}
	return out, nil
}

func (s *Solver) dressedEnergy(ctx context.Context, km *mesh.Mesh) ([]float64, error) {
	out := make([]float64, km.Len())
	for i := range out {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := kernel.Params{U: s.cfg.U, Ref: km.Point(i), Mode: kernel.ModeKappa0}
		v, err := s.cfg.Quad.Integrate(p.Func(), math.Inf(-1), math.Inf(1), math.Sin(p.Ref))
		if err != nil {
			return nil, fmt.Errorf("grounded: kappa0 at k=%g: %w", p.Ref, err)
		}
		out[i] = -2*math.Cos(p.Ref) - 4*v
	}
	return out, nil
}

func chargeDensity(U float64, km, lm *mesh.Mesh, sigma []float64) []float64 {
	u := U / 4
	ws := make([]float64, lm.Len())
	for j := range ws {
		ws[j] = lm.Weight(j) * sigma[j]
	}
	rho := make([]float64, km.Len())
	for i := range rho {
		k := km.Point(i)
		sk := math.Sin(k)
		acc := 0.0
		for j, w := range ws {
			acc += kernel.Lorentz(1, u, sk-lm.Point(j)) * w
		}
		rho[i] = 1/(2*math.Pi) + math.Cos(k)*acc
	}
	return rho
}

// breakpoints returns ±π and the k where sin k = λ, if any.
func breakpoints(lambda float64) []float64 {
	bp := []float64{-math.Pi, math.Pi}
	if math.Abs(lambda) <= 1 {
		k1 := math.Asin(lambda)
		k2 := math.Pi - k1
		if k2 > math.Pi {
			k2 -= 2 * math.Pi
		}
		bp = append(bp, k1, k2)
	}
	return bp
}

func mulVec(m *mat.Dense, dst, x []float64) {
	r, c := m.Dims()
	if len(dst) != r || len(x) != c {
		panic(fmt.Sprintf("grounded: operator %dx%d applied to %d -> %d", r, c, len(x), len(dst)))
	}
	mat.NewVecDense(r, dst).MulVec(m, mat.NewVecDense(c, x))
}
