// Package quadrature adapts integrands to gonum's fixed-order Gauss–Legendre
// rule and turns it into a tolerance-driven integrator.
//
// Each piece between breakpoints is evaluated with n, 2n, 4n, … nodes until two
// successive estimates agree. Pieces with an infinite end are first mapped
// onto a finite interval, since the Legendre rule only takes finite bounds. The node budget is bounded; exhausting it is
// reported as *NonConvergenceError rather than returning the last estimate.
package quadrature

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate/quad"
)

// ErrNoConvergence is matched by every *NonConvergenceError.
var ErrNoConvergence = errors.New("quadrature: tolerance not reached")

// NonConvergenceError describes the piece that could not be integrated.
type NonConvergenceError struct {
	A, B     float64 // piece bounds
	Nodes    int     // largest rule tried
	Estimate float64
	ErrEst   float64
}

func (e *NonConvergenceError) Error() string {
	return fmt.Sprintf("quadrature: no convergence on [%g, %g] after %d nodes (estimate %g, error %g)",
		e.A, e.B, e.Nodes, e.Estimate, e.ErrEst)
}

func (e *NonConvergenceError) Unwrap() error { return ErrNoConvergence }

// Config holds tolerances and the evaluation budget.
type Config struct {
	RelTol   float64
	AbsTol   float64
	MinNodes int // first rule order per piece
	MaxNodes int // largest rule order per piece
}

// Default returns the tolerances used by the solvers.
func Default() Config {
	return Config{RelTol: 1e-10, AbsTol: 1e-13, MinNodes: 32, MaxNodes: 4096}
}

func (c Config) normalized() Config {
	d := Default()
	if c.RelTol <= 0 {
		c.RelTol = d.RelTol
	}
	if c.AbsTol <= 0 {
		c.AbsTol = d.AbsTol
	}
	if c.MinNodes <= 0 {
		c.MinNodes = d.MinNodes
	}
	if c.MaxNodes <= 0 {
		c.MaxNodes = max(d.MaxNodes, c.MinNodes)
	}
	if c.MaxNodes < c.MinNodes {
		c.MaxNodes = c.MinNodes
	}
	return c
}

// Integrate returns ∫_a^b f. Bounds may be infinite. Breakpoints strictly
// inside (a, b) split the interval; points outside or on the bounds are
// ignored, so the periodic form Integrate(f, -π, π, -π, π) is accepted.
func (c Config) Integrate(f func(float64) float64, a, b float64, breakpoints ...float64) (float64, error) {
	if math.IsNaN(a) || math.IsNaN(b) {
		return 0, fmt.Errorf("quadrature: NaN bound [%g, %g]", a, b)
	}
	sign := 1.0
	if a > b {
		a, b = b, a
		sign = -1
	}
	if a == b {
		return 0, nil
	}
	c = c.normalized()

	edges := pieces(a, b, breakpoints)
	total := 0.0
	for i := 0; i+1 < len(edges); i++ {
		v, err := c.piece(f, edges[i], edges[i+1])
		if err != nil {
			return 0, err
		}
		total += v
	}
	return sign * total, nil
}

func (c Config) piece(f func(float64) float64, a, b float64) (float64, error) {
	g, ga, gb := finite(f, a, b)
	v, err := c.rule(g, ga, gb)
	var nc *NonConvergenceError
	if errors.As(err, &nc) {
		nc.A, nc.B = a, b
	}
	return v, err
}

// finite rewrites ∫_a^b f over a bounded interval.
//
//	(−∞, ∞): x = t/(1−t²),   t ∈ (−1, 1)
//	[a, ∞):  x = a + t/(1−t), t ∈ (0, 1)
//	(−∞, b]: x = b − t/(1−t), t ∈ (0, 1)
//
// The rule never evaluates the open ends, and points where f vanishes
// contribute zero however large the Jacobian.
func finite(f func(float64) float64, a, b float64) (func(float64) float64, float64, float64) {
	lo, hi := math.IsInf(a, -1), math.IsInf(b, 1)
	switch {
	case lo && hi:
		return func(t float64) float64 {
			d := 1 - t*t
			return scaled(f(t/d), (1+t*t)/(d*d))
		}, -1, 1
	case hi:
		return func(t float64) float64 {
			d := 1 - t
			return scaled(f(a+t/d), 1/(d*d))
		}, 0, 1
	case lo:
		return func(t float64) float64 {
			d := 1 - t
			return scaled(f(b-t/d), 1/(d*d))
		}, 0, 1
	}
	return f, a, b
}

func scaled(v, jac float64) float64 {
	if v == 0 {
		return 0
	}
	return v * jac
}

func (c Config) rule(f func(float64) float64, a, b float64) (float64, error) {
	n := c.MinNodes
	prev := quad.Fixed(f, a, b, n, quad.Legendre{}, 0)
	errEst := math.Inf(1)
	for 2*n <= c.MaxNodes {
		n *= 2
		cur := quad.Fixed(f, a, b, n, quad.Legendre{}, 0)
		if math.IsNaN(cur) || math.IsInf(cur, 0) {
			return 0, &NonConvergenceError{A: a, B: b, Nodes: n, Estimate: cur, ErrEst: math.Inf(1)}
		}
		errEst = math.Abs(cur - prev)
		if errEst <= math.Max(c.AbsTol, c.RelTol*math.Abs(cur)) {
			return cur, nil
		}
		prev = cur
	}
	return 0, &NonConvergenceError{A: a, B: b, Nodes: n, Estimate: prev, ErrEst: errEst}
}

func pieces(a, b float64, breakpoints []float64) []float64 {
	edges := make([]float64, 0, len(breakpoints)+2)
	edges = append(edges, a)
	for _, p := range breakpoints {
		if p > a && p < b {
			edges = append(edges, p)
		}
	}
	edges = append(edges, b)
	sort.Float64s(edges)

	out := edges[:1]
	for _, e := range edges[1:] {
		if e != out[len(out)-1] {
			out = append(out, e)
		}
	}
	return out
}
