// internal/fixedpoint/fixedpoint.go
// Damped fixed-point iteration x ← (1−α)x + α·M(x) with a sup-norm stop rule.
package fixedpoint

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ErrNoConvergence is matched by every *NonConvergenceError.
var ErrNoConvergence = errors.New("fixedpoint: iteration limit reached")

// NonConvergenceError reports the state of an iteration that hit MaxIter.
type NonConvergenceError struct {
	Iterations int
	Residual   float64
	Tol        float64
}

func (e *NonConvergenceError) Error() string {
	return fmt.Sprintf("fixedpoint: no convergence after %d iterations (residual %.3g > tol %.3g)",
		e.Iterations, e.Residual, e.Tol)
}

func (e *NonConvergenceError) Unwrap() error { return ErrNoConvergence }

// Map writes M(x) into dst. dst and x never alias.
type Map func(dst, x []float64) error

// Options configures Iterate.
type Options struct {
	Tol     float64 // stop when Scale·max|Δx| < Tol
	MaxIter int
	Mixing  float64 // α in (0, 1]; 0 means 1
	Scale   float64 // residual multiplier; 0 means 1
	// KeepHistory records every residual in Result.Residuals.
	KeepHistory bool
}

// Result is the converged iterate plus diagnostics.
type Result struct {
	X          []float64
	Iterations int
	Residual   float64
	Residuals  []float64
}

// Iterate runs the damped iteration from x0 (which is not modified).
// ctx is checked between sweeps.
func Iterate(ctx context.Context, x0 []float64, m Map, o Options) (Result, error) {
	if o.Mixing == 0 {
		o.Mixing = 1
	}
	if o.Scale == 0 {
		o.Scale = 1
	}
	if !(o.Mixing > 0 && o.Mixing <= 1) {
		return Result{}, fmt.Errorf("fixedpoint: mixing %g outside (0, 1]", o.Mixing)
	}
	if o.MaxIter < 1 {
		return Result{}, fmt.Errorf("fixedpoint: MaxIter %d < 1", o.MaxIter)
	}

	x := append([]float64(nil), x0...)
	next := make([]float64, len(x))
	res := Result{Residual: math.Inf(1)}
	for it := 1; it <= o.MaxIter; it++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if err := m(next, x); err != nil {
			return Result{}, err
		}
		if o.Mixing != 1 {
			// next = α·next + (1−α)·x
			floats.Scale(o.Mixing, next)
			floats.AddScaled(next, 1-o.Mixing, x)
		}
		r := o.Scale * floats.Distance(next, x, math.Inf(1))
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return Result{}, fmt.Errorf("fixedpoint: non-finite residual at iteration %d", it)
		}
		x, next = next, x
		res.Iterations = it
		res.Residual = r
		if o.KeepHistory {
			res.Residuals = append(res.Residuals, r)
		}
		if r < o.Tol {
			res.X = x
			return res, nil
		}
	}
	return Result{}, &NonConvergenceError{Iterations: res.Iterations, Residual: res.Residual, Tol: o.Tol}
}
