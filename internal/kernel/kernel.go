// internal/kernel/kernel.go
// Closed-form integrands of the Hubbard Bethe-Ansatz equations.
//
//   s(x)      = (1/U) / cosh(2πx/U)                 (∫ s = 1/2)
//   SIGMAZERO = (1/2π) s(ref − sin k)               integrated over k
//   KAPPA0    = s(λ − sin ref) · Re√(1 − (λ − iU/4)²) integrated over λ
//   a_n(x)    = (1/π) nu / ((nu)² + x²)             (∫ a_n = 1)
//
// Every function here is pure. Parameters travel in an explicit Params value.
package kernel

import (
	"fmt"
	"math"
)

const oneOver2Pi = 0.5 / math.Pi

// Mode selects which closed form Eval computes.
type Mode int

const (
	ModeSigmaZero Mode = iota
	ModeKappa0
)

func (m Mode) String() string {
	switch m {
	case ModeSigmaZero:
		return "sigmazero"
	case ModeKappa0:
		return "kappa0"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Params is the immutable parameter record of an integrand.
// Ref is λ for ModeSigmaZero and k for ModeKappa0.
type Params struct {
	U    float64
	Ref  float64
	Mode Mode
}

// Eval evaluates the integrand selected by p.Mode at the integration variable x
// (k for ModeSigmaZero, λ for ModeKappa0).
func Eval(p Params, x float64) float64 {
	if p.Mode == ModeKappa0 {
		return kappa0(p.U, x, p.Ref)
	}
	return oneOver2Pi * S(p.U, p.Ref-math.Sin(x))
}

// Func binds p into a one-argument integrand for quadrature routines.
func (p Params) Func() func(float64) float64 {
	return func(x float64) float64 { return Eval(p, x) }
}

// S is the spin kernel s(x) = (1/U)/cosh(2πx/U).
func S(U, x float64) float64 {
	return (1 / U) / math.Cosh(2*math.Pi*x/U)
}

// STail returns ∫_a^∞ s(x) dx = 1/4 − atan(sinh(2πa/U))/(2π).
func STail(U, a float64) float64 {
	return 0.25 - math.Atan(math.Sinh(2*math.Pi*a/U))*oneOver2Pi
}

// Lorentz is a_n(x) = (1/π) nu/((nu)² + x²) with u = U/4.
func Lorentz(n int, u, x float64) float64 {
	nu := float64(n) * u
	return nu / (math.Pi * (nu*nu + x*x))
}

// ReSqrt returns Re √(1 − (λ − iU/4)²) written with real arithmetic.
func ReSqrt(U, lambda float64) float64 { return ReSqrtN(U, 1, lambda) }

// ReSqrtN returns Re √(1 − (λ − inU/4)²), the bare term of a k-Λ n-string.
func ReSqrtN(U float64, n int, lambda float64) float64 {
	nu := float64(n) * U / 4
	a := 1 + nu*nu - lambda*lambda
	b := 2 * nu * lambda
	r := math.Hypot(a, b)
	if a >= 0 {
		return math.Sqrt(0.5 * (a + r))
	}
	// a + r cancels for large |λ|.
	return math.Sqrt(0.5 * b * b / (r - a))
}

func kappa0(U, lambda, k float64) float64 {
	return S(U, lambda-math.Sin(k)) * ReSqrt(U, lambda)
}
