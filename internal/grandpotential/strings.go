package grandpotential

import "math"

// softplus is F(x) = ln(1 + eˣ) without overflow.
func softplus(x float64) float64 {
	if x > 0 {
		return x + math.Log1p(math.Exp(-x))
	}
	return math.Log1p(math.Exp(x))
}

// flatLog returns ln η_n of the Λ-independent string solution
// η_n = sinh²((n+1)y)/sinh²(y) − 1.
func flatLog(y float64, n int) float64 {
	if y == 0 {
		m := float64(n + 1)
		return math.Log(m*m - 1)
	}
	r := 2 * (float64(n)*y + math.Log(-math.Expm1(-2*float64(n+1)*y)) - math.Log(-math.Expm1(-2*y)))
	return r + math.Log(-math.Expm1(-r))
}

// closureStep is F(ln η_{N+1}) − F(ln η_N) = 2 ln[sinh((N+2)y)/sinh((N+1)y)]
// for the flat solution.
func closureStep(y float64, n int) float64 {
	if y == 0 {
		return 2 * math.Log(float64(n+2)/float64(n+1))
	}
	return 2 * (y + math.Log(-math.Expm1(-2*float64(n+2)*y)) - math.Log(-math.Expm1(-2*float64(n+1)*y)))
}
