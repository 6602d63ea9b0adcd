package grounded

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/PDoakORNL/BetheAnsatz/internal/kernel"
	"github.com/PDoakORNL/BetheAnsatz/internal/mesh"
	"github.com/PDoakORNL/BetheAnsatz/internal/toeplitz"
)

// latticeCutoff stops a lattice tail sum once terms fall below this fraction
// of the running total.
const latticeCutoff = 1e-17

// trapezoidOperator is ∫ f(Λ − Λ')x(Λ') dΛ' with trapezoid weights and no
// continuation past the mesh. f must be even.
func trapezoidOperator(lm *mesh.Mesh, f func(float64) float64) (*toeplitz.Operator, error) {
	n := lm.Len()
	h := lm.Weight(1)
	t := make([]float64, n)
	lo := make([]float64, n)
	hi := make([]float64, n)
	for d := range t {
		t[d] = h * f(float64(d)*h)
	}
	for i := range lo {
		lo[i] = 0.5 * t[i]
		hi[i] = 0.5 * t[n-1-i]
	}
	return toeplitz.New(t, lo, hi)
}

// latticeOperator is the convolution with s on the Λ mesh. The mesh is
// continued as an infinite lattice on which x stays at its edge values, so
// the edge columns collect the lattice tail sums. Every row sums to 1/2.
func latticeOperator(lm *mesh.Mesh, U float64) (*toeplitz.Operator, error) {
	n := lm.Len()
	h := lm.Weight(1)
	sh := func(m int) float64 { return kernel.S(U, float64(m)*h) }

	// suffix[m] = Σ_{m' ≥ m} s(m'h)
	suffix := make([]float64, n)
	far := 0.0
	for m := n; ; m++ {
		v := sh(m)
		far += v
		if v <= latticeCutoff*far || v == 0 {
			break
		}
	}
	acc := far
	for m := n - 1; m >= 0; m-- {
		acc += sh(m)
		suffix[m] = acc
	}
	total := 2*suffix[0] - sh(0)
	c := 0.5 / total

	t := make([]float64, n)
	lo := make([]float64, n)
	hi := make([]float64, n)
	for d := range t {
		t[d] = c * sh(d)
	}
	for i := range lo {
		lo[i] = c * suffix[i]
		hi[i] = c * suffix[n-1-i]
	}
	return toeplitz.New(t, lo, hi)
}

// spinCharge is the K×L operator x ↦ ∫ s(Λ − sin k)x(Λ) dΛ, with the same
// lattice continuation and row normalization as latticeOperator.
func spinCharge(km, lm *mesh.Mesh, U float64) *mat.Dense {
	nk, nl := km.Len(), lm.Len()
	h := lm.Weight(1)
	first, last := lm.Point(0), lm.Point(nl-1)
	out := mat.NewDense(nk, nl, nil)
	row := make([]float64, nl)
	for i := 0; i < nk; i++ {
		sk := math.Sin(km.Point(i))
		for j := range row {
			row[j] = kernel.S(U, lm.Point(j)-sk)
		}
		row[0] += latticeTail(func(m int) float64 { return kernel.S(U, first-float64(m)*h-sk) })
		row[nl-1] += latticeTail(func(m int) float64 { return kernel.S(U, last+float64(m)*h-sk) })
		sum := 0.0
		for _, v := range row {
			sum += v
		}
		c := 0.5 / sum
		for j := range row {
			row[j] *= c
		}
		out.SetRow(i, row)
	}
	return out
}

// chargeSpin is the L×K operator y ↦ ∫ cos k s(Λ − sin k)y(k) dk.
func chargeSpin(km, lm *mesh.Mesh, U float64) *mat.Dense {
	nk, nl := km.Len(), lm.Len()
	out := mat.NewDense(nl, nk, nil)
	for i := 0; i < nk; i++ {
		k, w := km.At(i)
		c, sk := math.Cos(k)*w, math.Sin(k)
		for j := 0; j < nl; j++ {
			out.Set(j, i, c*kernel.S(U, lm.Point(j)-sk))
		}
	}
	return out
}

// latticeTail sums f(1) + f(2) + … until the terms no longer matter.
func latticeTail(f func(m int) float64) float64 {
	sum := 0.0
	for m := 1; ; m++ {
		v := f(m)
		sum += v
		if v <= latticeCutoff*sum || v == 0 {
			return sum
		}
	}
}
