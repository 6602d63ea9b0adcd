// internal/mesh/mesh.go
package mesh

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Mesh is an ordered set of quadrature nodes with matching weights.
// Construct with Periodic or Uniform.
type Mesh struct {
	points  []float64
	weights []float64
}

// Periodic returns n midpoint nodes k_i = -π + 2π(i+½)/n with weight 2π/n.
// The trapezoid rule on a periodic grid is spectrally accurate for smooth
// 2π-periodic integrands.
func Periodic(n int) (*Mesh, error) {
	if n < 1 {
		return nil, fmt.Errorf("mesh: periodic size %d < 1", n)
	}
	h := 2 * math.Pi / float64(n)
	m := &Mesh{points: make([]float64, n), weights: make([]float64, n)}
	for i := range m.points {
		m.points[i] = -math.Pi + h*(float64(i)+0.5)
		m.weights[i] = h
	}
	return m, nil
}

// Uniform returns n equally spaced nodes on [-max, max] with trapezoid weights.
func Uniform(n int, max float64) (*Mesh, error) {
	if n < 2 {
		return nil, fmt.Errorf("mesh: uniform size %d < 2", n)
	}
	if !(max > 0) || math.IsInf(max, 0) {
		return nil, fmt.Errorf("mesh: half-width %g must be positive and finite", max)
	}
	h := 2 * max / float64(n-1)
	m := &Mesh{points: make([]float64, n), weights: make([]float64, n)}
	for i := range m.points {
		m.points[i] = -max + h*float64(i)
		m.weights[i] = h
	}
	m.points[n-1] = max
	m.weights[0] = h / 2
	m.weights[n-1] = h / 2
	return m, nil
}

// Len reports the number of nodes.
func (m *Mesh) Len() int { return len(m.points) }

// At returns node i and its weight.
func (m *Mesh) At(i int) (x, w float64) { return m.points[i], m.weights[i] }

// Point returns node i.
func (m *Mesh) Point(i int) float64 { return m.points[i] }

// Weight returns the weight of node i.
func (m *Mesh) Weight(i int) float64 { return m.weights[i] }

// Sum returns Σ w_i f(x_i).
func (m *Mesh) Sum(f func(float64) float64) float64 {
	s := 0.0
	for i, x := range m.points {
		s += m.weights[i] * f(x)
	}
	return s
}

// Dot returns Σ w_i v_i for values already sampled on the nodes.
func (m *Mesh) Dot(v []float64) float64 {
	return floats.Dot(m.weights, v)
}

// LambdaMax returns the default Λ cutoff for U: the point past which s has
// decayed below 1e-14 of its peak.
func LambdaMax(U float64) float64 {
	return 1 + U/(2*math.Pi)*math.Log(1e14)
}
