package grounded

import (
	"gonum.org/v1/gonum/mat"

	"github.com/PDoakORNL/BetheAnsatz/internal/mesh"
	"github.com/PDoakORNL/BetheAnsatz/internal/toeplitz"
)

// State is the solved ground state. It is never modified after Solve returns
// and may be shared by any number of goroutines.
type State struct {
	u         float64
	k, lambda *mesh.Mesh

	sigma      []float64 // iterated spin density on the Λ mesh
	sigma0     []float64 // closed-form spin density
	rho0       []float64 // charge density on the k mesh
	kappa0     []float64 // half-filling dressed energy on the k mesh
	e0         float64
	iterations int
	residual   float64

	ss *toeplitz.Operator
	sk *mat.Dense // K×L
	ck *mat.Dense // L×K
}

func (s *State) U() float64 { return s.u }

// E0 is the ground-state energy per site at half filling.
func (s *State) E0() float64 { return s.e0 }

func (s *State) KMesh() *mesh.Mesh { return s.k }
func (s *State) LambdaMesh() *mesh.Mesh { return s.lambda }

// Iterations and Residual describe the density iteration.
func (s *State) Iterations() int { return s.iterations }
func (s *State) Residual() float64 { return s.residual }

// Sigma returns a copy of σ(Λ).
func (s *State) Sigma() []float64 { return clone(s.sigma) }

// Sigma0 returns a copy of the closed-form σ(Λ).
func (s *State) Sigma0() []float64 { return clone(s.sigma0) }

// Rho0 returns a copy of ρ0(k).
func (s *State) Rho0() []float64 { return clone(s.rho0) }

// Kappa0 returns a copy of κ0(k).
func (s *State) Kappa0() []float64 { return clone(s.kappa0) }

// SS is the Λ-Λ convolution with s.
func (s *State) SS() *toeplitz.Operator { return s.ss }

// MulSK writes SK·x into dst (len K), where SK is ∫ s(Λ − sin k)· dΛ.
func (s *State) MulSK(dst, x []float64) { mulVec(s.sk, dst, x) }

// MulCK writes CK·y into dst (len L), where CK is ∫ cos k s(Λ − sin k)· dk.
func (s *State) MulCK(dst, y []float64) { mulVec(s.ck, dst, y) }

func clone(v []float64) []float64 { return append([]float64(nil), v...) }
