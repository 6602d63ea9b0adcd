// Package toeplitz applies convolution operators on a uniform mesh.
//
// An Operator of size n acts as
//
//	(Ax)_i = Σ_{j=1}^{n-2} t[|i-j|] x_j + lo_i x_0 + hi_i x_{n-1}
//
// The interior is a symmetric Toeplitz matrix applied through a circulant
// embedding and gonum's real FFT. The two edge columns are free so callers
// can fold quadrature end weights or the continuation of a function past the
// mesh into them.
package toeplitz

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
)

// Operator is immutable after New and safe for concurrent use with
// one Workspace per goroutine.
type Operator struct {
	n      int
	m      int
	t      []float64
	lo, hi []float64
	hat    []complex128 // spectrum of the circulant embedding, scaled by 1/m
}

var _ mat.Matrix = (*Operator)(nil)

// New builds an operator from the kernel at offsets 0..n-1 and the two edge
// columns. The slices are copied.
func New(t, lo, hi []float64) (*Operator, error) {
	n := len(t)
	if n < 3 {
		return nil, fmt.Errorf("toeplitz: size %d < 3", n)
	}
	if len(lo) != n || len(hi) != n {
		return nil, errors.New("toeplitz: edge columns must match kernel length")
	}
	op := &Operator{
		n:  n,
		m:  fastLen(2*n - 1),
		t:  append([]float64(nil), t...),
		lo: append([]float64(nil), lo...),
		hi: append([]float64(nil), hi...),
	}

	c := make([]float64, op.m)
	c[0] = t[0]
	for d := 1; d < n; d++ {
		c[d] = t[d]
		c[op.m-d] = t[d]
	}
	op.hat = fourier.NewFFT(op.m).Coefficients(nil, c)
	scale := complex(1/float64(op.m), 0)
	for i := range op.hat {
		op.hat[i] *= scale
	}
	return op, nil
}

// Workspace holds the FFT plan and buffers of one caller.
type Workspace struct {
	fft  *fourier.FFT
	buf  []float64
	coef []complex128
}

// NewWorkspace returns buffers sized for op.
func (op *Operator) NewWorkspace() *Workspace {
	return &Workspace{
		fft:  fourier.NewFFT(op.m),
		buf:  make([]float64, op.m),
		coef: make([]complex128, op.m/2+1),
	}
}

// Len is the mesh size n.
func (op *Operator) Len() int { return op.n }

// Apply writes A·x into dst. dst may alias x. A nil ws allocates one.
func (op *Operator) Apply(dst, x []float64, ws *Workspace) {
	if len(x) != op.n || len(dst) != op.n {
		panic(fmt.Sprintf("toeplitz: length mismatch: n=%d len(x)=%d len(dst)=%d", op.n, len(x), len(dst)))
	}
	if ws == nil {
		ws = op.NewWorkspace()
	}
	x0, xn := x[0], x[op.n-1]

	buf := ws.buf
	buf[0] = 0
	copy(buf[1:op.n-1], x[1:op.n-1])
	for i := op.n - 1; i < op.m; i++ {
		buf[i] = 0
	}
	coef := ws.fft.Coefficients(ws.coef, buf)
	for i := range coef {
		coef[i] *= op.hat[i]
	}
	buf = ws.fft.Sequence(buf, coef)

	for i := 0; i < op.n; i++ {
		dst[i] = buf[i] + op.lo[i]*x0 + op.hi[i]*xn
	}
}

// Dims implements mat.Matrix.
func (op *Operator) Dims() (r, c int) { return op.n, op.n }

// At implements mat.Matrix.
func (op *Operator) At(i, j int) float64 {
	if uint(i) >= uint(op.n) || uint(j) >= uint(op.n) {
		panic(mat.ErrIndexOutOfRange)
	}
	switch j {
	case 0:
		return op.lo[i]
	case op.n - 1:
		return op.hi[i]
	}
	d := i - j
	if d < 0 {
		d = -d
	}
	return op.t[d]
}

// T implements mat.Matrix.
func (op *Operator) T() mat.Matrix { return mat.Transpose{Matrix: op} }

// RowSum returns Σ_j A_ij.
func (op *Operator) RowSum(i int) float64 {
	s := op.lo[i] + op.hi[i]
	for j := 1; j < op.n-1; j++ {
		d := i - j
		if d < 0 {
			d = -d
		}
		s += op.t[d]
	}
	return s
}

// fastLen returns the smallest 2^a·3^b·5^c ≥ n.
func fastLen(n int) int {
	for m := n; ; m++ {
		r := m
		for _, p := range []int{2, 3, 5} {
			for r%p == 0 {
				r /= p
			}
		}
		if r == 1 {
			return m
		}
	}
}
