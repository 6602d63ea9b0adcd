package toeplitz

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testOperator(t *testing.T, n int) *Operator {
	t.Helper()
	k := make([]float64, n)
	lo := make([]float64, n)
	hi := make([]float64, n)
	for d := range k {
		k[d] = math.Exp(-0.3 * float64(d))
	}
	for i := range lo {
		lo[i] = 0.5 * k[i]
		hi[i] = 0.25 + 0.01*float64(i)
	}
	op, err := New(k, lo, hi)
	require.NoError(t, err)
	return op
}

func TestApply_MatchesDenseProduct(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for _, n := range []int{3, 4, 7, 32, 101} {
		op := testOperator(t, n)
		x := make([]float64, n)
		for i := range x {
			x[i] = rng.NormFloat64()
		}
		var want mat.VecDense
		want.MulVec(mat.DenseCopyOf(op), mat.NewVecDense(n, x))

		got := make([]float64, n)
		op.Apply(got, x, op.NewWorkspace())
		for i := range got {
			assert.InDelta(t, want.AtVec(i), got[i], 1e-12, "n=%d i=%d", n, i)
		}
	}
}

func TestApply_InPlaceAndReusedWorkspace(t *testing.T) {
	op := testOperator(t, 20)
	ws := op.NewWorkspace()
	x := make([]float64, 20)
	for i := range x {
		x[i] = float64(i % 3)
	}
	want := make([]float64, 20)
	op.Apply(want, x, nil)

	op.Apply(x, x, ws)
	assert.InDeltaSlice(t, want, x, 1e-12)

	// Second use of the same workspace must not see stale buffer contents.
	y := make([]float64, 20)
	for i := range y {
		y[i] = 1
	}
	got := make([]float64, 20)
	op.Apply(got, y, ws)
	for i := range got {
		assert.InDelta(t, op.RowSum(i), got[i], 1e-12)
	}
}

func TestAt_Layout(t *testing.T) {
	op := testOperator(t, 5)
	r, c := op.Dims()
	assert.Equal(t, 5, r)
	assert.Equal(t, 5, c)
	assert.Equal(t, op.At(2, 1), op.At(2, 3))
	assert.InDelta(t, 0.28, op.At(3, 4), 1e-15)
	assert.InDelta(t, 0.5*math.Exp(-0.6), op.At(2, 0), 1e-15)
	assert.Equal(t, op.At(1, 2), op.T().At(2, 1))
	assert.Panics(t, func() { op.At(5, 0) })
}

func TestNew_RejectsBadShapes(t *testing.T) {
	_, err := New([]float64{1, 2}, []float64{1, 2}, []float64{1, 2})
	assert.Error(t, err)
	_, err = New([]float64{1, 2, 3}, []float64{1, 2}, []float64{1, 2, 3})
	assert.Error(t, err)
}

func TestFastLen(t *testing.T) {
	for _, tc := range []struct{ in, want int }{{1, 1}, {7, 8}, {11, 12}, {13, 15}, {3999, 4000}, {4001, 4050}} {
		assert.Equal(t, tc.want, fastLen(tc.in), "fastLen(%d)", tc.in)
	}
}
