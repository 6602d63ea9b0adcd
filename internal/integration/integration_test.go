// internal/integration/integration_test.go
package integration

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PDoakORNL/BetheAnsatz/internal/hubbardapp"
)

func write(t *testing.T, name, data string) string {
	t.Helper()
	fn := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(fn, []byte(data), 0o644))
	return fn
}

func gridFile(t *testing.T, k, l int) string {
	return write(t, "grid.yaml", `
u: 4
mesh:
  k: `+strconv.Itoa(k)+`
  l: `+strconv.Itoa(l)+`
temperature:
  begin: 0.1
  step: 0.1
  steps: 5
mu:
  begin: -2
  step: 1
  steps: 3
`)
}

func parseMatrix(t *testing.T, out string) [][]float64 {
	t.Helper()
	var m [][]float64
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var row []float64
		for _, f := range strings.Fields(line) {
			v, err := strconv.ParseFloat(f, 64)
			require.NoError(t, err, line)
			row = append(row, v)
		}
		m = append(m, row)
	}
	return m
}

func checkGrid(t *testing.T, k, l int) {
	t.Helper()
	cfg := gridFile(t, k, l)
	logRoot := filepath.Join(t.TempDir(), "omega")

	var out, errBuf bytes.Buffer
	code := hubbardapp.Run([]string{"run", "-i", cfg, "-j", "3", "--log-root", logRoot, "-p", "12", "-q"}, &out, &errBuf)
	require.Equal(t, 0, code, errBuf.String())

	m := parseMatrix(t, out.String())
	require.Len(t, m, 5)
	for i, row := range m {
		require.Len(t, row, 3, "row %d", i)
		for _, v := range row {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "row %d: %v", i, row)
		}
		assert.Greater(t, row[0], row[1], "row %d decreasing in mu", i)
		assert.Greater(t, row[1], row[2], "row %d decreasing in mu", i)
		assert.LessOrEqual(t, row[0]-2*row[1]+row[2], 0.0, "row %d concave in mu", i)
	}

	for i := 0; i < 3; i++ {
		_, err := os.Stat(logRoot + strconv.Itoa(i) + ".txt")
		assert.NoError(t, err, "worker %d log", i)
	}
}

func TestEndToEnd_ReducedMesh(t *testing.T) {
	checkGrid(t, 48, 161)
}

func TestEndToEnd_FullMesh(t *testing.T) {
	if testing.Short() {
		t.Skip("full mesh in non-short mode only")
	}
	checkGrid(t, 200, 2000)
}

func TestEndToEnd_Interrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var errBuf bytes.Buffer
	code := hubbardapp.RunContext(ctx, []string{"run", "-i", gridFile(t, 48, 161), "--log-root", ""}, &bytes.Buffer{}, &errBuf)
	assert.Equal(t, 130, code, errBuf.String())
}

func TestEndToEnd_ConfigErrorBeforeWork(t *testing.T) {
	bad := write(t, "bad.yaml", "u: -1\ntemperature: {begin: 0.1, step: 0.1, steps: 2}\n")
	var out, errBuf bytes.Buffer
	code := hubbardapp.Run([]string{"run", "-i", bad}, &out, &errBuf)
	assert.Equal(t, 2, code)
	assert.Empty(t, out.String())
	assert.Contains(t, errBuf.String(), "u")
}
