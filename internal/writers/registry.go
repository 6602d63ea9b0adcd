// internal/writers/registry.go
package writers

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"syscall"

	"gonum.org/v1/gonum/mat"
)

// Table is the result of a sweep: Omega has one row per temperature and one
// column per μ value.
type Table struct {
	Temperatures []float64
	Mus          []float64
	Omega        mat.Matrix
}

// Check reports a table whose matrix does not match its axes.
func (t Table) Check() error {
	r, c := t.Omega.Dims()
	if r != len(t.Temperatures) || c != len(t.Mus) {
		return fmt.Errorf("writers: %d×%d matrix for %d temperatures and %d mu values", r, c, len(t.Temperatures), len(t.Mus))
	}
	return nil
}

// WriteFunc serializes t with precision significant digits.
type WriteFunc func(w io.Writer, t Table, precision int) error

// Format registry (name → writer). Register in init() blocks; last wins.
var matrixWriters = map[string]WriteFunc{}

func Register(format string, fn WriteFunc) { matrixWriters[format] = fn }

// Formats lists the registered format names in order.
func Formats() []string {
	names := make([]string, 0, len(matrixWriters))
	for name := range matrixWriters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Known reports whether format has a writer.
func Known(format string) bool { return slices.Contains(Formats(), format) }

// Write dispatches to the writer registered for format.
func Write(format string, w io.Writer, t Table, precision int) error {
	fn, ok := matrixWriters[format]
	if !ok {
		return fmt.Errorf("unknown output format %q (no writer registered)", format)
	}
	if err := t.Check(); err != nil {
		return err
	}
	return fn(w, t, precision)
}

// IsBrokenPipe reports whether err means the reader went away, as when the
// output is piped into head.
func IsBrokenPipe(err error) bool {
	return err != nil && (errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe))
}
