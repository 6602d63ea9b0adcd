// internal/runutil/runutil.go
package runutil

import "runtime"

// Range is the half-open row block [Begin, End) owned by one worker.
type Range struct {
	Begin, End int
}

// Len returns the number of rows in r.
func (r Range) Len() int { return r.End - r.Begin }

// Workers resolves a requested worker count: 0 or less means all CPUs, and
// never more workers than rows. The result is at least 1.
func Workers(requested, rows int) int {
	w := requested
	if w <= 0 {
		w = runtime.NumCPU()
	}
	if w > rows {
		w = rows
	}
	if w < 1 {
		w = 1
	}
	return w
}

// Partition splits total rows into contiguous blocks, one per worker.
// Block sizes differ by at most one; the first total%workers blocks get the
// extra row. Empty blocks are omitted when workers > total.
func Partition(total, workers int) []Range {
	if total <= 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > total {
		workers = total
	}
	out := make([]Range, 0, workers)
	size, extra := total/workers, total%workers
	begin := 0
	for i := 0; i < workers; i++ {
		n := size
		if i < extra {
			n++
		}
		out = append(out, Range{Begin: begin, End: begin + n})
		begin += n
	}
	return out
}
