// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/PDoakORNL/BetheAnsatz/internal/logging"
	"github.com/PDoakORNL/BetheAnsatz/internal/runutil"
)

// Evaluator returns Ω at one grid point. It is called concurrently from
// several workers and must not share mutable state between calls.
type Evaluator func(ctx context.Context, T, mu float64) (float64, error)

// Grid configures a sweep.
type Grid struct {
	Workers int    // 0 = all CPUs; capped at the number of rows
	LogRoot string // worker i logs to {LogRoot}{i}.txt; "" disables worker logs
	Logger  *zap.Logger
}

// Result is the filled matrix (rows = temperatures, columns = μ) and the
// non-fatal worker-log errors, if any.
type Result struct {
	Temperatures []float64
	Mus          []float64
	Omega        *mat.Dense
	LogErr       error
}

// Run evaluates every (T, μ) pair. The first evaluation error cancels the
// remaining workers and is returned; log-file errors land in Result.LogErr.
func (g Grid) Run(ctx context.Context, temps, mus []float64, eval Evaluator) (*Result, error) {
	if len(temps) == 0 || len(mus) == 0 {
		return nil, fmt.Errorf("pipeline: empty grid (%d temperatures, %d mu values)", len(temps), len(mus))
	}
	log := g.Logger
	if log == nil {
		log = zap.NewNop()
	}

	res := &Result{
		Temperatures: append([]float64(nil), temps...),
		Mus:          append([]float64(nil), mus...),
		Omega:        mat.NewDense(len(temps), len(mus), nil),
	}
	var (
		logMu  sync.Mutex
		logErr error
	)
	addLogErr := func(err error) {
		logMu.Lock()
		logErr = multierr.Append(logErr, err)
		logMu.Unlock()
	}

	if g.LogRoot != "" {
		removed, err := logging.CleanStale(g.LogRoot)
		if err != nil {
			addLogErr(err)
		}
		if len(removed) > 0 {
			log.Debug("Removed stale worker logs", zap.Strings("paths", removed))
		}
	}

	blocks := runutil.Partition(len(temps), runutil.Workers(g.Workers, len(temps)))
	log.Info("Grid started",
		zap.Int("workers", len(blocks)),
		zap.Int("temperatures", len(temps)),
		zap.Int("mus", len(mus)))
	start := time.Now()

	eg, ctx := errgroup.WithContext(ctx)
	for i, b := range blocks {
		eg.Go(func() error {
			wlog := zap.NewNop()
			if g.LogRoot != "" {
				l, closeFn, err := logging.WorkerFile(g.LogRoot, i)
				if err != nil {
					addLogErr(err)
				} else {
					wlog = l
					defer func() {
						if err := closeFn(); err != nil {
							addLogErr(err)
						}
					}()
				}
			}
			return g.rows(ctx, b, res, eval, wlog)
		})
	}
	err := eg.Wait()
	res.LogErr = logErr
	if err != nil {
		return nil, err
	}
	log.Info("Grid finished", zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

func (g Grid) rows(ctx context.Context, b runutil.Range, res *Result, eval Evaluator, wlog *zap.Logger) error {
	for r := b.Begin; r < b.End; r++ {
		T := res.Temperatures[r]
		for c, mu := range res.Mus {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			omega, err := eval(ctx, T, mu)
			if err != nil {
				return err
			}
			res.Omega.Set(r, c, omega)
			wlog.Info(fmt.Sprintf("T=%g mu=%g omega=%.12g elapsed=%s", T, mu, omega, time.Since(start)))
		}
	}
	return nil
}
