// internal/appcore/core.go
package appcore

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PDoakORNL/BetheAnsatz/internal/grandpotential"
	"github.com/PDoakORNL/BetheAnsatz/internal/grounded"
	"github.com/PDoakORNL/BetheAnsatz/internal/params"
	"github.com/PDoakORNL/BetheAnsatz/internal/pipeline"
	"github.com/PDoakORNL/BetheAnsatz/internal/writers"
)

// Exit codes.
const (
	ExitOK          = 0
	ExitConfig      = 2
	ExitRuntime     = 3
	ExitInterrupted = 130
)

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, params.ErrConfig):
		return ExitConfig
	default:
		return ExitRuntime
	}
}

// Options is everything a run needs besides the output streams.
type Options struct {
	Params    params.Parameters // validated
	Format    string
	Precision int
	SQLite    string // "" disables the store
	Log       *zap.Logger
}

// Run solves the ground state, sweeps the grid, and writes the table.
func Run(ctx context.Context, stdout io.Writer, o Options) int {
	log := o.Log
	if log == nil {
		log = zap.NewNop()
	}
	code, err := run(ctx, stdout, o, log)
	if err != nil && code != ExitOK {
		log.Error("Run failed", zap.Error(err), zap.Int("exit", code))
	}
	return code
}

func run(ctx context.Context, stdout io.Writer, o Options, log *zap.Logger) (int, error) {
	p := o.Params
	if err := p.Validate(); err != nil {
		return ExitConfig, err
	}
	if !writers.Known(o.Format) {
		return ExitConfig, fmt.Errorf("%w: unknown output format %q", params.ErrConfig, o.Format)
	}
	started := time.Now()

	solver, err := grounded.NewSolver(grounded.Config{
		U:         p.U,
		K:         p.Mesh.K,
		L:         p.Mesh.L,
		LambdaMax: p.Mesh.LambdaMax,
		Quad:      p.QuadratureConfig(),
	}, log)
	if err != nil {
		return ExitConfig, err
	}
	st, err := solver.Solve(ctx)
	if err != nil {
		err = fmt.Errorf("solve grounded: %w", err)
		return ExitCode(err), err
	}

	opts := p.Options()
	eval := func(ctx context.Context, T, mu float64) (float64, error) {
		return grandpotential.Omega(ctx, st, mu, T, opts)
	}
	res, err := pipeline.Grid{Workers: p.Threads, LogRoot: p.LogRoot, Logger: log}.
		Run(ctx, p.Temperatures(), p.Mus(), eval)
	if res != nil && res.LogErr != nil {
		log.Error("Worker logs incomplete", zap.Error(res.LogErr))
	}
	if err != nil {
		return ExitCode(err), err
	}

	table := writers.Table{Temperatures: res.Temperatures, Mus: res.Mus, Omega: res.Omega}
	if done, err := write(stdout, o.Format, table, o.Precision); err != nil {
		return ExitRuntime, err
	} else if done {
		return ExitOK, nil
	}

	if o.SQLite != "" {
		id, err := store(ctx, o.SQLite, p, st.E0(), started, table)
		if err != nil {
			return ExitRuntime, err
		}
		log.Info("Run stored", zap.String("db", o.SQLite), zap.String("run_id", id))
	}
	return ExitOK, nil
}

// write prints t. done reports that the reader went away, which ends the
// run without error.
func write(stdout io.Writer, format string, t writers.Table, precision int) (done bool, err error) {
	outw := bufio.NewWriter(stdout)
	if err := writers.Write(format, outw, t, precision); writers.IsBrokenPipe(err) {
		return true, nil
	} else if err != nil {
		return false, err
	}
	if err := outw.Flush(); writers.IsBrokenPipe(err) {
		return true, nil
	} else if err != nil {
		return false, err
	}
	return false, nil
}

func store(ctx context.Context, path string, p params.Parameters, e0 float64, started time.Time, t writers.Table) (id string, err error) {
	var echo bytes.Buffer
	if err := p.WriteYAML(&echo); err != nil {
		return "", err
	}
	s, err := writers.OpenStore(ctx, path)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	uid, err := s.Save(ctx, writers.Run{
		Started:    started,
		U:          p.U,
		Field:      p.Field,
		K:          p.Mesh.K,
		L:          p.Mesh.L,
		E0:         e0,
		Parameters: echo.String(),
	}, t)
	if err != nil {
		return "", err
	}
	return uid.String(), nil
}

// ShowOptions selects a stored run and how to print it.
type ShowOptions struct {
	SQLite    string
	ID        string // "" selects the latest run
	Format    string
	Precision int
	Log       *zap.Logger
}

// Show prints a run saved by Run with --sqlite.
func Show(ctx context.Context, stdout io.Writer, o ShowOptions) int {
	log := o.Log
	if log == nil {
		log = zap.NewNop()
	}
	code, err := show(ctx, stdout, o, log)
	if err != nil && code != ExitOK {
		log.Error("Show failed", zap.Error(err), zap.Int("exit", code))
	}
	return code
}

func show(ctx context.Context, stdout io.Writer, o ShowOptions, log *zap.Logger) (code int, err error) {
	if !writers.Known(o.Format) {
		return ExitConfig, fmt.Errorf("%w: unknown output format %q", params.ErrConfig, o.Format)
	}
	var id uuid.UUID
	if o.ID != "" {
		if id, err = uuid.Parse(o.ID); err != nil {
			return ExitConfig, &params.ConfigError{Field: "id", Reason: "not a run id", Err: err}
		}
	}
	if _, err := os.Stat(o.SQLite); err != nil {
		return ExitConfig, &params.ConfigError{Field: "sqlite", Reason: "cannot open database", Err: err}
	}

	s, err := writers.OpenStore(ctx, o.SQLite)
	if err != nil {
		return ExitRuntime, err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			code, err = ExitRuntime, cerr
		}
	}()
	if id == uuid.Nil {
		if id, err = s.Latest(ctx); err != nil {
			return showCode(err), err
		}
	}
	t, err := s.Load(ctx, id)
	if err != nil {
		return showCode(err), err
	}
	log.Debug("Run loaded", zap.String("db", o.SQLite), zap.String("run_id", id.String()))
	if _, err := write(stdout, o.Format, t, o.Precision); err != nil {
		return ExitRuntime, err
	}
	return ExitOK, nil
}

func showCode(err error) int {
	if errors.Is(err, writers.ErrRunNotFound) {
		return ExitConfig
	}
	return ExitCode(err)
}
