// internal/hubbardapp/app.go
package hubbardapp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/PDoakORNL/BetheAnsatz/internal/appcore"
	"github.com/PDoakORNL/BetheAnsatz/internal/hubbardcli"
	"github.com/PDoakORNL/BetheAnsatz/internal/logging"
	"github.com/PDoakORNL/BetheAnsatz/internal/params"
	"github.com/PDoakORNL/BetheAnsatz/internal/writers"
)

// exitError carries an exit code through cobra.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// RunContext executes the hubbard command line and returns the exit code.
func RunContext(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	return run(ctx, argv, stdout, stderr, params.LoadSettings)
}

// Run is RunContext without cancellation.
func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}

func run(ctx context.Context, argv []string, stdout, stderr io.Writer, settings func() (params.Settings, error)) int {
	env, err := settings()
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "error:", err)
		return appcore.ExitConfig
	}

	code := appcore.ExitOK
	root := hubbardcli.New(hubbardcli.Handlers{
		Run: func(cmd *cobra.Command, o hubbardcli.RunOptions) error {
			p, err := o.Resolve(env)
			if err != nil {
				return &exitError{appcore.ExitConfig, err}
			}
			precision, err := precisionOf(env, o.PrecisionSet(), o.Precision)
			if err != nil {
				return err
			}
			level := env.LogLevel
			switch {
			case o.Quiet:
				level = "error"
			case o.Verbose:
				level = "debug"
			}
			log, err := logging.New(logging.Config{Level: level, Format: env.LogFormat}, stderr)
			if err != nil {
				return &exitError{appcore.ExitConfig, err}
			}
			defer func() { _ = log.Sync() }()

			code = appcore.Run(cmd.Context(), stdout, appcore.Options{
				Params:    p,
				Format:    o.Output,
				Precision: precision,
				SQLite:    o.SQLite,
				Log:       log,
			})
			return nil
		},
		Show: func(cmd *cobra.Command, o hubbardcli.ShowOptions) error {
			precision, err := precisionOf(env, o.PrecisionSet(), o.Precision)
			if err != nil {
				return err
			}
			log, err := logging.New(logging.Config{Level: env.LogLevel, Format: env.LogFormat}, stderr)
			if err != nil {
				return &exitError{appcore.ExitConfig, err}
			}
			defer func() { _ = log.Sync() }()
			code = appcore.Show(cmd.Context(), stdout, appcore.ShowOptions{
				SQLite:    o.SQLite,
				ID:        o.ID,
				Format:    o.Output,
				Precision: precision,
				Log:       log,
			})
			return nil
		},
		Params: func(_ *cobra.Command, in hubbardcli.Input) error {
			p, err := in.Resolve(env)
			if err != nil {
				return &exitError{appcore.ExitConfig, err}
			}
			outw := bufio.NewWriter(stdout)
			if err := p.WriteYAML(outw); err != nil {
				return &exitError{appcore.ExitRuntime, err}
			}
			if err := outw.Flush(); err != nil && !writers.IsBrokenPipe(err) {
				return &exitError{appcore.ExitRuntime, err}
			}
			return nil
		},
	})
	root.SetArgs(argv)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		if writers.IsBrokenPipe(err) {
			return appcore.ExitOK
		}
		_, _ = fmt.Fprintln(stderr, "error:", err)
		var ee *exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		// Flag and argument errors from cobra.
		return appcore.ExitConfig
	}
	return code
}

// precisionOf prefers --precision over HUBBARD_PRECISION.
func precisionOf(env params.Settings, set bool, flag int) (int, error) {
	p := env.Precision
	if set {
		p = flag
	}
	if p < 1 || p > 17 {
		return 0, &exitError{appcore.ExitConfig, fmt.Errorf("precision must be in [1, 17], got %d", p)}
	}
	return p, nil
}
