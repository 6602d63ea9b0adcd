// Package hubbardcli defines the cobra command tree of the hubbard binary.
// Commands only parse; the work is done by the handlers passed to New.
package hubbardcli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PDoakORNL/BetheAnsatz/internal/version"
	"github.com/PDoakORNL/BetheAnsatz/internal/writers"
)

// Handlers receive the parsed options of each command.
type Handlers struct {
	Run    func(cmd *cobra.Command, o RunOptions) error
	Params func(cmd *cobra.Command, in Input) error
	Show   func(cmd *cobra.Command, o ShowOptions) error
}

// ShowOptions are the flags of the show command.
type ShowOptions struct {
	SQLite    string
	ID        string
	Output    string
	Precision int

	precisionSet bool
}

// PrecisionSet reports whether --precision was given.
func (o ShowOptions) PrecisionSet() bool { return o.precisionSet }

const example = `  # five temperatures at half filling
  hubbard run -U 4 -b 0.1 -s 0.1 -t 5 -m 2

  # a T × μ grid from a file, as TSV, also stored in SQLite
  hubbard run -i grid.yaml -o tsv --sqlite omega.db

  # check what a file resolves to
  hubbard params -i grid.yaml

  # print the last stored run again, as JSON
  hubbard show --sqlite omega.db -o json`

// New returns the root command.
func New(h Handlers) *cobra.Command {
	root := &cobra.Command{
		Use:   "hubbard",
		Short: "Grand potential of the 1D Hubbard model from the Bethe Ansatz",
		Long: `hubbard computes the grand potential per site Ω(μ, T) of the one-dimensional
Hubbard model from the thermodynamic Bethe-Ansatz equations, on a grid of
temperatures and chemical potentials.`,
		Example:       example,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRun(h.Run), newParams(h.Params), newShow(h.Show), newVersion())
	return root
}

func newRun(handle func(*cobra.Command, RunOptions) error) *cobra.Command {
	var o RunOptions
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Solve the ground state and print Ω over the grid",
		Args:    cobra.NoArgs,
		Example: example,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !writers.Known(o.Output) {
				return fmt.Errorf("unknown output %q (want %s)", o.Output, strings.Join(writers.Formats(), " | "))
			}
			o.precisionSet = cmd.Flags().Changed("precision")
			return handle(cmd, o)
		},
	}
	fs := cmd.Flags()
	bindInput(fs, &o.Input)
	fs.StringVarP(&o.Output, "output", "o", writers.FormatText, "output: "+strings.Join(writers.Formats(), " | "))
	fs.IntVarP(&o.Precision, "precision", "p", 8, "significant digits of printed values")
	fs.StringVar(&o.SQLite, "sqlite", "", "also store the run in this SQLite database")
	fs.BoolVarP(&o.Quiet, "quiet", "q", false, "log errors only")
	fs.BoolVarP(&o.Verbose, "verbose", "v", false, "log debug detail")
	cmd.MarkFlagsMutuallyExclusive("quiet", "verbose")
	return cmd
}

func newParams(handle func(*cobra.Command, Input) error) *cobra.Command {
	var in Input
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Print the resolved, validated parameters as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handle(cmd, in)
		},
	}
	bindInput(cmd.Flags(), &in)
	return cmd
}

func newShow(handle func(*cobra.Command, ShowOptions) error) *cobra.Command {
	var o ShowOptions
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a run stored with run --sqlite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !writers.Known(o.Output) {
				return fmt.Errorf("unknown output %q (want %s)", o.Output, strings.Join(writers.Formats(), " | "))
			}
			o.precisionSet = cmd.Flags().Changed("precision")
			return handle(cmd, o)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&o.SQLite, "sqlite", "", "database written by run --sqlite")
	fs.StringVar(&o.ID, "id", "", "run id (default: the latest run)")
	fs.StringVarP(&o.Output, "output", "o", writers.FormatText, "output: "+strings.Join(writers.Formats(), " | "))
	fs.IntVarP(&o.Precision, "precision", "p", 8, "significant digits of printed values")
	_ = cmd.MarkFlagRequired("sqlite")
	return cmd
}

func newVersion() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "hubbard version %s\n", version.Version)
			return err
		},
	}
}
