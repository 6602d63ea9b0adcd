// internal/hubbardcli/options.go
package hubbardcli

import (
	"github.com/spf13/pflag"

	"github.com/PDoakORNL/BetheAnsatz/internal/params"
)

// Input is the parameter file plus the command-line overrides of its
// fields. An override applies only when its flag was given.
type Input struct {
	File string

	U, Field float64
	K, L     int
	LogRoot  string

	TBegin, TEnd, TStep    float64
	TSteps                 int
	MuBegin, MuEnd, MuStep float64
	MuSteps                int

	Threads int
	Strings int

	changed func(name string) bool
}

// RunOptions are the flags of `hubbard run`.
type RunOptions struct {
	Input
	Output    string
	Precision int
	SQLite    string
	Quiet     bool
	Verbose   bool

	precisionSet bool
}

// PrecisionSet reports whether -p was given.
func (o RunOptions) PrecisionSet() bool { return o.precisionSet }

func bindInput(fs *pflag.FlagSet, in *Input) {
	fs.StringVarP(&in.File, "input", "i", "", "parameter file (.yaml, .json or .toml)")
	fs.Float64VarP(&in.U, "U", "U", 0, "on-site interaction U")
	fs.Float64Var(&in.Field, "field", 0, "magnetic field B")
	fs.IntVarP(&in.K, "K", "K", 0, "k mesh size")
	fs.IntVarP(&in.L, "L", "L", 0, "Λ mesh size")
	fs.StringVar(&in.LogRoot, "log-root", "", "worker log prefix; worker i writes {log-root}{i}.txt")

	fs.Float64VarP(&in.TBegin, "t-begin", "b", 0, "first temperature")
	fs.Float64Var(&in.TEnd, "t-end", 0, "last temperature (derives the step when --t-step is 0)")
	fs.Float64VarP(&in.TStep, "t-step", "s", 0, "temperature step")
	fs.IntVarP(&in.TSteps, "t-steps", "t", 0, "number of temperatures")
	fs.Float64VarP(&in.MuBegin, "mu-begin", "m", 0, "first chemical potential")
	fs.Float64Var(&in.MuEnd, "mu-end", 0, "last chemical potential")
	fs.Float64Var(&in.MuStep, "mu-step", 0, "chemical potential step")
	fs.IntVar(&in.MuSteps, "mu-steps", 0, "number of chemical potentials")

	fs.IntVarP(&in.Threads, "threads", "j", 0, "worker threads (0 = all CPUs)")
	fs.IntVar(&in.Strings, "strings", 0, "string levels kept in each hierarchy")

	in.changed = func(name string) bool { return fs.Changed(name) }
}

// Resolve layers the sources: defaults, the file, the environment, then the
// flags. The result is validated.
func (in Input) Resolve(env params.Settings) (params.Parameters, error) {
	p := params.Default()
	if in.File != "" {
		var err error
		if p, err = params.Load(in.File); err != nil {
			return params.Parameters{}, err
		}
	}
	if env.Threads != nil {
		p.Threads = *env.Threads
	}

	set := in.changed
	if set == nil {
		set = func(string) bool { return false }
	}
	if set("U") {
		p.U = in.U
	}
	if set("field") {
		p.Field = in.Field
	}
	if set("K") {
		p.Mesh.K = in.K
	}
	if set("L") {
		p.Mesh.L = in.L
	}
	if set("log-root") {
		p.LogRoot = in.LogRoot
	}
	overrideRange(&p.Temperature, set, "t", in.TBegin, in.TEnd, in.TStep, in.TSteps)
	overrideRange(&p.Mu, set, "mu", in.MuBegin, in.MuEnd, in.MuStep, in.MuSteps)
	if set("threads") {
		p.Threads = in.Threads
	}
	if set("strings") {
		p.Solver.Strings = in.Strings
	}

	if err := p.Validate(); err != nil {
		return params.Parameters{}, err
	}
	return p, nil
}

func overrideRange(r *params.Range, set func(string) bool, prefix string, begin, end, step float64, steps int) {
	if set(prefix + "-begin") {
		r.Begin = begin
	}
	if set(prefix + "-end") {
		r.End = end
	}
	if set(prefix + "-step") {
		r.Step = step
	}
	if set(prefix + "-steps") {
		r.Steps = steps
	}
}
