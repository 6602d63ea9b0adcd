// Package params holds the run parameters: the physical point, the meshes,
// the temperature and μ grids, and the solver knobs. Parameters are loaded
// once, validated before any solve, and read-only afterwards.
package params

import (
	"errors"
	"fmt"
	"math"

	"github.com/PDoakORNL/BetheAnsatz/internal/grandpotential"
	"github.com/PDoakORNL/BetheAnsatz/internal/quadrature"
)

// ErrConfig is matched by every *ConfigError.
var ErrConfig = errors.New("invalid configuration")

// ConfigError names the offending parameter.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

func (e *ConfigError) Unwrap() error { return e.Err }

func invalid(field, format string, a ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, a...)}
}

// Range is an arithmetic grid Begin, Begin+Step, … with Steps points. When
// Step is 0 and Steps > 1 it is derived from End as (End−Begin)/(Steps−1).
type Range struct {
	Begin float64 `mapstructure:"begin" yaml:"begin"`
	End   float64 `mapstructure:"end" yaml:"end,omitempty"`
	Step  float64 `mapstructure:"step" yaml:"step"`
	Steps int     `mapstructure:"steps" yaml:"steps"`
}

// Values expands r. It does not check the physical range of the values.
func (r Range) Values() ([]float64, error) {
	if r.Steps < 1 {
		return nil, fmt.Errorf("steps must be >= 1, got %d", r.Steps)
	}
	step := r.Step
	if step == 0 && r.Steps > 1 {
		step = (r.End - r.Begin) / float64(r.Steps-1)
	}
	if r.Steps > 1 && !(step > 0) {
		return nil, fmt.Errorf("step must be > 0, got %g", step)
	}
	out := make([]float64, r.Steps)
	for i := range out {
		out[i] = r.Begin + float64(i)*step
	}
	return out, nil
}

type Mesh struct {
	K         int     `mapstructure:"k" yaml:"k"`
	L         int     `mapstructure:"l" yaml:"l"`
	LambdaMax float64 `mapstructure:"lambda_max" yaml:"lambda_max"`
}

type Solver struct {
	Tolerance float64 `mapstructure:"tolerance" yaml:"tolerance"`
	MaxIter   int     `mapstructure:"max_iter" yaml:"max_iter"`
	Mixing    float64 `mapstructure:"mixing" yaml:"mixing"`
	Strings   int     `mapstructure:"strings" yaml:"strings"`
}

type Quadrature struct {
	RelTol   float64 `mapstructure:"rel_tol" yaml:"rel_tol"`
	AbsTol   float64 `mapstructure:"abs_tol" yaml:"abs_tol"`
	MinNodes int     `mapstructure:"min_nodes" yaml:"min_nodes"`
	MaxNodes int     `mapstructure:"max_nodes" yaml:"max_nodes"`
}

// Parameters is the complete description of a run.
type Parameters struct {
	U           float64    `mapstructure:"u" yaml:"u"`
	Field       float64    `mapstructure:"field" yaml:"field"`
	Mesh        Mesh       `mapstructure:"mesh" yaml:"mesh"`
	Temperature Range      `mapstructure:"temperature" yaml:"temperature"`
	Mu          Range      `mapstructure:"mu" yaml:"mu"`
	Threads     int        `mapstructure:"threads" yaml:"threads"`
	LogRoot     string     `mapstructure:"log_root" yaml:"log_root"`
	Solver      Solver     `mapstructure:"solver" yaml:"solver"`
	Quadrature  Quadrature `mapstructure:"quadrature" yaml:"quadrature"`
}

// Default returns the parameters of an empty file. U and the temperature
// grid have no sensible default and fail validation until set.
func Default() Parameters {
	q := quadrature.Default()
	return Parameters{
		Mesh:        Mesh{K: 1000, L: 10000},
		Temperature: Range{Steps: 0},
		Mu:          Range{Steps: 1},
		LogRoot:     "omega",
		Solver: Solver{
			Tolerance: grandpotential.DefaultTol,
			MaxIter:   grandpotential.DefaultMaxIter,
			Mixing:    1,
			Strings:   grandpotential.DefaultStrings,
		},
		Quadrature: Quadrature{RelTol: q.RelTol, AbsTol: q.AbsTol, MinNodes: q.MinNodes, MaxNodes: q.MaxNodes},
	}
}

// Validate reports the first problem as a *ConfigError.
func (p Parameters) Validate() error {
	switch {
	case !finite(p.U) || p.U <= 0:
		return invalid("u", "must be positive and finite, got %g", p.U)
	case !finite(p.Field):
		return invalid("field", "must be finite, got %g", p.Field)
	case p.Mesh.K < 4:
		return invalid("mesh.k", "must be >= 4, got %d", p.Mesh.K)
	case p.Mesh.L < 3:
		return invalid("mesh.l", "must be >= 3, got %d", p.Mesh.L)
	case !finite(p.Mesh.LambdaMax) || p.Mesh.LambdaMax < 0:
		return invalid("mesh.lambda_max", "must be >= 0, got %g", p.Mesh.LambdaMax)
	case p.Threads < 0:
		return invalid("threads", "must be >= 0, got %d", p.Threads)
	case !(p.Solver.Tolerance > 0):
		return invalid("solver.tolerance", "must be > 0, got %g", p.Solver.Tolerance)
	case p.Solver.MaxIter < 1:
		return invalid("solver.max_iter", "must be >= 1, got %d", p.Solver.MaxIter)
	case !(p.Solver.Mixing > 0 && p.Solver.Mixing <= 1):
		return invalid("solver.mixing", "must be in (0, 1], got %g", p.Solver.Mixing)
	case p.Solver.Strings < 1:
		return invalid("solver.strings", "must be >= 1, got %d", p.Solver.Strings)
	case p.Quadrature.MaxNodes < p.Quadrature.MinNodes:
		return invalid("quadrature.max_nodes", "must be >= min_nodes (%d), got %d", p.Quadrature.MinNodes, p.Quadrature.MaxNodes)
	}

	temps, err := p.Temperature.Values()
	if err != nil {
		return &ConfigError{Field: "temperature", Reason: "bad grid", Err: err}
	}
	for _, T := range temps {
		if !finite(T) || T <= 0 {
			return invalid("temperature", "all temperatures must be positive and finite, got %g", T)
		}
	}
	mus, err := p.Mu.Values()
	if err != nil {
		return &ConfigError{Field: "mu", Reason: "bad grid", Err: err}
	}
	for _, mu := range mus {
		if !finite(mu) {
			return invalid("mu", "must be finite, got %g", mu)
		}
	}
	return nil
}

// Temperatures expands the temperature grid. Call after Validate.
func (p Parameters) Temperatures() []float64 {
	v, _ := p.Temperature.Values()
	return v
}

// Mus expands the μ grid. Call after Validate.
func (p Parameters) Mus() []float64 {
	v, _ := p.Mu.Values()
	return v
}

// QuadratureConfig converts the file section to the integrator's config.
func (p Parameters) QuadratureConfig() quadrature.Config {
	return quadrature.Config{
		RelTol:   p.Quadrature.RelTol,
		AbsTol:   p.Quadrature.AbsTol,
		MinNodes: p.Quadrature.MinNodes,
		MaxNodes: p.Quadrature.MaxNodes,
	}
}

// Options converts the solver section and the field to evaluator options.
func (p Parameters) Options() grandpotential.Options {
	return grandpotential.Options{
		Strings: p.Solver.Strings,
		Tol:     p.Solver.Tolerance,
		MaxIter: p.Solver.MaxIter,
		Mixing:  p.Solver.Mixing,
		Field:   p.Field,
	}
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
