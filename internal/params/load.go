package params

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML, JSON or TOML parameter file (chosen by extension) over
// Default. The result is not validated.
func Load(path string) (Parameters, error) {
	v := viper.New()
	setDefaults(v, Default())
	v.SetConfigFile(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json", ".toml":
	default:
		return Parameters{}, invalid("file", "unsupported extension %q (want .yaml, .json or .toml)", filepath.Ext(path))
	}
	if err := v.ReadInConfig(); err != nil {
		return Parameters{}, &ConfigError{Field: "file", Reason: "cannot read " + path, Err: err}
	}
	var p Parameters
	if err := v.Unmarshal(&p); err != nil {
		return Parameters{}, &ConfigError{Field: "file", Reason: "cannot decode " + path, Err: err}
	}
	return p, nil
}

func setDefaults(v *viper.Viper, d Parameters) {
	v.SetDefault("u", d.U)
	v.SetDefault("field", d.Field)
	v.SetDefault("mesh.k", d.Mesh.K)
	v.SetDefault("mesh.l", d.Mesh.L)
	v.SetDefault("mesh.lambda_max", d.Mesh.LambdaMax)
	v.SetDefault("temperature.begin", d.Temperature.Begin)
	v.SetDefault("temperature.end", d.Temperature.End)
	v.SetDefault("temperature.step", d.Temperature.Step)
	v.SetDefault("temperature.steps", d.Temperature.Steps)
	v.SetDefault("mu.begin", d.Mu.Begin)
	v.SetDefault("mu.end", d.Mu.End)
	v.SetDefault("mu.step", d.Mu.Step)
	v.SetDefault("mu.steps", d.Mu.Steps)
	v.SetDefault("threads", d.Threads)
	v.SetDefault("log_root", d.LogRoot)
	v.SetDefault("solver.tolerance", d.Solver.Tolerance)
	v.SetDefault("solver.max_iter", d.Solver.MaxIter)
	v.SetDefault("solver.mixing", d.Solver.Mixing)
	v.SetDefault("solver.strings", d.Solver.Strings)
	v.SetDefault("quadrature.rel_tol", d.Quadrature.RelTol)
	v.SetDefault("quadrature.abs_tol", d.Quadrature.AbsTol)
	v.SetDefault("quadrature.min_nodes", d.Quadrature.MinNodes)
	v.SetDefault("quadrature.max_nodes", d.Quadrature.MaxNodes)
}

// WriteYAML echoes p in the file format Load accepts.
func (p Parameters) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("params: encode: %w", err)
	}
	return enc.Close()
}

// Settings are the process-level knobs read from the environment.
type Settings struct {
	Threads   *int   `env:"HUBBARD_THREADS"`
	LogLevel  string `env:"HUBBARD_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"HUBBARD_LOG_FORMAT" envDefault:"console"`
	Precision int    `env:"HUBBARD_PRECISION" envDefault:"8"`
}

// LoadSettings parses the process environment.
func LoadSettings() (Settings, error) {
	return parseSettings(env.Options{})
}

// SettingsFrom parses settings from an explicit environment.
func SettingsFrom(environ map[string]string) (Settings, error) {
	return parseSettings(env.Options{Environment: environ})
}

func parseSettings(opts env.Options) (Settings, error) {
	var s Settings
	if err := env.ParseWithOptions(&s, opts); err != nil {
		return Settings{}, envError(err)
	}
	if s.Precision < 1 || s.Precision > 17 {
		return Settings{}, invalid("HUBBARD_PRECISION", "must be in [1, 17], got %d", s.Precision)
	}
	if s.Threads != nil && *s.Threads < 0 {
		return Settings{}, invalid("HUBBARD_THREADS", "must be >= 0, got %d", *s.Threads)
	}
	return s, nil
}

// envError names the variable behind a parse failure rather than the
// Settings field it feeds.
func envError(err error) error {
	var pe env.ParseError
	if !errors.As(err, &pe) {
		return &ConfigError{Field: "environment", Reason: "parse env", Err: err}
	}
	name := pe.Name
	if f, ok := reflect.TypeFor[Settings]().FieldByName(pe.Name); ok {
		if tag, _, _ := strings.Cut(f.Tag.Get("env"), ","); tag != "" {
			name = tag
		}
	}
	return &ConfigError{Field: name, Reason: "not a valid " + strings.TrimPrefix(pe.Type.String(), "*"), Err: pe.Err}
}

// IsConfig reports whether err is a configuration error.
func IsConfig(err error) bool { return errors.Is(err, ErrConfig) }
