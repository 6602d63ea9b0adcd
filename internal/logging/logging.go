// Package logging builds the process logger and the per-worker file loggers.
package logging

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config selects the encoder and level of the process logger.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // console or json
}

// New returns a logger writing to w. An empty level means info and an empty
// format means console.
func New(cfg Config, w io.Writer) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("logging: level %q: %w", cfg.Level, err)
		}
	}

	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	switch cfg.Format {
	case "", FormatConsole:
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(ec)
	case FormatJSON:
		enc = zapcore.NewJSONEncoder(ec)
	default:
		return nil, fmt.Errorf("logging: unknown format %q", cfg.Format)
	}
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), level)), nil
}

// WorkerPath is the log file of worker i: {root}{i}.txt.
func WorkerPath(root string, i int) string {
	return fmt.Sprintf("%s%d.txt", root, i)
}

// WorkerFile opens (create, append) the log of worker i and returns a logger
// with one plain line per entry. The returned func syncs and closes the file.
func WorkerFile(root string, i int) (*zap.Logger, func() error, error) {
	path := WorkerPath(root, i)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("logging: worker %d: %w", i, err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: worker %d: %w", i, err)
	}
	ec := zapcore.EncoderConfig{
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		ConsoleSeparator: " ",
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(ec), zapcore.AddSync(f), zapcore.DebugLevel)
	log := zap.New(core)
	closeFn := func() error {
		return multierr.Append(log.Sync(), f.Close())
	}
	return log, closeFn, nil
}

// CleanStale removes {root}{digits}.txt files left by earlier runs and
// returns the paths it removed. root is matched literally; a missing
// directory means there is nothing to clean.
func CleanStale(root string) ([]string, error) {
	dir, prefix := filepath.Split(filepath.Clean(root))
	if prefix == "" || strings.HasSuffix(root, string(filepath.Separator)) {
		dir, prefix = filepath.Clean(root), ""
	}
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("logging: stale logs under %q: %w", root, err)
	}
	var removed []string
	var errs error
	for _, e := range entries {
		if !e.Type().IsRegular() || !isWorkerLog(prefix, e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.Remove(path); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		removed = append(removed, path)
	}
	return removed, errs
}

func isWorkerLog(prefix, name string) bool {
	idx, ok := strings.CutPrefix(name, prefix)
	if !ok {
		return false
	}
	idx, ok = strings.CutSuffix(idx, ".txt")
	if !ok || idx == "" {
		return false
	}
	for _, r := range idx {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
