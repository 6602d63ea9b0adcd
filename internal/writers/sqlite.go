// internal/writers/sqlite.go
package writers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	u          REAL NOT NULL,
	field      REAL NOT NULL,
	mesh_k     INTEGER NOT NULL,
	mesh_l     INTEGER NOT NULL,
	e0         REAL NOT NULL,
	parameters TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS omega (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	t_index     INTEGER NOT NULL,
	mu_index    INTEGER NOT NULL,
	temperature REAL NOT NULL,
	mu          REAL NOT NULL,
	omega       REAL NOT NULL,
	PRIMARY KEY (run_id, t_index, mu_index)
);`

// Fixed width, so started_at orders as text.
const startedLayout = "2006-01-02T15:04:05.000000000Z"

// Run describes one sweep stored next to its values.
type Run struct {
	ID         uuid.UUID
	Started    time.Time
	U          float64
	Field      float64
	K, L       int
	E0         float64
	Parameters string // YAML echo of the resolved parameters
}

// Store is an SQLite sink for sweep results.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the database at path and ensures the schema.
func OpenStore(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, multierr.Append(fmt.Errorf("sqlite: schema: %w", err), db.Close())
	}
	return &Store{db: db}, nil
}

// Save writes the run record and every table value in one transaction.
// A zero run.ID is replaced by a fresh random id, which is returned.
func (s *Store) Save(ctx context.Context, run Run, t Table) (id uuid.UUID, err error) {
	if err := t.Check(); err != nil {
		return uuid.Nil, err
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.Started.IsZero() {
		run.Started = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, tx.Rollback())
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, u, field, mesh_k, mesh_l, e0, parameters) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.Started.UTC().Format(startedLayout), run.U, run.Field, run.K, run.L, run.E0, run.Parameters,
	); err != nil {
		return uuid.Nil, fmt.Errorf("sqlite: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO omega (run_id, t_index, mu_index, temperature, mu, omega) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return uuid.Nil, fmt.Errorf("sqlite: prepare: %w", err)
	}
	defer stmt.Close()
	for i, T := range t.Temperatures {
		for j, mu := range t.Mus {
			if _, err = stmt.ExecContext(ctx, run.ID.String(), i, j, T, mu, t.Omega.At(i, j)); err != nil {
				return uuid.Nil, fmt.Errorf("sqlite: insert omega[%d,%d]: %w", i, j, err)
			}
		}
	}
	if err = tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("sqlite: commit: %w", err)
	}
	return run.ID, nil
}

// ErrRunNotFound is returned when the database holds no matching run.
var ErrRunNotFound = errors.New("sqlite: run not found")

// Latest returns the id of the most recently started run.
func (s *Store) Latest(ctx context.Context) (uuid.UUID, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, ErrRunNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("sqlite: latest run: %w", err)
	}
	return uuid.Parse(raw)
}

// Load reads back the table stored for id.
func (s *Store) Load(ctx context.Context, id uuid.UUID) (Table, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t_index, mu_index, temperature, mu, omega FROM omega WHERE run_id = ? ORDER BY t_index, mu_index`,
		id.String())
	if err != nil {
		return Table{}, fmt.Errorf("sqlite: query %s: %w", id, err)
	}
	defer rows.Close()
	var temps, mus, values []float64
	for rows.Next() {
		var i, j int
		var T, mu, v float64
		if err := rows.Scan(&i, &j, &T, &mu, &v); err != nil {
			return Table{}, fmt.Errorf("sqlite: scan: %w", err)
		}
		if j == 0 {
			temps = append(temps, T)
		}
		if i == 0 {
			mus = append(mus, mu)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return Table{}, fmt.Errorf("sqlite: rows: %w", err)
	}
	if len(values) == 0 {
		return Table{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if len(values) != len(temps)*len(mus) {
		return Table{}, fmt.Errorf("sqlite: run %s: %d values for a %d×%d grid", id, len(values), len(temps), len(mus))
	}
	t := Table{Temperatures: temps, Mus: mus, Omega: mat.NewDense(len(temps), len(mus), values)}
	return t, t.Check()
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }
