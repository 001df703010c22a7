package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/framejoin/internal/ir"
)

// ErrNotFound is returned when no run matches a lookup.
var ErrNotFound = errors.New("run not found")

// Run is one cached synthesis result.
type Run struct {
	ID        string
	Seq       int64
	Name      string
	SpecHash  string
	TableHash string
	Spec      ir.JoinSpec
	Table     *ir.Table

	SynthVersion string
	TableVersion string
}

const runColumns = `id, seq, name, spec_hash, table_hash, spec, table_json, synth_version, table_version`

// rowQuerier is satisfied by *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SaveRun stores run and returns the stored record.
//
// Hashes are always recomputed from Spec and Table. ID and Seq are
// assigned when zero (generator ID, next logical seq). A run with the same
// spec hash and SynthVersion is returned unchanged with inserted=false.
// One from another SynthVersion is overwritten, keeps its ID and takes the
// new seq; inserted is true.
func (s *Store) SaveRun(ctx context.Context, run Run) (stored Run, inserted bool, err error) {
	if run.Table == nil {
		return Run{}, false, fmt.Errorf("save run: table is nil")
	}

	run.Spec = run.Spec.Normalized()
	if run.Name == "" {
		run.Name = run.Spec.Name
	}
	if run.SynthVersion == "" {
		run.SynthVersion = ir.SynthVersion
	}
	if run.TableVersion == "" {
		run.TableVersion = ir.TableVersion
	}
	if run.SpecHash, err = ir.SpecHash(run.Spec); err != nil {
		return Run{}, false, fmt.Errorf("save run: %w", err)
	}
	if run.TableHash, err = ir.TableHash(run.Table); err != nil {
		return Run{}, false, fmt.Errorf("save run: %w", err)
	}
	specJSON, err := ir.CanonicalOf(run.Spec)
	if err != nil {
		return Run{}, false, fmt.Errorf("save run: marshal spec: %w", err)
	}
	tableJSON, err := ir.CanonicalOf(run.Table)
	if err != nil {
		return Run{}, false, fmt.Errorf("save run: marshal table: %w", err)
	}

	// Use a transaction so seq assignment and insert-or-select are atomic
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, false, fmt.Errorf("save run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if run.ID == "" {
		run.ID = s.ids.Generate()
	}
	if run.Seq == 0 && s.clock != nil {
		run.Seq = s.clock.Next()
	}
	if run.Seq == 0 {
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&run.Seq); err != nil {
			return Run{}, false, fmt.Errorf("save run: next seq: %w", err)
		}
	}

	// A run of another synthesizer version is replaced in place and keeps
	// its ID. RETURNING yields no row when the existing run is kept.
	var id string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO runs
		(`+runColumns+`, state_count, transition_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(spec_hash) DO UPDATE SET
			seq = excluded.seq,
			name = excluded.name,
			table_hash = excluded.table_hash,
			spec = excluded.spec,
			table_json = excluded.table_json,
			synth_version = excluded.synth_version,
			table_version = excluded.table_version,
			state_count = excluded.state_count,
			transition_count = excluded.transition_count
		WHERE runs.synth_version <> excluded.synth_version
		RETURNING id
	`,
		run.ID,
		run.Seq,
		run.Name,
		run.SpecHash,
		run.TableHash,
		string(specJSON),
		string(tableJSON),
		run.SynthVersion,
		run.TableVersion,
		run.Table.StateCount,
		run.Table.TransitionCount(),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		existing, err := lookupBySpecHash(ctx, tx, run.SpecHash)
		if err != nil {
			return Run{}, false, fmt.Errorf("save run: lookup existing: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return Run{}, false, fmt.Errorf("save run: commit: %w", err)
		}
		return existing, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("save run: %w", err)
	}
	run.ID = id

	if err := tx.Commit(); err != nil {
		return Run{}, false, fmt.Errorf("save run: commit: %w", err)
	}
	return run, true, nil
}

// LookupBySpecHash returns the run synthesized from the configuration
// with the given hash, or ErrNotFound.
func (s *Store) LookupBySpecHash(ctx context.Context, specHash string) (Run, error) {
	return lookupBySpecHash(ctx, s.db, specHash)
}

func lookupBySpecHash(ctx context.Context, q rowQuerier, specHash string) (Run, error) {
	row := q.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE spec_hash = ?`, specHash)
	return scanRun(row)
}

// GetRun returns the run with the given ID, or ErrNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns all runs in logical order.
// Returns an empty slice (not nil) if the cache is empty.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	return s.queryRuns(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
}

// RunsByTableHash returns the runs whose configurations produced the same
// table, in logical order.
func (s *Store) RunsByTableHash(ctx context.Context, tableHash string) ([]Run, error) {
	return s.queryRuns(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE table_hash = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, tableHash)
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r                   Run
		specJSON, tableJSON string
	)
	err := sc.Scan(&r.ID, &r.Seq, &r.Name, &r.SpecHash, &r.TableHash,
		&specJSON, &tableJSON, &r.SynthVersion, &r.TableVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	if err := json.Unmarshal([]byte(specJSON), &r.Spec); err != nil {
		return Run{}, fmt.Errorf("unmarshal spec of run %s: %w", r.ID, err)
	}
	r.Table = &ir.Table{}
	if err := json.Unmarshal([]byte(tableJSON), r.Table); err != nil {
		return Run{}, fmt.Errorf("unmarshal table of run %s: %w", r.ID, err)
	}
	return r, nil
}
