package store

import (
	"database/sql"
	"path/filepath"
	"slices"
	"testing"
)

// openAt opens the cache at path and closes it when the test ends.
func openAt(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open(%s) failed: %v", path, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func userVersion(t *testing.T, db *sql.DB) int {
	t.Helper()
	var v int
	if err := db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		t.Fatalf("read user_version: %v", err)
	}
	return v
}

func TestOpen(t *testing.T) {
	t.Run("fresh file", func(t *testing.T) {
		s := openAt(t, filepath.Join(t.TempDir(), "runs.db"))
		var n int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&n); err != nil {
			t.Fatalf("count runs: %v", err)
		}
		if n != 0 {
			t.Errorf("fresh cache has %d runs", n)
		}
	})

	t.Run("reopen keeps schema and version", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "runs.db")
		for i := 0; i < 3; i++ {
			s, err := Open(path)
			if err != nil {
				t.Fatalf("open #%d: %v", i, err)
			}
			if v := userVersion(t, s.db); v != currentSchemaVersion {
				t.Errorf("open #%d: user_version = %d, want %d", i, v, currentSchemaVersion)
			}
			s.Close()
		}
		s := openAt(t, path)
		if !slices.Contains(tableColumns(t, s.db, "runs"), "spec_hash") {
			t.Error("runs table lost after reopening")
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		if _, err := Open("/nonexistent/dir/runs.db"); err == nil {
			t.Error("expected an error for a path in a missing directory")
		}
	})
}

func TestStore_CloseAndDB(t *testing.T) {
	if err := (&Store{}).Close(); err != nil {
		t.Errorf("Close on zero Store: %v", err)
	}

	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := s.DB().Ping(); err != nil {
		t.Errorf("DB() not usable: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	_ = s.Close()
}

func TestOpen_Pragmas(t *testing.T) {
	s := openAt(t, filepath.Join(t.TempDir(), "runs.db"))
	for _, p := range pragmas {
		t.Run(p.name, func(t *testing.T) {
			if err := s.verifyPragma(p.name, p.want); err != nil {
				t.Error(err)
			}
		})
	}
	if err := s.verifyPragma("synchronous", "2"); err == nil {
		t.Error("verifyPragma accepted a wrong value")
	}
}

func TestSchema(t *testing.T) {
	s := openAt(t, filepath.Join(t.TempDir(), "runs.db"))

	cols := tableColumns(t, s.db, "runs")
	for _, want := range []string{
		"id", "seq", "name", "spec_hash", "table_hash", "spec", "table_json",
		"state_count", "transition_count", "synth_version", "table_version",
	} {
		if !slices.Contains(cols, want) {
			t.Errorf("runs missing column %q (have %v)", want, cols)
		}
	}

	idx := tableIndexes(t, s.db, "runs")
	for _, want := range []string{"idx_runs_seq", "idx_runs_table_hash"} {
		if !slices.Contains(idx, want) {
			t.Errorf("runs missing index %q (have %v)", want, idx)
		}
	}
}

func TestSchema_SpecHashUnique(t *testing.T) {
	s := openAt(t, filepath.Join(t.TempDir(), "runs.db"))

	const insert = `
		INSERT INTO runs (id, seq, name, spec_hash, table_hash, spec, table_json,
			state_count, transition_count, synth_version, table_version)
		VALUES (?, ?, 'j', 'spec1', 'table1', '{}', '{}', 1, 1, '0', '1')`
	if _, err := s.db.Exec(insert, "run1", 1); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := s.db.Exec(insert, "run2", 2); err == nil {
		t.Error("second run with the same spec_hash was accepted")
	}
}

func TestMigrate_FromUnversionedCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	raw, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := raw.Exec(schemaSQL); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	if v := userVersion(t, raw); v != 0 {
		t.Fatalf("unversioned cache reports user_version %d", v)
	}
	if slices.Contains(tableIndexes(t, raw, "runs"), "idx_runs_table_hash") {
		t.Fatal("base schema already carries the migrated index")
	}
	raw.Close()

	s := openAt(t, path)
	if v := userVersion(t, s.db); v != currentSchemaVersion {
		t.Errorf("user_version = %d after upgrade, want %d", v, currentSchemaVersion)
	}
	if !slices.Contains(tableIndexes(t, s.db, "runs"), "idx_runs_table_hash") {
		t.Error("upgrade did not create idx_runs_table_hash")
	}
}

func TestMigrations_Ordered(t *testing.T) {
	for i, m := range migrations {
		if m.version != i+1 {
			t.Errorf("migrations[%d] (%s) has version %d, want %d", i, m.name, m.version, i+1)
		}
	}
}

func tableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		t.Fatalf("table_info(%s): %v", table, err)
	}
	defer rows.Close()
	return scanNames(t, rows)
}

func tableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ?", table)
	if err != nil {
		t.Fatalf("indexes of %s: %v", table, err)
	}
	defer rows.Close()
	return scanNames(t, rows)
}

func scanNames(t *testing.T, rows *sql.Rows) []string {
	t.Helper()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan name: %v", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
	return names
}
