// SPDX-License-Identifier: MIT

package sink

import (
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"
	_ "modernc.org/sqlite"

	"github.com/katalvlaran/lvtdm/frame"
)

// RunIDColumn keys every stored row to its run.
const RunIDColumn = "run_id"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	models      TEXT NOT NULL,
	created_at  TEXT NOT NULL
);
`

// SQLiteStore stores the tables of model runs in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and runs migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err = db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Run is one registered model run. It implements TableWriter.
type Run struct {
	store *SQLiteStore
	ID    string
}

// BeginRun registers a new run of models.
func (s *SQLiteStore) BeginRun(models []string) (*Run, error) {
	id := uuid.New().String()
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, models, created_at) VALUES (?, ?, ?)`,
		id, strings.Join(models, ","), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	klog.InfoS("registered run", "run", id, "models", models)

	return &Run{store: s, ID: id}, nil
}

// WriteTable implements TableWriter. The table is created on first use;
// columns it lacks are added.
func (r *Run) WriteTable(name string, f *frame.Frame) error {
	if name == "" {
		return ErrInvalidName
	}
	if f == nil {
		return fmt.Errorf("table %q: %w", name, ErrNilFrame)
	}
	names := f.Names()

	tx, err := r.store.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err = ensureTable(tx, name, f); err != nil {
		return err
	}

	cols := make([]string, 0, len(names)+1)
	marks := make([]string, 0, len(names)+1)
	cols = append(cols, quote(RunIDColumn))
	marks = append(marks, "?")
	for _, n := range names {
		cols = append(cols, quote(n))
		marks = append(marks, "?")
	}
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(name), strings.Join(cols, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("prepare insert %q: %w", name, err)
	}
	defer stmt.Close()

	args := make([]interface{}, len(names)+1)
	args[0] = r.ID
	for i := 0; i < f.Len(); i++ {
		for j, n := range names {
			args[j+1] = value(f, n, i)
		}
		if _, err = stmt.Exec(args...); err != nil {
			return fmt.Errorf("insert %q row %d: %w", name, i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	klog.V(1).InfoS("wrote sqlite table", "table", name, "run", r.ID, "rows", f.Len())

	return nil
}

// ensureTable creates the table or adds the columns it lacks.
func ensureTable(tx *sql.Tx, name string, f *frame.Frame) error {
	defs := []string{quote(RunIDColumn) + " TEXT NOT NULL"}
	for _, n := range f.Names() {
		defs = append(defs, quote(n)+" "+sqlType(f, n))
	}
	if _, err := tx.Exec(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quote(name), strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("create table %q: %w", name, err)
	}

	rows, err := tx.Query(fmt.Sprintf("PRAGMA table_info(%s)", quote(name)))
	if err != nil {
		return fmt.Errorf("table info %q: %w", name, err)
	}
	have := make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			col, typ   string
			notNull    int
			dflt       sql.NullString
			primaryKey int
		)
		if err = rows.Scan(&cid, &col, &typ, &notNull, &dflt, &primaryKey); err != nil {
			_ = rows.Close()
			return fmt.Errorf("table info %q: %w", name, err)
		}
		have[col] = true
	}
	if err = rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("table info %q: %w", name, err)
	}
	if err = rows.Close(); err != nil {
		return fmt.Errorf("table info %q: %w", name, err)
	}

	for _, n := range f.Names() {
		if have[n] {
			continue
		}
		if _, err = tx.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", quote(name), quote(n), sqlType(f, n))); err != nil {
			return fmt.Errorf("add column %q to %q: %w", n, name, err)
		}
	}

	return nil
}

func sqlType(f *frame.Frame, name string) string {
	if f.IsLabel(name) {
		return "TEXT"
	}

	return "REAL"
}

func value(f *frame.Frame, name string, i int) interface{} {
	if f.IsLabel(name) {
		v, _ := f.Labels(name)
		return v[i]
	}
	v, _ := f.Floats(name)
	if math.IsNaN(v[i]) {
		return nil
	}

	return v[i]
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
