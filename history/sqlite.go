package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists run records to a single-file SQLite database,
// grounded on the teacher's SQLiteStore (WAL mode, single-writer pool).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) a SQLite database at path
// and ensures the runs table exists. Use ":memory:" for a process-local
// store that never touches disk.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("history: %s: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.createTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) createTable(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS run_records (
			run_id TEXT PRIMARY KEY,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL,
			outcome TEXT NOT NULL,
			outputs TEXT NOT NULL,
			variables TEXT NOT NULL
		)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("history: create run_records: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) SaveRun(ctx context.Context, rec RunRecord) error {
	outputs, variables, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO run_records (run_id, started_at, finished_at, outcome, outputs, variables)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			started_at=excluded.started_at, finished_at=excluded.finished_at,
			outcome=excluded.outcome, outputs=excluded.outputs, variables=excluded.variables`
	_, err = s.db.ExecContext(ctx, q, rec.RunID, rec.StartedAt, rec.FinishedAt, rec.Outcome, outputs, variables)
	if err != nil {
		return fmt.Errorf("history: save run %s: %w", rec.RunID, err)
	}
	return nil
}

func (s *SQLiteStore) LoadRun(ctx context.Context, runID string) (RunRecord, error) {
	const q = `SELECT run_id, started_at, finished_at, outcome, outputs, variables FROM run_records WHERE run_id = ?`
	row := s.db.QueryRowContext(ctx, q, runID)
	rec, outputs, variables, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return RunRecord{}, ErrNotFound
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("history: load run %s: %w", runID, err)
	}
	return decodeRecord(rec, outputs, variables)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	q := `SELECT run_id, started_at, finished_at, outcome, outputs, variables FROM run_records ORDER BY started_at DESC`
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, outputs, variables, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("history: scan run row: %w", err)
		}
		full, err := decodeRecord(rec, outputs, variables)
		if err != nil {
			return nil, err
		}
		out = append(out, full)
	}
	return out, rows.Err()
}

func encodeRecord(rec RunRecord) (outputsJSON, variablesJSON string, err error) {
	o, err := json.Marshal(rec.Outputs)
	if err != nil {
		return "", "", fmt.Errorf("history: encode outputs: %w", err)
	}
	v, err := json.Marshal(rec.Variables)
	if err != nil {
		return "", "", fmt.Errorf("history: encode variables: %w", err)
	}
	return string(o), string(v), nil
}

// scanRecord fills the scalar fields of a RunRecord via scan, leaving
// Outputs/Variables as raw JSON text for the caller to decode.
func scanRecord(scan func(dest ...any) error) (RunRecord, string, string, error) {
	var rec RunRecord
	var outputs, variables string
	err := scan(&rec.RunID, &rec.StartedAt, &rec.FinishedAt, &rec.Outcome, &outputs, &variables)
	return rec, outputs, variables, err
}

func decodeRecord(rec RunRecord, outputsJSON, variablesJSON string) (RunRecord, error) {
	if err := json.Unmarshal([]byte(outputsJSON), &rec.Outputs); err != nil {
		return RunRecord{}, fmt.Errorf("history: decode outputs: %w", err)
	}
	if err := json.Unmarshal([]byte(variablesJSON), &rec.Variables); err != nil {
		return RunRecord{}, fmt.Errorf("history: decode variables: %w", err)
	}
	return rec, nil
}
