package history

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore persists run records to a shared MySQL database, for
// deployments where multiple engine instances need to query the same
// run history (a single-file SQLiteStore can't be shared across
// processes on separate hosts).
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore opens dsn (a go-sql-driver/mysql data source name) and
// ensures the run_records table exists.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open mysql: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: ping mysql: %w", err)
	}

	s := &MySQLStore{db: db}
	if err := s.createTable(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *MySQLStore) createTable(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS run_records (
			run_id VARCHAR(191) PRIMARY KEY,
			started_at DATETIME(6) NOT NULL,
			finished_at DATETIME(6) NOT NULL,
			outcome VARCHAR(32) NOT NULL,
			outputs JSON NOT NULL,
			variables JSON NOT NULL
		)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("history: create run_records: %w", err)
	}
	return nil
}

func (s *MySQLStore) Close() error { return s.db.Close() }

func (s *MySQLStore) SaveRun(ctx context.Context, rec RunRecord) error {
	outputs, variables, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO run_records (run_id, started_at, finished_at, outcome, outputs, variables)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			started_at=VALUES(started_at), finished_at=VALUES(finished_at),
			outcome=VALUES(outcome), outputs=VALUES(outputs), variables=VALUES(variables)`
	_, err = s.db.ExecContext(ctx, q, rec.RunID, rec.StartedAt, rec.FinishedAt, rec.Outcome, outputs, variables)
	if err != nil {
		return fmt.Errorf("history: save run %s: %w", rec.RunID, err)
	}
	return nil
}

func (s *MySQLStore) LoadRun(ctx context.Context, runID string) (RunRecord, error) {
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

func (s *MySQLStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	q := `SELECT run_id, started_at, finished_at, outcome, outputs, variables FROM run_records ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
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
