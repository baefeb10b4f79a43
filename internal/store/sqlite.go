package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/nightline/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS audit_runs (
	id         TEXT PRIMARY KEY,
	label      TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'pending',
	stats      TEXT NOT NULL DEFAULT '{}',
	cursor     INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS audit_results (
	id        TEXT PRIMARY KEY,
	run_id    TEXT NOT NULL REFERENCES audit_runs(id),
	seq       INTEGER NOT NULL,
	phone_key TEXT NOT NULL,
	result    TEXT NOT NULL,
	called_at DATETIME NOT NULL,
	UNIQUE (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_audit_runs_status ON audit_runs(status);
CREATE INDEX IF NOT EXISTS idx_audit_results_run_id ON audit_results(run_id);
CREATE INDEX IF NOT EXISTS idx_audit_results_phone_key ON audit_results(phone_key);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, label string, total int) (*model.AuditRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	stats := model.RunStats{Total: total}
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal stats")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_runs (id, label, status, stats, cursor, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 0, ?, ?)`,
		id, label, string(model.RunStatusPending), string(statsJSON), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.AuditRun{
		ID:        id,
		Label:     label,
		Status:    model.RunStatusPending,
		Stats:     stats,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE audit_runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, stats model.RunStats) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal stats")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE audit_runs SET status = ?, stats = ?, updated_at = ? WHERE id = ?`,
		string(status), string(statsJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) AppendResults(ctx context.Context, runID string, results []model.AuditResult, cursor int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin append")
	}
	defer tx.Rollback()

	// seq is the index of each result within the run, derived from the new
	// cursor so a batch lands in call order after the previous checkpoint.
	base := cursor - len(results)
	for i, r := range results {
		resultJSON, err := json.Marshal(r)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal result")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO audit_results (id, run_id, seq, phone_key, result, called_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), runID, base+i, phoneKey(r.Target.Phone), string(resultJSON), r.CalledAt.UTC(),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert result for run %s", runID)
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE audit_runs SET cursor = ?, updated_at = ? WHERE id = ?`,
		cursor, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: advance cursor for run %s", runID)
	}
	if err := checkRowsAffected(res, "run", runID); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit append")
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.AuditRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, label, status, stats, cursor, created_at, updated_at FROM audit_runs WHERE id = ?`,
		runID,
	)
	r, err := scanRun(row)
	if err != nil {
		return nil, err
	}

	results, err := s.ListResults(ctx, runID)
	if err != nil {
		return nil, err
	}
	r.Results = results
	return r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.AuditRun, error) {
	query := `SELECT id, label, status, stats, cursor, created_at, updated_at FROM audit_runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.AuditRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) ListResults(ctx context.Context, runID string) ([]model.AuditResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT result FROM audit_results WHERE run_id = ? ORDER BY seq ASC`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list results for run %s", runID)
	}
	defer rows.Close()

	var results []model.AuditResult
	for rows.Next() {
		var resultJSON string
		if err := rows.Scan(&resultJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}
		var r model.AuditResult
		if err := json.Unmarshal([]byte(resultJSON), &r); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: list results iterate")
}

func (s *SQLiteStore) DialedPhones(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT phone_key FROM audit_results`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: dialed phones")
	}
	defer rows.Close()

	dialed := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan phone key")
		}
		dialed[key] = true
	}
	return dialed, eris.Wrap(rows.Err(), "sqlite: dialed phones iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.AuditRun, error) {
	var r model.AuditRun
	var statsJSON string

	err := row.Scan(&r.ID, &r.Label, &r.Status, &statsJSON, &r.Cursor, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if err := json.Unmarshal([]byte(statsJSON), &r.Stats); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal stats")
	}
	return &r, nil
}
