package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/nightline/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. Satisfied by
// *pgxpool.Pool and by pgxmock pools in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot store operations.
var preparedStatements = map[string]string{
	"insert_run":        `INSERT INTO audit_runs (id, label, status, stats, cursor, created_at, updated_at) VALUES ($1, $2, $3, $4, 0, $5, $6)`,
	"update_run_status": `UPDATE audit_runs SET status = $1, updated_at = $2 WHERE id = $3`,
	"get_run":           `SELECT id, label, status, stats, cursor, created_at, updated_at FROM audit_runs WHERE id = $1`,
	"insert_result":     `INSERT INTO audit_results (id, run_id, seq, phone_key, result, called_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"list_results":      `SELECT result FROM audit_results WHERE run_id = $1 ORDER BY seq ASC`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS audit_runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	label      TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'pending',
	stats      JSONB NOT NULL DEFAULT '{}',
	cursor     INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS audit_results (
	id        TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	run_id    TEXT NOT NULL REFERENCES audit_runs(id),
	seq       INTEGER NOT NULL,
	phone_key TEXT NOT NULL,
	result    JSONB NOT NULL,
	called_at TIMESTAMPTZ NOT NULL,
	UNIQUE (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_audit_runs_status ON audit_runs(status);
CREATE INDEX IF NOT EXISTS idx_audit_results_run_id ON audit_results(run_id);
CREATE INDEX IF NOT EXISTS idx_audit_results_phone_key ON audit_results(phone_key);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, label string, total int) (*model.AuditRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	stats := model.RunStats{Total: total}
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal stats")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO audit_runs (id, label, status, stats, cursor, created_at, updated_at) VALUES ($1, $2, $3, $4, 0, $5, $6)`,
		id, label, string(model.RunStatusPending), statsJSON, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
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

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE audit_runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, stats model.RunStats) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal stats")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE audit_runs SET status = $1, stats = $2, updated_at = $3 WHERE id = $4`,
		string(status), statsJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) AppendResults(ctx context.Context, runID string, results []model.AuditResult, cursor int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin append")
	}
	defer tx.Rollback(ctx)

	base := cursor - len(results)
	for i, r := range results {
		resultJSON, err := json.Marshal(r)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal result")
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO audit_results (id, run_id, seq, phone_key, result, called_at) VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New().String(), runID, base+i, phoneKey(r.Target.Phone), resultJSON, r.CalledAt.UTC(),
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert result for run %s", runID)
		}
	}

	tag, err := tx.Exec(ctx,
		`UPDATE audit_runs SET cursor = $1, updated_at = $2 WHERE id = $3`,
		cursor, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: advance cursor for run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit append")
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.AuditRun, error) {
	var r model.AuditRun
	var statsJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, label, status, stats, cursor, created_at, updated_at FROM audit_runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.Label, &r.Status, &statsJSON, &r.Cursor, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	if err := json.Unmarshal(statsJSON, &r.Stats); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal stats")
	}

	results, err := s.ListResults(ctx, runID)
	if err != nil {
		return nil, err
	}
	r.Results = results
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.AuditRun, error) {
	query := `SELECT id, label, status, stats, cursor, created_at, updated_at FROM audit_runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.AuditRun
	for rows.Next() {
		var r model.AuditRun
		var statsJSON []byte

		if err := rows.Scan(&r.ID, &r.Label, &r.Status, &statsJSON, &r.Cursor, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if err := json.Unmarshal(statsJSON, &r.Stats); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal stats")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) ListResults(ctx context.Context, runID string) ([]model.AuditResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT result FROM audit_results WHERE run_id = $1 ORDER BY seq ASC`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list results for run %s", runID)
	}
	defer rows.Close()

	var results []model.AuditResult
	for rows.Next() {
		var resultJSON []byte
		if err := rows.Scan(&resultJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result")
		}
		var r model.AuditResult
		if err := json.Unmarshal(resultJSON, &r); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "postgres: list results iterate")
}

func (s *PostgresStore) DialedPhones(ctx context.Context) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT phone_key FROM audit_results`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: dialed phones")
	}
	defer rows.Close()

	dialed := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, eris.Wrap(err, "postgres: scan phone key")
		}
		dialed[key] = true
	}
	return dialed, eris.Wrap(rows.Err(), "postgres: dialed phones iterate")
}
