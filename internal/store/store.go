package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/xkilldash9x/hometax-cli/internal/orchestrator"
)

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store journals runs in PostgreSQL so an operator can see what was filed
// across sessions.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// RunMeta describes the input and output files of a run.
type RunMeta struct {
	InputPath  string
	Sheet      string
	ReportPath string
}

// RunSummary is one journaled run.
type RunSummary struct {
	ID          string
	InputPath   string
	Sheet       string
	ReportPath  string
	StartedAt   time.Time
	FinishedAt  time.Time
	Committed   int
	Duplicates  int
	Invalid     int
	Failed      int
	Interrupted bool
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    id           TEXT PRIMARY KEY,
    input_path   TEXT NOT NULL,
    sheet        TEXT NOT NULL,
    report_path  TEXT NOT NULL DEFAULT '',
    started_at   TIMESTAMPTZ NOT NULL,
    finished_at  TIMESTAMPTZ NOT NULL,
    committed    INTEGER NOT NULL,
    duplicates   INTEGER NOT NULL,
    invalid      INTEGER NOT NULL,
    failed       INTEGER NOT NULL,
    interrupted  BOOLEAN NOT NULL
);
CREATE TABLE IF NOT EXISTS run_records (
    run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    row_number  INTEGER NOT NULL,
    name        TEXT NOT NULL,
    status      TEXT NOT NULL,
    kind        TEXT NOT NULL,
    reason      TEXT NOT NULL,
    PRIMARY KEY (run_id, row_number)
);`

const insertRunSQL = `
INSERT INTO runs (id, input_path, sheet, report_path, started_at, finished_at, committed, duplicates, invalid, failed, interrupted)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

const recentRunsSQL = `
SELECT id, input_path, sheet, report_path, started_at, finished_at, committed, duplicates, invalid, failed, interrupted
FROM runs
ORDER BY started_at DESC
LIMIT $1`

var recordColumns = []string{"run_id", "row_number", "name", "status", "kind", "reason"}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// EnsureSchema creates the journal tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create journal schema: %w", err)
	}
	return nil
}

// SaveRun writes a run and its per-row outcomes in one transaction.
func (s *Store) SaveRun(ctx context.Context, meta RunMeta, res *orchestrator.Result) error {
	if res == nil {
		return fmt.Errorf("cannot journal a nil run result")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	if _, err := tx.Exec(ctx, insertRunSQL,
		res.RunID, meta.InputPath, meta.Sheet, meta.ReportPath,
		res.StartedAt.UTC(), res.FinishedAt.UTC(),
		res.Committed, res.Duplicates, res.Invalid, res.Failed, res.Interrupted,
	); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", res.RunID, err)
	}

	if len(res.Records) > 0 {
		rows := make([][]interface{}, len(res.Records))
		for i, r := range res.Records {
			rows[i] = []interface{}{res.RunID, r.Row, r.Name, string(r.Status), string(r.Kind), r.Reason}
		}
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"run_records"}, recordColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("failed to copy run records: %w", err)
		}
		if int(n) != len(rows) {
			return fmt.Errorf("mismatch in copied records count: expected %d, got %d", len(rows), n)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Info("Run journaled.", zap.String("run_id", res.RunID), zap.Int("records", len(res.Records)))
	return nil
}

// RecentRuns lists the latest runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, recentRunsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(
			&r.ID, &r.InputPath, &r.Sheet, &r.ReportPath, &r.StartedAt, &r.FinishedAt,
			&r.Committed, &r.Duplicates, &r.Invalid, &r.Failed, &r.Interrupted,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	return out, nil
}
