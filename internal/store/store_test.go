package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/hometax-cli/internal/orchestrator"
	"github.com/xkilldash9x/hometax-cli/internal/report"
)

// flexibleSQLMatcher creates a regex that is insensitive to whitespace for more robust SQL mock testing.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

func newMockStore(t *testing.T, logger *zap.Logger) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	mockPool.ExpectPing().WillReturnError(nil)
	s, err := New(context.Background(), mockPool, logger)
	require.NoError(t, err)
	return s, mockPool
}

func sampleResult() *orchestrator.Result {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.FixedZone("KST", 9*3600))
	return &orchestrator.Result{
		RunID:      "run-1",
		StartedAt:  start,
		FinishedAt: start.Add(3 * time.Minute),
		Records: []orchestrator.RecordOutcome{
			{Row: 7, Name: "홍길동", Status: orchestrator.StatusCommitted},
			{Row: 8, Name: "김철수", Status: orchestrator.StatusFailed, Kind: report.KindSubmission, Reason: "final step failed"},
		},
		Committed: 1,
		Failed:    1,
	}
}

func TestNewStore(t *testing.T) {
	t.Run("should return error if ping fails", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		pingErr := errors.New("database unavailable")
		mockPool.ExpectPing().WillReturnError(pingErr)

		_, err = New(context.Background(), mockPool, zap.NewNop())
		require.Error(t, err)
		assert.ErrorIs(t, err, pingErr, "Error from ping should be propagated")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestEnsureSchema(t *testing.T) {
	s, mockPool := newMockStore(t, zap.NewNop())
	mockPool.ExpectExec(flexibleSQLMatcher(schemaSQL)).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestSaveRun(t *testing.T) {
	ctx := context.Background()
	meta := RunMeta{InputPath: "/data/wages.xlsx", Sheet: "2024", ReportPath: "/out/report.xlsx"}

	t.Run("should persist the run and its records in one transaction", func(t *testing.T) {
		core, logs := observer.New(zapcore.ErrorLevel)
		s, mockPool := newMockStore(t, zap.New(core))
		res := sampleResult()

		mockPool.ExpectBegin()
		mockPool.ExpectExec(flexibleSQLMatcher(insertRunSQL)).
			WithArgs("run-1", meta.InputPath, meta.Sheet, meta.ReportPath,
				res.StartedAt.UTC(), res.FinishedAt.UTC(), 1, 0, 0, 1, false).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCopyFrom(pgx.Identifier{"run_records"}, recordColumns).WillReturnResult(2)
		mockPool.ExpectCommit()
		mockPool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

		require.NoError(t, s.SaveRun(ctx, meta, res))
		assert.NoError(t, mockPool.ExpectationsWereMet())
		assert.Empty(t, logs.All(), "Expected no errors logged on successful commit")
	})

	t.Run("should skip the copy for a run without records", func(t *testing.T) {
		s, mockPool := newMockStore(t, zap.NewNop())
		res := sampleResult()
		res.Records, res.Committed, res.Failed = nil, 0, 0

		mockPool.ExpectBegin()
		mockPool.ExpectExec(flexibleSQLMatcher(insertRunSQL)).
			WithArgs("run-1", meta.InputPath, meta.Sheet, meta.ReportPath,
				res.StartedAt.UTC(), res.FinishedAt.UTC(), 0, 0, 0, 0, false).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCommit()
		mockPool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

		require.NoError(t, s.SaveRun(ctx, meta, res))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should roll back when the copy fails", func(t *testing.T) {
		s, mockPool := newMockStore(t, zap.NewNop())
		copyErr := errors.New("copy failed")

		mockPool.ExpectBegin()
		mockPool.ExpectExec(flexibleSQLMatcher(insertRunSQL)).
			WithArgs(anyArgs(11)...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCopyFrom(pgx.Identifier{"run_records"}, recordColumns).WillReturnError(copyErr)
		mockPool.ExpectRollback()

		err := s.SaveRun(ctx, meta, sampleResult())
		assert.ErrorIs(t, err, copyErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should reject a nil result", func(t *testing.T) {
		s, _ := newMockStore(t, zap.NewNop())
		assert.Error(t, s.SaveRun(ctx, meta, nil))
	})
}

func TestRecentRuns(t *testing.T) {
	s, mockPool := newMockStore(t, zap.NewNop())
	started := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	rows := mockPool.NewRows([]string{
		"id", "input_path", "sheet", "report_path", "started_at", "finished_at",
		"committed", "duplicates", "invalid", "failed", "interrupted",
	}).
		AddRow("run-2", "/data/b.xlsx", "2024", "", started.Add(time.Hour), started.Add(2*time.Hour), 3, 1, 0, 0, true).
		AddRow("run-1", "/data/a.xlsx", "2024", "/out/r.xlsx", started, started.Add(time.Minute), 1, 0, 0, 1, false)
	mockPool.ExpectQuery(flexibleSQLMatcher(recentRunsSQL)).WithArgs(20).WillReturnRows(rows)

	got, err := s.RecentRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "run-2", got[0].ID)
	assert.True(t, got[0].Interrupted)
	assert.Equal(t, 1, got[1].Failed)
	assert.Equal(t, "/out/r.xlsx", got[1].ReportPath)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

// anyArgs matches n arguments of any value.
func anyArgs(n int) []interface{} {
	args := make([]interface{}, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}
