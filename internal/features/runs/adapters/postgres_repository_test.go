package adapters

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracking-sentinel/internal/features/runs/domain"
)

func TestStartReturnsID(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	runDate := time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`INSERT INTO daily_run_logs`).
		WithArgs(runDate).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(9)))

	repo := NewPostgresRepository(mock)
	id, err := repo.Start(context.Background(), runDate)

	require.NoError(t, err)
	assert.Equal(t, int64(9), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteSerializesMetrics(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	stats := domain.RunStats{TenantsFound: 2, ReportsSent: 3}
	flowErrors := []domain.FlowError{{Step: "tenant_5", Error: "timeout"}}
	metrics, _ := json.Marshal(stats)
	errsJSON, _ := json.Marshal(flowErrors)

	mock.ExpectExec(`UPDATE daily_run_logs SET status`).
		WithArgs(int64(9), domain.RunPartial, metrics, errsJSON).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewPostgresRepository(mock)
	err = repo.Complete(context.Background(), 9, domain.RunPartial, stats, flowErrors)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteMissingRun(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`UPDATE daily_run_logs SET status`).
		WithArgs(int64(404), domain.RunSuccess, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewPostgresRepository(mock)
	err = repo.Complete(context.Background(), 404, domain.RunSuccess, domain.RunStats{}, nil)

	assert.ErrorContains(t, err, "not found")
}

func TestRecentScansRows(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	started := time.Date(2024, 3, 18, 6, 0, 0, 0, time.UTC)
	finished := started.Add(4 * time.Minute)
	mock.ExpectQuery(`SELECT id, run_date, status, metrics, errors, started_at, finished_at FROM daily_run_logs`).
		WithArgs(5).
		WillReturnRows(pgxmock.NewRows([]string{"id", "run_date", "status", "metrics", "errors", "started_at", "finished_at"}).
			AddRow(int64(2), started, "success", []byte(`{"tenants_found":2}`), []byte(`[]`), started, &finished).
			AddRow(int64(1), started.AddDate(0, 0, -1), "partial", []byte(`{}`), []byte(`[{"step":"x","error":"y"}]`), started.AddDate(0, 0, -1), nil))

	repo := NewPostgresRepository(mock)
	logs, err := repo.Recent(context.Background(), 5)

	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, int64(2), logs[0].ID)
	assert.Equal(t, domain.RunSuccess, logs[0].Status)
	assert.JSONEq(t, `{"tenants_found":2}`, string(logs[0].Metrics))
	require.NotNil(t, logs[0].FinishedAt)
	assert.Nil(t, logs[1].FinishedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
