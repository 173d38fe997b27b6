package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"tracking-sentinel/internal/features/runs/domain"
)

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores run logs in Postgres.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository creates a run log repository.
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Start opens a run log in running state and returns its id.
func (r *PostgresRepository) Start(ctx context.Context, runDate time.Time) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		"INSERT INTO daily_run_logs (run_date) VALUES ($1) RETURNING id", runDate,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to open run log: %w", err)
	}
	return id, nil
}

// Complete closes a run log with its final status, metrics and errors.
func (r *PostgresRepository) Complete(ctx context.Context, id int64, status domain.RunStatus, stats domain.RunStats, flowErrors []domain.FlowError) error {
	metrics, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to encode run metrics: %w", err)
	}
	if flowErrors == nil {
		flowErrors = []domain.FlowError{}
	}
	errsJSON, err := json.Marshal(flowErrors)
	if err != nil {
		return fmt.Errorf("failed to encode run errors: %w", err)
	}

	tag, err := r.db.Exec(ctx,
		"UPDATE daily_run_logs SET status = $2, metrics = $3, errors = $4, finished_at = NOW() WHERE id = $1",
		id, status, metrics, errsJSON)
	if err != nil {
		return fmt.Errorf("failed to close run log %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run log %d not found", id)
	}
	return nil
}

// Recent returns the latest run logs, newest first.
func (r *PostgresRepository) Recent(ctx context.Context, limit int) ([]domain.RunLog, error) {
	rows, err := r.db.Query(ctx,
		"SELECT id, run_date, status, metrics, errors, started_at, finished_at FROM daily_run_logs ORDER BY started_at DESC LIMIT $1",
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load run logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.RunLog
	for rows.Next() {
		var l domain.RunLog
		var metrics, errs []byte
		if err := rows.Scan(&l.ID, &l.RunDate, &l.Status, &metrics, &errs, &l.StartedAt, &l.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run log: %w", err)
		}
		l.Metrics = metrics
		l.Errors = errs
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read run logs: %w", err)
	}
	return logs, nil
}
