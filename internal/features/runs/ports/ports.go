package ports

import (
	"context"
	"time"

	"tracking-sentinel/internal/features/runs/domain"
)

// RunRepository persists daily run logs.
type RunRepository interface {
	// Start opens a run log in running state and returns its id.
	Start(ctx context.Context, runDate time.Time) (int64, error)
	// Complete closes a run log with its final status, metrics and errors.
	Complete(ctx context.Context, id int64, status domain.RunStatus, stats domain.RunStats, flowErrors []domain.FlowError) error
	// Recent returns the latest run logs, newest first.
	Recent(ctx context.Context, limit int) ([]domain.RunLog, error)
}
