package scheduler

import (
	"fmt"
	"time"

	"tracking-sentinel/internal/core/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler wraps a cron runner pinned to the operating timezone.
type Scheduler struct {
	cron *cron.Cron
	loc  *time.Location
}

// New creates a Scheduler whose jobs fire in the given location.
func New(loc *time.Location) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLocation(loc)),
		loc:  loc,
	}
}

// ScheduleDaily registers a job that runs every day at the given local time.
func (s *Scheduler) ScheduleDaily(hour, minute int, name string, job func()) error {
	spec := fmt.Sprintf("%d %d * * *", minute, hour)
	if _, err := s.cron.AddFunc(spec, job); err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	logger.Get().Info("Job scheduled",
		zap.String("job", name),
		zap.String("spec", spec),
		zap.String("timezone", s.loc.String()),
	)
	return nil
}

// Start launches the cron runner in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the cron runner, waiting for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
