// Package scheduler runs periodic maintenance jobs on cron schedules:
// sweeping expired dedup entries and retrying failed memory persistence.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Job is a named maintenance function fired on a cron schedule.
type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context)
}

// Scheduler registers maintenance jobs as cron entries.
type Scheduler struct {
	jobs   []Job
	cron   *cron.Cron
	logger *slog.Logger
}

// cronParser accepts standard 5-field cron expressions, 6-field expressions
// with an optional seconds field, and descriptors like "@every 5m".
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// New creates a Scheduler for the given jobs.
func New(jobs ...Job) *Scheduler {
	return &Scheduler{
		jobs:   jobs,
		cron:   cron.New(cron.WithParser(cronParser)),
		logger: slog.Default().With("component", "scheduler"),
	}
}

// Start registers each job's cron entry and starts the ticker. A job with an
// invalid schedule is logged and skipped; the rest still run.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, job := range s.jobs {
		if job.Schedule == "" {
			continue
		}
		name := job.Name
		run := job.Run
		_, err := s.cron.AddFunc(job.Schedule, func() {
			s.logger.Debug("maintenance job firing", "name", name)
			run(ctx)
		})
		if err != nil {
			s.logger.Error("invalid cron schedule",
				"name", job.Name, "schedule", job.Schedule, "error", err)
			continue
		}
		s.logger.Info("scheduled maintenance job", "name", job.Name, "schedule", job.Schedule)
	}
	s.cron.Start()
	return nil
}

// Stop stops the cron ticker and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
