// Package scheduler runs periodic housekeeping jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/neurorecall/internal/logging"
	"github.com/go-co-op/gocron"
)

// Cleaner purges expired data. Each call returns the number of removed items.
type Cleaner interface {
	PurgeResetTokens(ctx context.Context) (int64, error)
	PurgeRefreshTokens(ctx context.Context) (int64, error)
	PruneAttempts(ctx context.Context) (int64, error)
}

// Scheduler manages the cleanup jobs.
type Scheduler struct {
	scheduler *gocron.Scheduler
	cleaner   Cleaner
	interval  time.Duration
	timeout   time.Duration
	logger    logging.Logger
}

// New creates a scheduler running every cleanup job once per interval.
func New(cleaner Cleaner, interval time.Duration, logger logging.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		cleaner:   cleaner,
		interval:  interval,
		timeout:   time.Minute,
		logger:    logger.With("module", "scheduler"),
	}
}

type job struct {
	name string
	run  func(ctx context.Context) (int64, error)
}

func (s *Scheduler) jobs() []job {
	return []job{
		{"reset_tokens", s.cleaner.PurgeResetTokens},
		{"refresh_tokens", s.cleaner.PurgeRefreshTokens},
		{"rate_limit_attempts", s.cleaner.PruneAttempts},
	}
}

// Start registers the jobs and runs them in the background, first right away.
func (s *Scheduler) Start() error {
	for _, j := range s.jobs() {
		if _, err := s.scheduler.Every(s.interval).Tag(j.name).Do(s.runJob, j); err != nil {
			return fmt.Errorf("schedule %s: %w", j.name, err)
		}
	}
	s.scheduler.StartAsync()
	return nil
}

// Stop terminates the jobs, waiting for running ones to finish.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// RunNow runs every job once, synchronously.
func (s *Scheduler) RunNow() {
	for _, j := range s.jobs() {
		s.runJob(j)
	}
}

func (s *Scheduler) runJob(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := j.run(ctx)
	if err != nil {
		s.logger.Error(ctx, "cleanup job failed", "job", j.name, "error", err)
		return
	}
	if n > 0 {
		s.logger.Info(ctx, "cleanup job done", "job", j.name, "removed", n)
	}
}
