// Package scheduler runs jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/etnz/folio/runid"
	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

// Task is the work of a job.
type Task func(ctx context.Context) error

// Scheduler runs Tasks. A job never overlaps with its own previous run.
type Scheduler struct {
	scheduler gocron.Scheduler
	log       zerolog.Logger
}

// New returns a stopped scheduler logging to log.
func New(log zerolog.Logger, opts ...gocron.SchedulerOption) (*Scheduler, error) {
	s, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("cannot create scheduler: %w", err)
	}
	return &Scheduler{scheduler: s, log: log}, nil
}

// Start starts running the jobs in the background.
func (s *Scheduler) Start() { s.scheduler.Start() }

// Stop waits for running jobs and stops the scheduler.
func (s *Scheduler) Stop() error { return s.scheduler.Shutdown() }

func (s *Scheduler) createJob(definition gocron.JobDefinition, name string, fn Task, startImmediately bool) error {
	opts := []gocron.JobOption{
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if startImmediately {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}
	if _, err := s.scheduler.NewJob(definition, gocron.NewTask(s.taskWithRecover(fn, name)), opts...); err != nil {
		return fmt.Errorf("cannot create job %q: %w", name, err)
	}
	return nil
}

// NewIntervalJob runs fn every interval.
func (s *Scheduler) NewIntervalJob(name string, fn Task, interval time.Duration, startImmediately bool) error {
	return s.createJob(gocron.DurationJob(interval), name, fn, startImmediately)
}

// NewCrontabJob runs fn on a five field crontab, e.g. "0 18 * * 1-5".
func (s *Scheduler) NewCrontabJob(name string, fn Task, crontab string, startImmediately bool) error {
	return s.createJob(gocron.CronJob(crontab, false), name, fn, startImmediately)
}

func (s *Scheduler) taskWithRecover(fn Task, name string) func(ctx context.Context) {
	return func(ctx context.Context) {
		ctx = runid.New(ctx, s.log.With().Str("job", name).Logger())
		log := zerolog.Ctx(ctx)
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("stacktrace", string(debug.Stack())).Msg("panic recovered in job")
			}
		}()

		log.Info().Msg("job start")
		start := time.Now()
		if err := fn(ctx); err != nil {
			log.Error().Err(err).Msg("job failed")
			return
		}
		log.Info().Dur("elapsed", time.Since(start)).Msg("job completed")
	}
}
