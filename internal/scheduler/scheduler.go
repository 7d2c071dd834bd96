package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/roundup_vault/internal/jobs"
	"github.com/robfig/cron/v3"
)

// Specs holds the standard five-field cron expressions of the scheduled jobs.
type Specs struct {
	TriggerSweeps  string
	Reconcile      string
	SyncPortfolios string
}

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron   *cron.Cron
	jobs   *jobs.JobRunner
	logger *slog.Logger
}

// NewScheduler creates a scheduler evaluating specs in loc. A job that is still running
// when its next tick fires is skipped rather than overlapped.
func NewScheduler(jobRunner *jobs.JobRunner, specs Specs, loc *time.Location, logger *slog.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	cronLogger := slogCronLogger{logger: logger}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	s := &Scheduler{cron: c, jobs: jobRunner, logger: logger}
	if err := s.registerJobs(specs); err != nil {
		return nil, err
	}
	return s, nil
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs(specs Specs) error {
	if _, err := s.cron.AddFunc(specs.TriggerSweeps, func() { _ = s.jobs.TriggerSweeps() }); err != nil {
		return fmt.Errorf("failed to register TriggerSweeps job (%q): %w", specs.TriggerSweeps, err)
	}
	if _, err := s.cron.AddFunc(specs.Reconcile, func() { _ = s.jobs.RunAllReconcileJobs() }); err != nil {
		return fmt.Errorf("failed to register reconcile jobs (%q): %w", specs.Reconcile, err)
	}
	if _, err := s.cron.AddFunc(specs.SyncPortfolios, func() { _ = s.jobs.SyncPortfolios() }); err != nil {
		return fmt.Errorf("failed to register SyncPortfolios job (%q): %w", specs.SyncPortfolios, err)
	}
	s.logger.Info("All cron jobs registered successfully",
		slog.String("trigger_sweeps", specs.TriggerSweeps),
		slog.String("reconcile", specs.Reconcile),
		slog.String("sync_portfolios", specs.SyncPortfolios))
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	s.logger.Info("Starting cron scheduler...")
	s.cron.Start()
}

// Stop gracefully stops the cron scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron scheduler stopped")
}

// Entries returns the registered jobs with their next run time.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// slogCronLogger adapts slog to the cron.Logger interface.
type slogCronLogger struct {
	logger *slog.Logger
}

func (l slogCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l slogCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{slog.String("error", err.Error())}, keysAndValues...)...)
}
