package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	portssvc "github.com/SscSPs/roundup_vault/internal/core/ports/services"
	"github.com/SscSPs/roundup_vault/internal/middleware"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services *portssvc.ServiceContainer
	logger   *slog.Logger
	timeout  time.Duration
	now      func() time.Time
}

// NewJobRunner creates a new job runner. timeout bounds a single job execution; zero means no bound.
func NewJobRunner(services *portssvc.ServiceContainer, logger *slog.Logger, timeout time.Duration) *JobRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobRunner{
		services: services,
		logger:   logger,
		timeout:  timeout,
		now:      time.Now,
	}
}

// runWithRecovery wraps job execution with panic recovery and a job-scoped logger.
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) (err error) {
	logger := jr.logger.With(slog.String("job", jobName))
	ctx := middleware.WithLogger(context.Background(), logger)
	if jr.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, jr.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", slog.Any("panic", r))
			err = fmt.Errorf("job %s panicked: %v", jobName, r)
		}
	}()

	start := time.Now()
	logger.Info("Starting job")
	if err = jobFunc(ctx); err != nil {
		logger.Error("Job failed", slog.String("error", err.Error()), slog.Duration("elapsed", time.Since(start)))
		return err
	}
	logger.Info("Job completed", slog.Duration("elapsed", time.Since(start)))
	return nil
}

// RunAllReconcileJobs runs every reconciliation job, continuing past failures.
// It returns the first error encountered.
func (jr *JobRunner) RunAllReconcileJobs() error {
	var first error
	for _, job := range []func() error{jr.ReconcileSweeps, jr.ReconcileWithdrawals, jr.ReconcileBalances} {
		if err := job(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
