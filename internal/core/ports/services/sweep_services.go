package services

import (
	"context"
	"time"

	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/SscSPs/roundup_vault/internal/dto"
)

// SweepSettingsSvc defines operations on a user's sweep configuration
type SweepSettingsSvc interface {
	// GetSweepSettings returns the stored settings, or the defaults if the user never configured sweeps.
	GetSweepSettings(ctx context.Context, userID string) (*domain.SweepSettings, error)
	UpdateSweepSettings(ctx context.Context, userID string, req dto.UpdateSweepSettingsRequest) (*domain.SweepSettings, error)
}

// SweepSchedulerSvc decides whether a sweep run is due
type SweepSchedulerSvc interface {
	// TriggerSweeps evaluates every configured user. One user's failure never aborts the others.
	TriggerSweeps(ctx context.Context, now time.Time) (*dto.SweepTriggerSummary, error)

	// EvaluateUser runs the sweep state machine for a single user.
	EvaluateUser(ctx context.Context, userID string, now time.Time) (*domain.SweepEvaluation, error)
}

// SweepExecutorSvc hands runs off to the brokerage and settles them
type SweepExecutorSvc interface {
	// ExecuteSweepRun places the orders of a pending run.
	ExecuteSweepRun(ctx context.Context, sweepRunID string) (*domain.SweepRun, error)

	// ReconcileSweepRun polls the broker for pending orders and settles the run when every order is final.
	ReconcileSweepRun(ctx context.Context, sweepRunID string) (*domain.SweepRun, error)

	// ReconcileOpenSweepRuns reconciles every pending or processing run.
	ReconcileOpenSweepRuns(ctx context.Context) ([]domain.SweepRun, error)
}

// SweepReaderSvc defines read operations for sweep history
type SweepReaderSvc interface {
	ListSweepRuns(ctx context.Context, userID string, limit int) ([]domain.SweepRun, error)
}

// SweepSvcFacade combines all sweep-related service interfaces
type SweepSvcFacade interface {
	SweepSchedulerSvc
	SweepExecutorSvc
	SweepReaderSvc
}
