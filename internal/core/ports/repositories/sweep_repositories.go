package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/shopspring/decimal"
)

// SweepSettingsRepository persists per-user sweep configuration and integrity holds.
type SweepSettingsRepository interface {
	// FindSweepSettings returns apperrors.ErrNotFound when the user never configured sweeps.
	FindSweepSettings(ctx context.Context, userID string) (*domain.SweepSettings, error)
	UpsertSweepSettings(ctx context.Context, settings domain.SweepSettings) error
	ListSweepSettings(ctx context.Context) ([]domain.SweepSettings, error)

	// PlaceIntegrityHold halts automated sweeps for a user, creating default settings if needed.
	PlaceIntegrityHold(ctx context.Context, userID, reason string, at time.Time) error
	ClearIntegrityHold(ctx context.Context, userID string, at time.Time) error
}

// SweepRunReader defines read operations for sweep runs
type SweepRunReader interface {
	FindSweepRunByID(ctx context.Context, sweepRunID string) (*domain.SweepRun, error)
	FindSweepRunByScheduledDate(ctx context.Context, userID string, scheduledFor time.Time) (*domain.SweepRun, error)
	ListSweepRunsByUser(ctx context.Context, userID string, limit int) ([]domain.SweepRun, error)
	ListSweepRunsByStatus(ctx context.Context, statuses ...domain.SweepStatus) ([]domain.SweepRun, error)
	// ListSweepRunsInRange returns a user's runs scheduled in [from, to).
	ListSweepRunsInRange(ctx context.Context, userID string, from, to time.Time) ([]domain.SweepRun, error)
}

// SweepRunWriter defines write operations for sweep runs
type SweepRunWriter interface {
	// CreateSweepRun returns apperrors.ErrDuplicate if a run already exists for (user, scheduled date).
	CreateSweepRun(ctx context.Context, run domain.SweepRun) error

	// TransitionSweepRun moves a run from one status to another. It returns
	// apperrors.ErrConcurrencyConflict if the run is no longer in the from status.
	TransitionSweepRun(ctx context.Context, sweepRunID string, from, to domain.SweepStatus, errorDetail string, executedAt *time.Time) error

	// CompleteSweepRun marks a run completed and appends its investment reversal in one transaction.
	CompleteSweepRun(ctx context.Context, sweepRunID string, from domain.SweepStatus, invested decimal.Decimal, executedAt time.Time, entry domain.LedgerEntry) error
}

// SweepRunRepositoryFacade combines all sweep-run repository interfaces
type SweepRunRepositoryFacade interface {
	SweepRunReader
	SweepRunWriter
}

// OrderRepository persists the per-instrument legs of sweep runs.
type OrderRepository interface {
	SaveOrder(ctx context.Context, order domain.Order) error
	UpdateOrder(ctx context.Context, order domain.Order) error
	ListOrdersBySweepRun(ctx context.Context, sweepRunID string) ([]domain.Order, error)
}
