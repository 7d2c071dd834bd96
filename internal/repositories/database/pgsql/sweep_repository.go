package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/roundup_vault/internal/apperrors"
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	portsrepo "github.com/SscSPs/roundup_vault/internal/core/ports/repositories"
	"github.com/SscSPs/roundup_vault/internal/models"
	"github.com/SscSPs/roundup_vault/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	settingsColumns = `user_id, is_active, sweep_day, monthly_cap, minimum_threshold, risk_profile, halted_at, halt_reason, created_at, updated_at`
	runColumns      = `sweep_run_id, user_id, scheduled_for, scheduled_at, amount, invested_amount, currency_code, risk_profile, status, error_detail, executed_at`
	orderColumns    = `order_id, user_id, sweep_run_id, client_order_id, instrument_symbol, instrument_name, amount, currency_code,
		status, filled_quantity, external_order_id, failure_reason, executed_at, created_at, updated_at`
)

type PgxSweepSettingsRepository struct {
	BaseRepository
}

// newPgxSweepSettingsRepository creates a new repository for sweep settings and integrity holds.
func newPgxSweepSettingsRepository(pool *pgxpool.Pool) portsrepo.SweepSettingsRepository {
	return &PgxSweepSettingsRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.SweepSettingsRepository = (*PgxSweepSettingsRepository)(nil)

func (r *PgxSweepSettingsRepository) FindSweepSettings(ctx context.Context, userID string) (*domain.SweepSettings, error) {
	rows, err := r.Pool.Query(ctx, `SELECT `+settingsColumns+` FROM sweep_settings WHERE user_id = $1;`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sweep settings of user %s: %w", userID, err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, scanSettings)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan sweep settings of user %s: %w", userID, err)
	}
	settings := mapping.ToDomainSweepSettings(m)
	return &settings, nil
}

// UpsertSweepSettings never touches the hold columns or created_at of an existing row.
func (r *PgxSweepSettingsRepository) UpsertSweepSettings(ctx context.Context, settings domain.SweepSettings) error {
	m := mapping.ToModelSweepSettings(settings)
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO sweep_settings (`+settingsColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, NULL, NULL, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			is_active = EXCLUDED.is_active,
			sweep_day = EXCLUDED.sweep_day,
			monthly_cap = EXCLUDED.monthly_cap,
			minimum_threshold = EXCLUDED.minimum_threshold,
			risk_profile = EXCLUDED.risk_profile,
			updated_at = EXCLUDED.updated_at;
	`,
		m.UserID,
		m.IsActive,
		m.SweepDay,
		m.MonthlyCap,
		m.MinimumThreshold,
		m.RiskProfile,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to save sweep settings of user "+settings.UserID, err)
	}
	return nil
}

func (r *PgxSweepSettingsRepository) ListSweepSettings(ctx context.Context) ([]domain.SweepSettings, error) {
	rows, err := r.Pool.Query(ctx, `SELECT `+settingsColumns+` FROM sweep_settings ORDER BY user_id;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sweep settings: %w", err)
	}
	ms, err := pgx.CollectRows(rows, scanSettings)
	if err != nil {
		return nil, fmt.Errorf("failed to scan sweep settings: %w", err)
	}
	return mapping.ToDomainSweepSettingsSlice(ms), nil
}

// PlaceIntegrityHold keeps the original halted_at when a hold is already in place.
func (r *PgxSweepSettingsRepository) PlaceIntegrityHold(ctx context.Context, userID, reason string, at time.Time) error {
	defaults := mapping.ToModelSweepSettings(domain.DefaultSweepSettings(userID))
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO sweep_settings (`+settingsColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $7, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			halted_at = COALESCE(sweep_settings.halted_at, EXCLUDED.halted_at),
			halt_reason = EXCLUDED.halt_reason,
			updated_at = EXCLUDED.updated_at;
	`,
		userID,
		defaults.IsActive,
		defaults.SweepDay,
		defaults.MonthlyCap,
		defaults.MinimumThreshold,
		defaults.RiskProfile,
		at,
		reason,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to place integrity hold on user "+userID, err)
	}
	return nil
}

func (r *PgxSweepSettingsRepository) ClearIntegrityHold(ctx context.Context, userID string, at time.Time) error {
	tag, err := r.Pool.Exec(ctx, `
		UPDATE sweep_settings SET halted_at = NULL, halt_reason = NULL, updated_at = $2
		WHERE user_id = $1;
	`, userID, at)
	if err != nil {
		return apperrors.NewAppError(500, "failed to clear integrity hold on user "+userID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func scanSettings(row pgx.CollectableRow) (models.SweepSettings, error) {
	var m models.SweepSettings
	err := row.Scan(
		&m.UserID,
		&m.IsActive,
		&m.SweepDay,
		&m.MonthlyCap,
		&m.MinimumThreshold,
		&m.RiskProfile,
		&m.HaltedAt,
		&m.HaltReason,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}

type PgxSweepRunRepository struct {
	BaseRepository
}

// newPgxSweepRunRepository creates a new repository for sweep runs.
func newPgxSweepRunRepository(pool *pgxpool.Pool) portsrepo.SweepRunRepositoryFacade {
	return &PgxSweepRunRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.SweepRunRepositoryFacade = (*PgxSweepRunRepository)(nil)

func (r *PgxSweepRunRepository) FindSweepRunByID(ctx context.Context, sweepRunID string) (*domain.SweepRun, error) {
	return r.findOne(ctx, `SELECT `+runColumns+` FROM sweep_runs WHERE sweep_run_id = $1;`, sweepRunID)
}

// FindSweepRunByScheduledDate compares calendar dates; scheduledFor is formatted in its own location.
func (r *PgxSweepRunRepository) FindSweepRunByScheduledDate(ctx context.Context, userID string, scheduledFor time.Time) (*domain.SweepRun, error) {
	return r.findOne(ctx, `SELECT `+runColumns+` FROM sweep_runs WHERE user_id = $1 AND scheduled_for = $2::date;`,
		userID, scheduledFor.Format(time.DateOnly))
}

func (r *PgxSweepRunRepository) ListSweepRunsByUser(ctx context.Context, userID string, limit int) ([]domain.SweepRun, error) {
	query := `SELECT ` + runColumns + ` FROM sweep_runs WHERE user_id = $1 ORDER BY scheduled_for DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}
	return r.queryRuns(ctx, query+`;`, userID)
}

func (r *PgxSweepRunRepository) ListSweepRunsByStatus(ctx context.Context, statuses ...domain.SweepStatus) ([]domain.SweepRun, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	return r.queryRuns(ctx, `SELECT `+runColumns+` FROM sweep_runs WHERE status = ANY($1) ORDER BY scheduled_at;`, values)
}

func (r *PgxSweepRunRepository) ListSweepRunsInRange(ctx context.Context, userID string, from, to time.Time) ([]domain.SweepRun, error) {
	return r.queryRuns(ctx, `
		SELECT `+runColumns+` FROM sweep_runs
		WHERE user_id = $1 AND scheduled_for >= $2::date AND scheduled_for < $3::date
		ORDER BY scheduled_for;
	`, userID, from.Format(time.DateOnly), to.Format(time.DateOnly))
}

// CreateSweepRun relies on the (user_id, scheduled_for) unique constraint.
func (r *PgxSweepRunRepository) CreateSweepRun(ctx context.Context, run domain.SweepRun) error {
	m := mapping.ToModelSweepRun(run)
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO sweep_runs (`+runColumns+`)
		VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8, $9, $10, $11);
	`,
		m.SweepRunID,
		m.UserID,
		m.ScheduledFor.Format(time.DateOnly),
		m.ScheduledAt,
		m.Amount,
		m.InvestedAmount,
		m.CurrencyCode,
		m.RiskProfile,
		m.Status,
		m.ErrorDetail,
		m.ExecutedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrDuplicate
		}
		return apperrors.NewAppError(500, "failed to insert sweep run "+run.SweepRunID, err)
	}
	return nil
}

func (r *PgxSweepRunRepository) TransitionSweepRun(ctx context.Context, sweepRunID string, from, to domain.SweepStatus, errorDetail string, executedAt *time.Time) error {
	tag, err := r.Pool.Exec(ctx, `
		UPDATE sweep_runs
		SET status = $3, error_detail = $4, executed_at = COALESCE($5, executed_at)
		WHERE sweep_run_id = $1 AND status = $2;
	`, sweepRunID, string(from), string(to), mapping.NullString(errorDetail), executedAt)
	if err != nil {
		return apperrors.NewAppError(500, "failed to transition sweep run "+sweepRunID, err)
	}
	if tag.RowsAffected() == 0 {
		return conflictOrNotFound(ctx, r.Pool, "sweep_runs", "sweep_run_id", sweepRunID)
	}
	return nil
}

// CompleteSweepRun writes the status change and the investment reversal in one transaction.
func (r *PgxSweepRunRepository) CompleteSweepRun(ctx context.Context, sweepRunID string, from domain.SweepStatus, invested decimal.Decimal, executedAt time.Time, entry domain.LedgerEntry) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE sweep_runs
			SET status = $3, invested_amount = $4, executed_at = $5, error_detail = NULL
			WHERE sweep_run_id = $1 AND status = $2;
		`, sweepRunID, string(from), string(domain.SweepCompleted), invested, executedAt)
		if err != nil {
			return apperrors.NewAppError(500, "failed to complete sweep run "+sweepRunID, err)
		}
		if tag.RowsAffected() == 0 {
			return conflictOrNotFound(ctx, tx, "sweep_runs", "sweep_run_id", sweepRunID)
		}
		return insertEntry(ctx, tx, entry)
	})
}

func (r *PgxSweepRunRepository) findOne(ctx context.Context, query string, args ...any) (*domain.SweepRun, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sweep run: %w", err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, scanRun)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan sweep run: %w", err)
	}
	run := mapping.ToDomainSweepRun(m)
	return &run, nil
}

func (r *PgxSweepRunRepository) queryRuns(ctx context.Context, query string, args ...any) ([]domain.SweepRun, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sweep runs: %w", err)
	}
	ms, err := pgx.CollectRows(rows, scanRun)
	if err != nil {
		return nil, fmt.Errorf("failed to scan sweep runs: %w", err)
	}
	return mapping.ToDomainSweepRunSlice(ms), nil
}

func scanRun(row pgx.CollectableRow) (models.SweepRun, error) {
	var m models.SweepRun
	err := row.Scan(
		&m.SweepRunID,
		&m.UserID,
		&m.ScheduledFor,
		&m.ScheduledAt,
		&m.Amount,
		&m.InvestedAmount,
		&m.CurrencyCode,
		&m.RiskProfile,
		&m.Status,
		&m.ErrorDetail,
		&m.ExecutedAt,
	)
	return m, err
}

type PgxOrderRepository struct {
	BaseRepository
}

// newPgxOrderRepository creates a new repository for sweep orders.
func newPgxOrderRepository(pool *pgxpool.Pool) portsrepo.OrderRepository {
	return &PgxOrderRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.OrderRepository = (*PgxOrderRepository)(nil)

func (r *PgxOrderRepository) SaveOrder(ctx context.Context, order domain.Order) error {
	m := mapping.ToModelOrder(order)
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`,
		m.OrderID,
		m.UserID,
		m.SweepRunID,
		m.ClientOrderID,
		m.InstrumentSymbol,
		m.InstrumentName,
		m.Amount,
		m.CurrencyCode,
		m.Status,
		m.FilledQuantity,
		m.ExternalOrderID,
		m.FailureReason,
		m.ExecutedAt,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: order %s", apperrors.ErrDuplicate, order.ClientOrderID)
		}
		return apperrors.NewAppError(500, "failed to insert order "+order.ClientOrderID, err)
	}
	return nil
}

func (r *PgxOrderRepository) UpdateOrder(ctx context.Context, order domain.Order) error {
	m := mapping.ToModelOrder(order)
	tag, err := r.Pool.Exec(ctx, `
		UPDATE orders
		SET status = $2, filled_quantity = $3, external_order_id = $4, failure_reason = $5, executed_at = $6, updated_at = $7
		WHERE order_id = $1;
	`, m.OrderID, m.Status, m.FilledQuantity, m.ExternalOrderID, m.FailureReason, m.ExecutedAt, m.UpdatedAt)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update order "+order.OrderID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PgxOrderRepository) ListOrdersBySweepRun(ctx context.Context, sweepRunID string) ([]domain.Order, error) {
	rows, err := r.Pool.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE sweep_run_id = $1 ORDER BY instrument_symbol;`, sweepRunID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders of sweep run %s: %w", sweepRunID, err)
	}
	ms, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Order, error) {
		var m models.Order
		err := row.Scan(
			&m.OrderID,
			&m.UserID,
			&m.SweepRunID,
			&m.ClientOrderID,
			&m.InstrumentSymbol,
			&m.InstrumentName,
			&m.Amount,
			&m.CurrencyCode,
			&m.Status,
			&m.FilledQuantity,
			&m.ExternalOrderID,
			&m.FailureReason,
			&m.ExecutedAt,
			&m.CreatedAt,
			&m.UpdatedAt,
		)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan orders of sweep run %s: %w", sweepRunID, err)
	}
	return mapping.ToDomainOrderSlice(ms), nil
}
