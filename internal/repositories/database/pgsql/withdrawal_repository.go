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
)

const withdrawalColumns = `withdrawal_id, user_id, amount, currency_code, destination_account_id, status, reference_number,
	provider_reference, failure_reason, initiated_at, settled_at`

type PgxWithdrawalRepository struct {
	BaseRepository
}

// newPgxWithdrawalRepository creates a new repository for withdrawals and their ledger effects.
func newPgxWithdrawalRepository(pool *pgxpool.Pool) portsrepo.WithdrawalRepositoryFacade {
	return &PgxWithdrawalRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.WithdrawalRepositoryFacade = (*PgxWithdrawalRepository)(nil)

func (r *PgxWithdrawalRepository) FindWithdrawalByID(ctx context.Context, withdrawalID string) (*domain.Withdrawal, error) {
	rows, err := r.Pool.Query(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE withdrawal_id = $1;`, withdrawalID)
	if err != nil {
		return nil, fmt.Errorf("failed to query withdrawal %s: %w", withdrawalID, err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, scanWithdrawal)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan withdrawal %s: %w", withdrawalID, err)
	}
	w := mapping.ToDomainWithdrawal(m)
	return &w, nil
}

func (r *PgxWithdrawalRepository) ListWithdrawalsByUser(ctx context.Context, userID string, limit int) ([]domain.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE user_id = $1 ORDER BY initiated_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}
	return r.queryWithdrawals(ctx, query+`;`, userID)
}

func (r *PgxWithdrawalRepository) ListWithdrawalsByStatus(ctx context.Context, statuses ...domain.WithdrawalStatus) ([]domain.Withdrawal, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	return r.queryWithdrawals(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE status = ANY($1) ORDER BY initiated_at;`, values)
}

// ReserveWithdrawal re-checks the raw balance under the user's advisory lock, so
// reservations racing through different application instances cannot overdraw.
func (r *PgxWithdrawalRepository) ReserveWithdrawal(ctx context.Context, withdrawal domain.Withdrawal, reservation domain.LedgerEntry) error {
	m := mapping.ToModelWithdrawal(withdrawal)
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if err := lockUserLedger(ctx, tx, withdrawal.UserID); err != nil {
			return err
		}
		balance, err := rawBalance(ctx, tx, withdrawal.UserID)
		if err != nil {
			return err
		}
		if balance.Sub(reservation.Amount).IsNegative() {
			return fmt.Errorf("%w: reservation of %s would overdraw vault of user %s",
				apperrors.ErrConcurrencyConflict, reservation.Amount.String(), withdrawal.UserID)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO withdrawals (`+withdrawalColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
		`,
			m.WithdrawalID,
			m.UserID,
			m.Amount,
			m.CurrencyCode,
			m.DestinationAccountID,
			m.Status,
			m.ReferenceNumber,
			m.ProviderReference,
			m.FailureReason,
			m.InitiatedAt,
			m.SettledAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: withdrawal %s", apperrors.ErrDuplicate, withdrawal.WithdrawalID)
			}
			return apperrors.NewAppError(500, "failed to insert withdrawal "+withdrawal.WithdrawalID, err)
		}
		return insertEntry(ctx, tx, reservation)
	})
}

func (r *PgxWithdrawalRepository) MarkWithdrawalProcessing(ctx context.Context, withdrawalID, providerReference string) error {
	tag, err := r.Pool.Exec(ctx, `
		UPDATE withdrawals SET status = $2, provider_reference = $3
		WHERE withdrawal_id = $1 AND status = $4;
	`, withdrawalID, string(domain.WithdrawalProcessing), mapping.NullString(providerReference), string(domain.WithdrawalPending))
	if err != nil {
		return apperrors.NewAppError(500, "failed to mark withdrawal processing "+withdrawalID, err)
	}
	if tag.RowsAffected() == 0 {
		return conflictOrNotFound(ctx, r.Pool, "withdrawals", "withdrawal_id", withdrawalID)
	}
	return nil
}

func (r *PgxWithdrawalRepository) CompleteWithdrawal(ctx context.Context, withdrawalID, providerReference string, settledAt time.Time) error {
	tag, err := r.Pool.Exec(ctx, `
		UPDATE withdrawals
		SET status = $2, provider_reference = COALESCE($3, provider_reference), settled_at = $4
		WHERE withdrawal_id = $1 AND status IN ($5, $6);
	`, withdrawalID, string(domain.WithdrawalCompleted), mapping.NullString(providerReference), settledAt,
		string(domain.WithdrawalPending), string(domain.WithdrawalProcessing))
	if err != nil {
		return apperrors.NewAppError(500, "failed to complete withdrawal "+withdrawalID, err)
	}
	if tag.RowsAffected() == 0 {
		return conflictOrNotFound(ctx, r.Pool, "withdrawals", "withdrawal_id", withdrawalID)
	}
	return nil
}

// FailWithdrawal flips the status and appends the compensation in one transaction.
func (r *PgxWithdrawalRepository) FailWithdrawal(ctx context.Context, withdrawalID, reason string, settledAt time.Time, compensation domain.LedgerEntry) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE withdrawals SET status = $2, failure_reason = $3, settled_at = $4
			WHERE withdrawal_id = $1 AND status IN ($5, $6);
		`, withdrawalID, string(domain.WithdrawalFailed), mapping.NullString(reason), settledAt,
			string(domain.WithdrawalPending), string(domain.WithdrawalProcessing))
		if err != nil {
			return apperrors.NewAppError(500, "failed to fail withdrawal "+withdrawalID, err)
		}
		if tag.RowsAffected() == 0 {
			return conflictOrNotFound(ctx, tx, "withdrawals", "withdrawal_id", withdrawalID)
		}
		return insertEntry(ctx, tx, compensation)
	})
}

func (r *PgxWithdrawalRepository) queryWithdrawals(ctx context.Context, query string, args ...any) ([]domain.Withdrawal, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query withdrawals: %w", err)
	}
	ms, err := pgx.CollectRows(rows, scanWithdrawal)
	if err != nil {
		return nil, fmt.Errorf("failed to scan withdrawals: %w", err)
	}
	return mapping.ToDomainWithdrawalSlice(ms), nil
}

func scanWithdrawal(row pgx.CollectableRow) (models.Withdrawal, error) {
	var m models.Withdrawal
	err := row.Scan(
		&m.WithdrawalID,
		&m.UserID,
		&m.Amount,
		&m.CurrencyCode,
		&m.DestinationAccountID,
		&m.Status,
		&m.ReferenceNumber,
		&m.ProviderReference,
		&m.FailureReason,
		&m.InitiatedAt,
		&m.SettledAt,
	)
	return m, err
}
