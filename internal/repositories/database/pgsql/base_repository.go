package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/roundup_vault/internal/apperrors"
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

// executor is satisfied by both *pgxpool.Pool and pgx.Tx.
type executor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	Pool *pgxpool.Pool
}

// Begin starts a new database transaction
func (r *BaseRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to begin transaction", err)
	}
	return tx, nil
}

// Commit commits a transaction
func (r *BaseRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewAppError(500, "failed to commit transaction", err)
	}
	return nil
}

// Rollback rolls back a transaction
func (r *BaseRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return apperrors.NewAppError(500, "failed to rollback transaction", err)
	}
	return nil
}

// Ping checks connectivity for the readiness route.
func (r *BaseRepository) Ping(ctx context.Context) error {
	return r.Pool.Ping(ctx)
}

// inTx runs fn inside a transaction, committing only if fn succeeds.
func (r *BaseRepository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx) // no-op after a successful commit

	if err := fn(tx); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

// lockUserLedger takes a transaction-scoped advisory lock on a user's ledger.
// Writers that re-check a balance hold it until commit, so two of them cannot interleave.
func lockUserLedger(ctx context.Context, tx pgx.Tx, userID string) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1));`, userID); err != nil {
		return apperrors.NewAppError(500, "failed to lock ledger of user "+userID, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

const entryColumns = `entry_id, user_id, amount, currency_code, is_reversal, transaction_id, withdrawal_id, sweep_run_id, created_at`

func insertEntry(ctx context.Context, q executor, entry domain.LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	query := `INSERT INTO ledger_entries (` + entryColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`
	_, err := q.Exec(ctx, query,
		entry.EntryID,
		entry.UserID,
		entry.Amount,
		entry.CurrencyCode,
		entry.IsReversal,
		entry.TransactionID,
		entry.WithdrawalID,
		entry.SweepRunID,
		entry.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: ledger entry %s", apperrors.ErrDuplicate, entry.EntryID)
		}
		return apperrors.NewAppError(500, "failed to insert ledger entry "+entry.EntryID, err)
	}
	return nil
}

func rawBalance(ctx context.Context, q executor, userID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE WHEN is_reversal THEN -amount ELSE amount END), 0)
		FROM ledger_entries
		WHERE user_id = $1;
	`, userID).Scan(&sum)
	if err != nil {
		return decimal.Zero, apperrors.NewAppError(500, "failed to sum ledger of user "+userID, err)
	}
	return sum, nil
}

func scanEntry(row pgx.CollectableRow) (domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	err := row.Scan(
		&e.EntryID,
		&e.UserID,
		&e.Amount,
		&e.CurrencyCode,
		&e.IsReversal,
		&e.TransactionID,
		&e.WithdrawalID,
		&e.SweepRunID,
		&e.CreatedAt,
	)
	return e, err
}

// conflictOrNotFound resolves a conditional UPDATE that touched no rows.
func conflictOrNotFound(ctx context.Context, q executor, table, idColumn, id string) error {
	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1);`, table, idColumn)
	if err := q.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return apperrors.NewAppError(500, "failed to check "+table+" "+id, err)
	}
	if !exists {
		return apperrors.ErrNotFound
	}
	return fmt.Errorf("%w: %s %s changed concurrently", apperrors.ErrConcurrencyConflict, table, id)
}
