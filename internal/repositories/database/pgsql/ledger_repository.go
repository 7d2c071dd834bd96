package pgsql

import (
	"context"
	"fmt"

	"github.com/SscSPs/roundup_vault/internal/apperrors"
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	portsrepo "github.com/SscSPs/roundup_vault/internal/core/ports/repositories"
	"github.com/SscSPs/roundup_vault/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxLedgerRepository struct {
	BaseRepository
}

// newPgxLedgerRepository creates a new repository for vault ledger entries.
func newPgxLedgerRepository(pool *pgxpool.Pool) portsrepo.LedgerRepositoryFacade {
	return &PgxLedgerRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.LedgerRepositoryFacade = (*PgxLedgerRepository)(nil)

func (r *PgxLedgerRepository) ListEntriesByUser(ctx context.Context, userID string) ([]domain.LedgerEntry, error) {
	return r.queryEntries(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE user_id = $1;`, userID)
}

func (r *PgxLedgerRepository) ListEntriesByTransaction(ctx context.Context, transactionID string) ([]domain.LedgerEntry, error) {
	return r.queryEntries(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE transaction_id = $1 ORDER BY created_at, entry_id;`, transactionID)
}

// ListEntriesPage uses keyset pagination on (created_at, entry_id), newest first.
func (r *PgxLedgerRepository) ListEntriesPage(ctx context.Context, userID string, limit int, nextToken *string) ([]domain.LedgerEntry, *string, error) {
	args := []any{userID}
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE user_id = $1`
	if nextToken != nil && *nextToken != "" {
		afterTime, afterID, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: invalid next token: %v", apperrors.ErrValidation, err)
		}
		query += ` AND (created_at, entry_id) < ($2, $3)`
		args = append(args, afterTime, afterID)
	}
	// Fetch one extra row to know whether another page exists.
	query += fmt.Sprintf(` ORDER BY created_at DESC, entry_id DESC LIMIT %d;`, limit+1)

	entries, err := r.queryEntries(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	if len(entries) <= limit {
		return entries, nil, nil
	}
	entries = entries[:limit]
	last := entries[limit-1]
	token := pagination.EncodeToken(last.CreatedAt, last.EntryID)
	return entries, &token, nil
}

func (r *PgxLedgerRepository) ListLedgerUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.Pool.Query(ctx, `SELECT DISTINCT user_id FROM ledger_entries ORDER BY user_id;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger users: %w", err)
	}
	userIDs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan ledger users: %w", err)
	}
	return userIDs, nil
}

func (r *PgxLedgerRepository) AppendEntry(ctx context.Context, entry domain.LedgerEntry) error {
	return insertEntry(ctx, r.Pool, entry)
}

// AppendTransactionEntry serializes on the user's advisory lock so the live count
// read and the insert cannot interleave with another writer for the same user.
func (r *PgxLedgerRepository) AppendTransactionEntry(ctx context.Context, entry domain.LedgerEntry, expectedLive int) error {
	if entry.TransactionID == nil {
		return fmt.Errorf("%w: entry %s does not reference a transaction", apperrors.ErrValidation, entry.EntryID)
	}

	return r.inTx(ctx, func(tx pgx.Tx) error {
		if err := lockUserLedger(ctx, tx, entry.UserID); err != nil {
			return err
		}

		var live int
		err := tx.QueryRow(ctx, `
			SELECT COALESCE(SUM(CASE WHEN is_reversal THEN -1 ELSE 1 END), 0)
			FROM ledger_entries
			WHERE transaction_id = $1;
		`, *entry.TransactionID).Scan(&live)
		if err != nil {
			return apperrors.NewAppError(500, "failed to count live round-ups of transaction "+*entry.TransactionID, err)
		}
		if live != expectedLive {
			return fmt.Errorf("%w: transaction %s has %d live round-ups, expected %d",
				apperrors.ErrConcurrencyConflict, *entry.TransactionID, live, expectedLive)
		}

		return insertEntry(ctx, tx, entry)
	})
}

func (r *PgxLedgerRepository) queryEntries(ctx context.Context, query string, args ...any) ([]domain.LedgerEntry, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	entries, err := pgx.CollectRows(rows, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("failed to scan ledger entries: %w", err)
	}
	return entries, nil
}
