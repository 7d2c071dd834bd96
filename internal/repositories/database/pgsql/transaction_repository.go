package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/roundup_vault/internal/apperrors"
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	portsrepo "github.com/SscSPs/roundup_vault/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const transactionColumns = `transaction_id, user_id, account_id, external_id, merchant_name, category, amount, currency_code,
	transaction_date, is_eligible_for_round_up, is_excluded, created_at, updated_at`

type PgxTransactionRepository struct {
	BaseRepository
}

// newPgxTransactionRepository creates a new repository for ingested transactions.
func newPgxTransactionRepository(pool *pgxpool.Pool) portsrepo.TransactionRepositoryFacade {
	return &PgxTransactionRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.TransactionRepositoryFacade = (*PgxTransactionRepository)(nil)

func (r *PgxTransactionRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	return r.findOne(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE transaction_id = $1;`, transactionID)
}

func (r *PgxTransactionRepository) FindTransactionByExternalID(ctx context.Context, userID, externalID string) (*domain.Transaction, error) {
	return r.findOne(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE user_id = $1 AND external_id = $2;`, userID, externalID)
}

// SaveTransaction relies on the (user_id, external_id) unique constraint for deduplication.
func (r *PgxTransactionRepository) SaveTransaction(ctx context.Context, txn domain.Transaction) (*domain.Transaction, bool, error) {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (user_id, external_id) DO NOTHING
		RETURNING transaction_id;
	`
	var insertedID string
	err := r.Pool.QueryRow(ctx, query,
		txn.TransactionID,
		txn.UserID,
		txn.AccountID,
		txn.ExternalID,
		txn.MerchantName,
		txn.Category,
		txn.Amount,
		txn.CurrencyCode,
		txn.TransactionDate,
		txn.IsEligibleForRoundUp,
		txn.IsExcluded,
		txn.CreatedAt,
		txn.UpdatedAt,
	).Scan(&insertedID)
	if err == nil {
		return &txn, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		if isUniqueViolation(err) {
			return nil, false, fmt.Errorf("%w: transaction %s", apperrors.ErrDuplicate, txn.TransactionID)
		}
		return nil, false, apperrors.NewAppError(500, "failed to insert transaction "+txn.ExternalID, err)
	}

	existing, err := r.FindTransactionByExternalID(ctx, txn.UserID, txn.ExternalID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *PgxTransactionRepository) UpdateTransactionClassification(ctx context.Context, transactionID, category string, eligible, excluded bool, updatedAt time.Time) error {
	tag, err := r.Pool.Exec(ctx, `
		UPDATE transactions
		SET category = $2, is_eligible_for_round_up = $3, is_excluded = $4, updated_at = $5
		WHERE transaction_id = $1;
	`, transactionID, category, eligible, excluded, updatedAt)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update transaction "+transactionID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PgxTransactionRepository) findOne(ctx context.Context, query string, args ...any) (*domain.Transaction, error) {
	var t domain.Transaction
	err := r.Pool.QueryRow(ctx, query, args...).Scan(
		&t.TransactionID,
		&t.UserID,
		&t.AccountID,
		&t.ExternalID,
		&t.MerchantName,
		&t.Category,
		&t.Amount,
		&t.CurrencyCode,
		&t.TransactionDate,
		&t.IsEligibleForRoundUp,
		&t.IsExcluded,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}
	return &t, nil
}
