package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/roundup_vault/internal/apperrors"
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	portsrepo "github.com/SscSPs/roundup_vault/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bankAccountColumns = `bank_account_id, user_id, account_name, account_number_masked, currency_code, is_primary, created_at`

type PgxBankAccountRepository struct {
	BaseRepository
}

func newPgxBankAccountRepository(pool *pgxpool.Pool) portsrepo.BankAccountRepository {
	return &PgxBankAccountRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.BankAccountRepository = (*PgxBankAccountRepository)(nil)

func (r *PgxBankAccountRepository) FindBankAccountByID(ctx context.Context, bankAccountID string) (*domain.BankAccount, error) {
	rows, err := r.Pool.Query(ctx, `SELECT `+bankAccountColumns+` FROM bank_accounts WHERE bank_account_id = $1;`, bankAccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bank account %s: %w", bankAccountID, err)
	}
	account, err := pgx.CollectExactlyOneRow(rows, scanBankAccount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan bank account %s: %w", bankAccountID, err)
	}
	return &account, nil
}

func (r *PgxBankAccountRepository) ListBankAccountsByUser(ctx context.Context, userID string) ([]domain.BankAccount, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT `+bankAccountColumns+` FROM bank_accounts
		WHERE user_id = $1
		ORDER BY is_primary DESC, created_at;
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bank accounts of user %s: %w", userID, err)
	}
	accounts, err := pgx.CollectRows(rows, scanBankAccount)
	if err != nil {
		return nil, fmt.Errorf("failed to scan bank accounts of user %s: %w", userID, err)
	}
	return accounts, nil
}

// SaveBankAccount upserts; the banking sync owns these rows.
func (r *PgxBankAccountRepository) SaveBankAccount(ctx context.Context, account domain.BankAccount) error {
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO bank_accounts (`+bankAccountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (bank_account_id) DO UPDATE SET
			account_name = EXCLUDED.account_name,
			account_number_masked = EXCLUDED.account_number_masked,
			currency_code = EXCLUDED.currency_code,
			is_primary = EXCLUDED.is_primary
		WHERE bank_accounts.user_id = EXCLUDED.user_id;
	`,
		account.BankAccountID,
		account.UserID,
		account.AccountName,
		account.AccountNumberMasked,
		account.CurrencyCode,
		account.IsPrimary,
		account.CreatedAt,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to save bank account "+account.BankAccountID, err)
	}
	return nil
}

func scanBankAccount(row pgx.CollectableRow) (domain.BankAccount, error) {
	var a domain.BankAccount
	err := row.Scan(
		&a.BankAccountID,
		&a.UserID,
		&a.AccountName,
		&a.AccountNumberMasked,
		&a.CurrencyCode,
		&a.IsPrimary,
		&a.CreatedAt,
	)
	return a, err
}
