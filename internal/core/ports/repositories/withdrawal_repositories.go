package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/roundup_vault/internal/core/domain"
)

// WithdrawalReader defines read operations for withdrawals
type WithdrawalReader interface {
	FindWithdrawalByID(ctx context.Context, withdrawalID string) (*domain.Withdrawal, error)
	ListWithdrawalsByUser(ctx context.Context, userID string, limit int) ([]domain.Withdrawal, error)
	ListWithdrawalsByStatus(ctx context.Context, statuses ...domain.WithdrawalStatus) ([]domain.Withdrawal, error)
}

// WithdrawalWriter defines write operations for withdrawals. Every method that touches
// the ledger does so in the same database transaction as the status change.
type WithdrawalWriter interface {
	// ReserveWithdrawal inserts a pending withdrawal with its reservation entry. The store
	// re-checks the user's raw balance inside the transaction and returns
	// apperrors.ErrConcurrencyConflict if the reservation would overdraw it.
	ReserveWithdrawal(ctx context.Context, withdrawal domain.Withdrawal, reservation domain.LedgerEntry) error

	// MarkWithdrawalProcessing moves a pending withdrawal to processing.
	MarkWithdrawalProcessing(ctx context.Context, withdrawalID, providerReference string) error

	// CompleteWithdrawal moves a non-terminal withdrawal to completed.
	CompleteWithdrawal(ctx context.Context, withdrawalID, providerReference string, settledAt time.Time) error

	// FailWithdrawal moves a non-terminal withdrawal to failed and appends the compensation entry.
	FailWithdrawal(ctx context.Context, withdrawalID, reason string, settledAt time.Time, compensation domain.LedgerEntry) error
}

// WithdrawalRepositoryFacade combines all withdrawal-related repository interfaces
type WithdrawalRepositoryFacade interface {
	WithdrawalReader
	WithdrawalWriter
}

// BankAccountRepository exposes bank accounts maintained by the banking sync.
type BankAccountRepository interface {
	FindBankAccountByID(ctx context.Context, bankAccountID string) (*domain.BankAccount, error)
	ListBankAccountsByUser(ctx context.Context, userID string) ([]domain.BankAccount, error)
	SaveBankAccount(ctx context.Context, account domain.BankAccount) error
}
