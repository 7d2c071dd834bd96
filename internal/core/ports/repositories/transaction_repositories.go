package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/roundup_vault/internal/core/domain"
)

// TransactionReader defines read operations for ingested transactions
type TransactionReader interface {
	FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)
	FindTransactionByExternalID(ctx context.Context, userID, externalID string) (*domain.Transaction, error)
}

// TransactionWriter defines write operations for ingested transactions
type TransactionWriter interface {
	// SaveTransaction inserts a transaction unless one with the same (user, external id) exists.
	// It returns the stored transaction and whether it was newly created.
	SaveTransaction(ctx context.Context, txn domain.Transaction) (*domain.Transaction, bool, error)

	// UpdateTransactionClassification rewrites the only mutable fields of a transaction.
	UpdateTransactionClassification(ctx context.Context, transactionID, category string, eligible, excluded bool, updatedAt time.Time) error
}

// TransactionRepositoryFacade combines all transaction-related repository interfaces
type TransactionRepositoryFacade interface {
	TransactionReader
	TransactionWriter
}

// MerchantExclusionRepository manages per-user excluded merchants.
type MerchantExclusionRepository interface {
	ListExcludedMerchants(ctx context.Context, userID string) ([]domain.ExcludedMerchant, error)
	// AddExcludedMerchant returns apperrors.ErrDuplicate if the merchant is already excluded.
	AddExcludedMerchant(ctx context.Context, merchant domain.ExcludedMerchant) error
	// RemoveExcludedMerchant returns apperrors.ErrNotFound if the merchant was not excluded.
	RemoveExcludedMerchant(ctx context.Context, userID, merchantName string) error
}
