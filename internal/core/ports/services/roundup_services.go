package services

import (
	"context"

	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/SscSPs/roundup_vault/internal/dto"
)

// RoundUpSvc turns a transaction into at most one live credit entry.
type RoundUpSvc interface {
	// ProcessRoundUp credits the round-up of a transaction. It returns a nil entry when the
	// transaction is ineligible, excluded, whole, capped to zero, or already credited.
	ProcessRoundUp(ctx context.Context, txn domain.Transaction) (*domain.LedgerEntry, error)

	// ReverseRoundUp reverses the live round-up of a transaction, if any.
	ReverseRoundUp(ctx context.Context, txn domain.Transaction) (*domain.LedgerEntry, error)
}

// TransactionIngestSvc defines operations used by the banking sync
type TransactionIngestSvc interface {
	// IngestTransactions stores new transactions and computes their round-ups. Items fail independently.
	IngestTransactions(ctx context.Context, req dto.IngestTransactionsRequest) (*dto.IngestTransactionsResponse, error)

	// RegisterBankAccount records a bank account linked by the user.
	RegisterBankAccount(ctx context.Context, req dto.RegisterBankAccountRequest) (*domain.BankAccount, error)
}

// TransactionCorrectionSvc defines user-driven classification changes
type TransactionCorrectionSvc interface {
	// CorrectTransaction changes the category or exclusion flag and re-evaluates the round-up.
	CorrectTransaction(ctx context.Context, userID, transactionID string, req dto.CorrectTransactionRequest) (*domain.Transaction, error)
}

// MerchantExclusionSvc manages a user's excluded merchants
type MerchantExclusionSvc interface {
	ListExcludedMerchants(ctx context.Context, userID string) ([]domain.ExcludedMerchant, error)
	AddExcludedMerchant(ctx context.Context, userID string, req dto.ExcludedMerchantRequest) (*domain.ExcludedMerchant, error)
	RemoveExcludedMerchant(ctx context.Context, userID, merchantName string) error
}

// TransactionSvcFacade combines all transaction-related service interfaces
type TransactionSvcFacade interface {
	TransactionIngestSvc
	TransactionCorrectionSvc
	MerchantExclusionSvc
}
