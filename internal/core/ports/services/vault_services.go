package services

import (
	"context"
	"time"

	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/SscSPs/roundup_vault/internal/dto"
)

// BalanceReaderSvc defines read operations for vault balances
type BalanceReaderSvc interface {
	// ComputeBalance folds the user's ledger as of asOf (now when nil). It never uses the cache.
	// A negative raw sum returns apperrors.ErrDataIntegrity and places an integrity hold.
	ComputeBalance(ctx context.Context, userID string, asOf *time.Time) (*domain.VaultBalance, error)

	// GetBalance returns the display balance, served from the cache when it is warm.
	GetBalance(ctx context.Context, userID string) (*domain.VaultBalance, error)

	// ListEntries returns a page of the user's ledger, newest first.
	ListEntries(ctx context.Context, userID string, params dto.ListLedgerEntriesParams) (*dto.ListLedgerEntriesResponse, error)
}

// BalanceReconcilerSvc keeps the balance cache honest against the ledger
type BalanceReconcilerSvc interface {
	// ReconcileBalance compares the cached balance with the fold and repairs the cache on mismatch.
	ReconcileBalance(ctx context.Context, userID string) (*domain.BalanceReconciliation, error)

	// ReconcileAllBalances reconciles every user that owns ledger entries.
	ReconcileAllBalances(ctx context.Context) (*dto.ReconcileBalancesResponse, error)

	// RefreshAfterMutation invalidates the user's cached balance after a ledger write.
	RefreshAfterMutation(ctx context.Context, userID string)
}

// BalanceSvcFacade combines all balance-related service interfaces
type BalanceSvcFacade interface {
	BalanceReaderSvc
	BalanceReconcilerSvc
}

// IntegritySvc places and releases integrity holds.
type IntegritySvc interface {
	// PlaceHold halts automated sweeps for the user. It never fails the caller's operation.
	PlaceHold(ctx context.Context, userID, reason string)
	// ReleaseHold lifts a hold after manual review.
	ReleaseHold(ctx context.Context, userID string) error
}
