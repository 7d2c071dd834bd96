package services

import (
	"context"
	"time"

	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/SscSPs/roundup_vault/internal/dto"
)

// WithdrawalWriterSvc defines the reserve and dispatch steps
type WithdrawalWriterSvc interface {
	// RequestWithdrawal reserves the amount and dispatches the payout.
	RequestWithdrawal(ctx context.Context, userID string, req dto.CreateWithdrawalRequest) (*domain.Withdrawal, error)
}

// WithdrawalSettlementSvc defines reconciliation of dispatched withdrawals
type WithdrawalSettlementSvc interface {
	// SettleWithdrawal applies a provider outcome. Terminal withdrawals accept only the outcome they already have.
	SettleWithdrawal(ctx context.Context, withdrawalID string, outcome domain.PayoutOutcome) (*domain.Withdrawal, error)

	// ReconcilePendingWithdrawals polls the provider for open withdrawals and fails those past the SLA.
	ReconcilePendingWithdrawals(ctx context.Context, now time.Time) ([]domain.Withdrawal, error)
}

// WithdrawalReaderSvc defines read operations for withdrawals
type WithdrawalReaderSvc interface {
	GetWithdrawal(ctx context.Context, userID, withdrawalID string) (*domain.Withdrawal, error)
	ListWithdrawals(ctx context.Context, userID string, limit int) ([]domain.Withdrawal, error)
}

// WithdrawalSvcFacade combines all withdrawal-related service interfaces
type WithdrawalSvcFacade interface {
	WithdrawalWriterSvc
	WithdrawalSettlementSvc
	WithdrawalReaderSvc
}
