package repositories

import (
	"context"

	"github.com/SscSPs/roundup_vault/internal/core/domain"
)

// AuditRepository stores engine decisions for user-visible history.
type AuditRepository interface {
	SaveAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogsByUser(ctx context.Context, userID string, limit int) ([]domain.AuditLog, error)
}

// RepositoryProvider holds all repository interfaces needed by services.
// This makes passing dependencies to the service container constructor cleaner.
type RepositoryProvider struct {
	LedgerRepo        LedgerRepositoryFacade
	TransactionRepo   TransactionRepositoryFacade
	MerchantRepo      MerchantExclusionRepository
	SweepSettingsRepo SweepSettingsRepository
	SweepRunRepo      SweepRunRepositoryFacade
	OrderRepo         OrderRepository
	WithdrawalRepo    WithdrawalRepositoryFacade
	BankAccountRepo   BankAccountRepository
	AuditRepo         AuditRepository
	PortfolioRepo     PortfolioRepository
	Health            HealthChecker
}
