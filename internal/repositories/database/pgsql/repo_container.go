package pgsql

import (
	portsrepo "github.com/SscSPs/roundup_vault/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		LedgerRepo:        newPgxLedgerRepository(dbPool),
		TransactionRepo:   newPgxTransactionRepository(dbPool),
		MerchantRepo:      newPgxMerchantRepository(dbPool),
		SweepSettingsRepo: newPgxSweepSettingsRepository(dbPool),
		SweepRunRepo:      newPgxSweepRunRepository(dbPool),
		OrderRepo:         newPgxOrderRepository(dbPool),
		WithdrawalRepo:    newPgxWithdrawalRepository(dbPool),
		BankAccountRepo:   newPgxBankAccountRepository(dbPool),
		AuditRepo:         newPgxAuditRepository(dbPool),
		PortfolioRepo:     newPgxPortfolioRepository(dbPool),
		Health:            &BaseRepository{Pool: dbPool},
	}
}
