package services

import (
	"github.com/SscSPs/roundup_vault/internal/core/ports"
	portsrepo "github.com/SscSPs/roundup_vault/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/roundup_vault/internal/core/ports/services"
	"github.com/SscSPs/roundup_vault/internal/platform/config"
)

// Collaborators are the engine's non-repository dependencies.
type Collaborators struct {
	Cache   ports.BalanceCache // optional
	Locker  ports.UserLocker
	Broker  ports.BrokerageClient
	Payouts ports.PayoutClient
}

// OptionsFromConfig maps the loaded configuration onto engine options.
func OptionsFromConfig(cfg *config.Config) []Option {
	return []Option{
		WithLocation(cfg.BusinessTimeZone),
		WithDefaultCurrency(cfg.DefaultCurrency),
		WithExcludedCategories(cfg.ExcludedCategories),
		WithMaxMonthlyCap(cfg.MaxMonthlyCap),
		WithProviderTimeout(cfg.ProviderTimeout),
		WithWithdrawalSLA(cfg.WithdrawalSLA),
		WithSweepParallelism(cfg.SweepParallelism),
		WithBalanceCacheTTL(cfg.BalanceCacheTTL),
		WithReconcileAfterMutation(cfg.ReconcileAfterMutation),
	}
}

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(repos portsrepo.RepositoryProvider, deps Collaborators, options ...Option) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	// Integrity holds are placed by the balance and round-up services, so it comes first.
	container.Integrity = NewIntegrityService(repos.SweepSettingsRepo, repos.AuditRepo, options...)
	container.Balance = NewBalanceService(repos.LedgerRepo, deps.Cache, container.Integrity, options...)

	container.RoundUp = NewRoundUpService(repos, deps.Locker, container.Balance, container.Integrity, options...)
	container.Transaction = NewTransactionService(
		repos.TransactionRepo,
		repos.MerchantRepo,
		repos.BankAccountRepo,
		container.RoundUp,
		options...,
	)

	container.Settings = NewSettingsService(repos.SweepSettingsRepo, repos.AuditRepo, options...)
	container.Sweep = NewSweepService(repos, container.Balance, deps.Broker, deps.Locker, options...)
	container.Withdrawal = NewWithdrawalService(repos, container.Balance, deps.Payouts, deps.Locker, options...)
	container.Portfolio = NewPortfolioService(repos, deps.Broker, options...)

	return container
}
