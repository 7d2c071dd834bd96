// Package memory implements the repository ports in process. It backs the
// engine in tests and when STORE_DRIVER=memory.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/SscSPs/roundup_vault/internal/core/domain"
	portsrepo "github.com/SscSPs/roundup_vault/internal/core/ports/repositories"
)

// Store keeps every aggregate behind one mutex. Multi-aggregate writes
// (reservation + entry, completion + entry) are therefore atomic.
type Store struct {
	mu sync.RWMutex

	entries      []domain.LedgerEntry
	transactions map[string]domain.Transaction
	externalIDs  map[string]string // user|external id -> transaction id
	merchants    map[string][]domain.ExcludedMerchant
	settings     map[string]domain.SweepSettings
	runs         map[string]domain.SweepRun
	runDates     map[string]string // user|date -> run id
	orders       map[string]domain.Order
	withdrawals  map[string]domain.Withdrawal
	bankAccounts map[string]domain.BankAccount
	auditLogs    []domain.AuditLog
	portfolios   map[string]domain.Portfolio
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		transactions: make(map[string]domain.Transaction),
		externalIDs:  make(map[string]string),
		merchants:    make(map[string][]domain.ExcludedMerchant),
		settings:     make(map[string]domain.SweepSettings),
		runs:         make(map[string]domain.SweepRun),
		runDates:     make(map[string]string),
		orders:       make(map[string]domain.Order),
		withdrawals:  make(map[string]domain.Withdrawal),
		bankAccounts: make(map[string]domain.BankAccount),
		portfolios:   make(map[string]domain.Portfolio),
	}
}

// NewRepositoryProvider exposes a store through every repository port.
func NewRepositoryProvider(store *Store) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		LedgerRepo:        store,
		TransactionRepo:   store,
		MerchantRepo:      store,
		SweepSettingsRepo: store,
		SweepRunRepo:      store,
		OrderRepo:         store,
		WithdrawalRepo:    store,
		BankAccountRepo:   store,
		AuditRepo:         store,
		PortfolioRepo:     store,
		Health:            store,
	}
}

var (
	_ portsrepo.LedgerRepositoryFacade      = (*Store)(nil)
	_ portsrepo.TransactionRepositoryFacade = (*Store)(nil)
	_ portsrepo.MerchantExclusionRepository = (*Store)(nil)
	_ portsrepo.SweepSettingsRepository     = (*Store)(nil)
	_ portsrepo.SweepRunRepositoryFacade    = (*Store)(nil)
	_ portsrepo.OrderRepository             = (*Store)(nil)
	_ portsrepo.WithdrawalRepositoryFacade  = (*Store)(nil)
	_ portsrepo.BankAccountRepository       = (*Store)(nil)
	_ portsrepo.AuditRepository             = (*Store)(nil)
	_ portsrepo.PortfolioRepository         = (*Store)(nil)
	_ portsrepo.HealthChecker               = (*Store)(nil)
)

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func key(parts ...string) string {
	return strings.Join(parts, "|")
}
