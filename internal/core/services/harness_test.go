package services_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/roundup_vault/internal/adapters/providers/sandbox"
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	portsrepo "github.com/SscSPs/roundup_vault/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/roundup_vault/internal/core/ports/services"
	"github.com/SscSPs/roundup_vault/internal/core/services"
	"github.com/SscSPs/roundup_vault/internal/dto"
	"github.com/SscSPs/roundup_vault/internal/platform/lock"
	"github.com/SscSPs/roundup_vault/internal/repositories/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	testUser    = "user-1"
	testAccount = "bank-1"
)

// engine wires the real services over the in-memory store and sandbox providers.
type engine struct {
	t       *testing.T
	store   *memory.Store
	repos   portsrepo.RepositoryProvider
	broker  *sandbox.Brokerage
	payouts *sandbox.Payouts
	svc     *portssvc.ServiceContainer

	mu  sync.Mutex
	now time.Time
}

func newEngine(t *testing.T, options ...services.Option) *engine {
	t.Helper()
	e := &engine{
		t:       t,
		store:   memory.NewStore(),
		broker:  sandbox.NewBrokerage(),
		payouts: sandbox.NewPayouts(),
		now:     time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC),
	}
	e.repos = memory.NewRepositoryProvider(e.store)

	opts := append([]services.Option{
		services.WithClock(e.clock),
		services.WithDefaultCurrency("EUR"),
		services.WithProviderTimeout(50 * time.Millisecond),
	}, options...)

	e.svc = services.NewServiceContainer(e.repos, services.Collaborators{
		Locker:  lock.NewKeyedLocker(),
		Broker:  e.broker,
		Payouts: e.payouts,
	}, opts...)
	return e
}

func (e *engine) clock() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

func (e *engine) advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = e.now.Add(d)
}

// ingest records a card payment of amount. The feed reports payments as debits.
func (e *engine) ingest(userID, externalID, amount string, mutate ...func(*dto.IngestTransactionRequest)) *dto.IngestTransactionsResponse {
	e.t.Helper()
	req := dto.IngestTransactionRequest{
		UserID:          userID,
		AccountID:       testAccount,
		ExternalID:      externalID,
		MerchantName:    "Coffee House",
		Category:        "Food & Drink",
		Amount:          decimal.RequireFromString(amount).Abs().Neg(),
		CurrencyCode:    "EUR",
		TransactionDate: e.clock(),
	}
	for _, m := range mutate {
		m(&req)
	}
	resp, err := e.svc.Transaction.IngestTransactions(context.Background(), dto.IngestTransactionsRequest{
		Transactions: []dto.IngestTransactionRequest{req},
	})
	require.NoError(e.t, err)
	return resp
}

func (e *engine) balance(userID string) domain.VaultBalance {
	e.t.Helper()
	b, err := e.svc.Balance.ComputeBalance(context.Background(), userID, nil)
	require.NoError(e.t, err)
	return *b
}

// fund credits the vault directly with one round-up entry per call.
func (e *engine) fund(userID, amount string) {
	e.t.Helper()
	resp := e.ingest(userID, fmt.Sprintf("seed-%d", e.entryCount(userID)), "0", func(r *dto.IngestTransactionRequest) {
		r.IsEligibleForRoundUp = new(bool)
	})
	txnID := resp.Results[0].TransactionID
	require.NoError(e.t, e.store.AppendEntry(context.Background(), domain.LedgerEntry{
		EntryID:       "seed-entry-" + txnID,
		UserID:        userID,
		Amount:        decimal.RequireFromString(amount),
		CurrencyCode:  "EUR",
		TransactionID: domain.StringRef(txnID),
		CreatedAt:     e.clock(),
	}))
}

func (e *engine) entryCount(userID string) int {
	entries, err := e.store.ListEntriesByUser(context.Background(), userID)
	require.NoError(e.t, err)
	return len(entries)
}

func (e *engine) registerAccount(userID, accountID string) {
	e.t.Helper()
	_, err := e.svc.Transaction.RegisterBankAccount(context.Background(), dto.RegisterBankAccountRequest{
		BankAccountID: accountID,
		UserID:        userID,
		AccountName:   "Main checking",
		CurrencyCode:  "EUR",
		IsPrimary:     true,
	})
	require.NoError(e.t, err)
}

func (e *engine) configureSweeps(userID string, req dto.UpdateSweepSettingsRequest) {
	e.t.Helper()
	_, err := e.svc.Settings.UpdateSweepSettings(context.Background(), userID, req)
	require.NoError(e.t, err)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}
