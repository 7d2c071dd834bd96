package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/SscSPs/roundup_vault/internal/apperrors"
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/SscSPs/roundup_vault/internal/repositories/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func credit(userID, amount string, at time.Time) domain.LedgerEntry {
	return domain.LedgerEntry{
		EntryID:       uuid.NewString(),
		UserID:        userID,
		Amount:        decimal.RequireFromString(amount),
		CurrencyCode:  "EUR",
		TransactionID: domain.StringRef(uuid.NewString()),
		CreatedAt:     at,
	}
}

func TestAppendTransactionEntry_ExpectedLive(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	entry := credit("user-1", "0.37", time.Now())

	require.NoError(t, store.AppendTransactionEntry(ctx, entry, 0))

	again := entry
	again.EntryID = uuid.NewString()
	err := store.AppendTransactionEntry(ctx, again, 0)
	assert.ErrorIs(t, err, apperrors.ErrConcurrencyConflict)

	reversal := entry
	reversal.EntryID = uuid.NewString()
	reversal.IsReversal = true
	require.NoError(t, store.AppendTransactionEntry(ctx, reversal, 1))

	entries, err := store.ListEntriesByTransaction(ctx, *entry.TransactionID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, 0, domain.LiveRoundUpCount(entries, *entry.TransactionID))
}

func TestReserveWithdrawal_RechecksBalance(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.AppendEntry(ctx, credit("user-1", "10.00", time.Now())))

	reserve := func(amount string) error {
		w := domain.Withdrawal{
			WithdrawalID: uuid.NewString(),
			UserID:       "user-1",
			Amount:       decimal.RequireFromString(amount),
			CurrencyCode: "EUR",
			Status:       domain.WithdrawalPending,
		}
		entry := domain.LedgerEntry{
			EntryID:      uuid.NewString(),
			UserID:       "user-1",
			Amount:       w.Amount,
			CurrencyCode: "EUR",
			IsReversal:   true,
			WithdrawalID: domain.StringRef(w.WithdrawalID),
			CreatedAt:    time.Now(),
		}
		return store.ReserveWithdrawal(ctx, w, entry)
	}

	require.NoError(t, reserve("6.00"))
	assert.ErrorIs(t, reserve("4.01"), apperrors.ErrConcurrencyConflict)
	require.NoError(t, reserve("4.00"))

	open, err := store.ListWithdrawalsByStatus(ctx, domain.WithdrawalPending)
	require.NoError(t, err)
	assert.Len(t, open, 2)
}

func TestFailWithdrawal_TerminalIsFinal(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.AppendEntry(ctx, credit("user-1", "5.00", time.Now())))

	w := domain.Withdrawal{WithdrawalID: "wd-1", UserID: "user-1", Amount: decimal.NewFromInt(5), CurrencyCode: "EUR", Status: domain.WithdrawalPending}
	reservation := domain.LedgerEntry{EntryID: "e-1", UserID: "user-1", Amount: w.Amount, CurrencyCode: "EUR", IsReversal: true, WithdrawalID: domain.StringRef("wd-1")}
	require.NoError(t, store.ReserveWithdrawal(ctx, w, reservation))

	compensation := domain.LedgerEntry{EntryID: "e-2", UserID: "user-1", Amount: w.Amount, CurrencyCode: "EUR", WithdrawalID: domain.StringRef("wd-1")}
	require.NoError(t, store.FailWithdrawal(ctx, "wd-1", "rejected", time.Now(), compensation))

	compensation.EntryID = "e-3"
	assert.ErrorIs(t, store.FailWithdrawal(ctx, "wd-1", "rejected", time.Now(), compensation), apperrors.ErrConcurrencyConflict)
	assert.ErrorIs(t, store.CompleteWithdrawal(ctx, "wd-1", "ref", time.Now()), apperrors.ErrConcurrencyConflict)

	entries, err := store.ListEntriesByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestListEntriesPage(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.AppendEntry(ctx, credit("user-1", "0.10", base.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, store.AppendEntry(ctx, credit("user-2", "0.10", base)))

	first, token, err := store.ListEntriesPage(ctx, "user-1", 2, nil)
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.NotNil(t, token)
	assert.True(t, first[0].CreatedAt.After(first[1].CreatedAt))

	second, token, err := store.ListEntriesPage(ctx, "user-1", 2, token)
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.True(t, second[0].CreatedAt.Before(first[1].CreatedAt))

	third, token, err := store.ListEntriesPage(ctx, "user-1", 2, token)
	require.NoError(t, err)
	assert.Len(t, third, 1)
	assert.Nil(t, token)

	bad := "not-a-token"
	_, _, err = store.ListEntriesPage(ctx, "user-1", 2, &bad)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSweepRuns_UniquePerScheduledDate(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	day := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	run := domain.SweepRun{SweepRunID: "run-1", UserID: "user-1", ScheduledFor: day, Amount: decimal.NewFromInt(20), Status: domain.SweepPending}

	require.NoError(t, store.CreateSweepRun(ctx, run))
	run.SweepRunID = "run-2"
	assert.ErrorIs(t, store.CreateSweepRun(ctx, run), apperrors.ErrDuplicate)

	require.NoError(t, store.TransitionSweepRun(ctx, "run-1", domain.SweepPending, domain.SweepProcessing, "", nil))
	err := store.TransitionSweepRun(ctx, "run-1", domain.SweepPending, domain.SweepProcessing, "", nil)
	assert.ErrorIs(t, err, apperrors.ErrConcurrencyConflict)

	found, err := store.FindSweepRunByScheduledDate(ctx, "user-1", day)
	require.NoError(t, err)
	assert.Equal(t, "run-1", found.SweepRunID)
}

func TestUpsertSweepSettings_KeepsIntegrityHold(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Now().UTC()

	require.NoError(t, store.PlaceIntegrityHold(ctx, "user-1", "negative balance", now))

	settings := domain.DefaultSweepSettings("user-1")
	settings.SweepDay = 10
	require.NoError(t, store.UpsertSweepSettings(ctx, settings))

	stored, err := store.FindSweepSettings(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 10, stored.SweepDay)
	assert.True(t, stored.IsHalted())
	assert.Equal(t, "negative balance", stored.HaltReason)

	require.NoError(t, store.ClearIntegrityHold(ctx, "user-1", now))
	stored, err = store.FindSweepSettings(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, stored.IsHalted())
}

func TestPortfolio_SaveReplacesSnapshot(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	_, err := store.FindPortfolio(ctx, "user-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	synced := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.SavePortfolio(ctx, domain.Portfolio{
		UserID:       "user-1",
		CurrencyCode: "EUR",
		SyncedAt:     &synced,
		Positions: []domain.Position{
			{UserID: "user-1", InstrumentSymbol: "VTI", Quantity: decimal.RequireFromString("0.01")},
			{UserID: "user-1", InstrumentSymbol: "AGG", Quantity: decimal.RequireFromString("0.02")},
		},
	}))
	require.NoError(t, store.SavePortfolio(ctx, domain.Portfolio{
		UserID:       "user-1",
		CurrencyCode: "EUR",
		SyncedAt:     &synced,
		Positions: []domain.Position{
			{UserID: "user-1", InstrumentSymbol: "VTI", Quantity: decimal.RequireFromString("0.03")},
		},
	}))

	p, err := store.FindPortfolio(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, p.Positions, 1)
	assert.True(t, p.Positions[0].Quantity.Equal(decimal.RequireFromString("0.03")))

	p.Positions[0].InstrumentSymbol = "mutated"
	again, err := store.FindPortfolio(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "VTI", again.Positions[0].InstrumentSymbol)
}
