package domain_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(amount string, reversal bool, at time.Time, origin func(*domain.LedgerEntry)) domain.LedgerEntry {
	e := domain.LedgerEntry{
		EntryID:      amount + at.String(),
		UserID:       "user-1",
		Amount:       dec(amount),
		CurrencyCode: "EUR",
		IsReversal:   reversal,
		CreatedAt:    at,
	}
	if origin != nil {
		origin(&e)
	}
	return e
}

func fromTxn(id string) func(*domain.LedgerEntry) {
	return func(e *domain.LedgerEntry) { e.TransactionID = domain.StringRef(id) }
}

func fromWithdrawal(id string) func(*domain.LedgerEntry) {
	return func(e *domain.LedgerEntry) { e.WithdrawalID = domain.StringRef(id) }
}

func TestFoldBalance_OrderIndependent(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	lastMonth := now.AddDate(0, -1, 0)

	entries := []domain.LedgerEntry{
		entry("0.80", false, lastMonth, fromTxn("t1")),
		entry("0.37", false, now.Add(-time.Hour), fromTxn("t2")),
		entry("0.55", false, now.Add(-2*time.Hour), fromTxn("t3")),
		entry("0.55", true, now.Add(-time.Minute), fromTxn("t3")),
		entry("1.00", true, now.Add(-3*time.Hour), fromWithdrawal("w1")),
		entry("1.00", false, now.Add(-30*time.Minute), fromWithdrawal("w1")),
		entry("0.99", false, now.Add(-4*time.Hour), fromTxn("t4")),
	}

	want := domain.FoldBalance("user-1", entries, now, time.UTC)
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		shuffled := append([]domain.LedgerEntry(nil), entries...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := domain.FoldBalance("user-1", shuffled, now, time.UTC)
		require.True(t, want.SameAs(got), "permutation %d produced %+v, want %+v", i, got, want)
	}

	assert.True(t, want.RawBalance.Equal(dec("2.16")))
	assert.True(t, want.MonthToDateAccrual.Equal(dec("1.36")))
	assert.True(t, want.ThisMonth.Equal(dec("1.36")))
	assert.Equal(t, 7, want.EntryCount)
}

func TestFoldBalance_AsOfExcludesLaterEntries(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	entries := []domain.LedgerEntry{
		entry("0.80", false, now.Add(-time.Hour), fromTxn("t1")),
		entry("0.37", false, now.Add(time.Hour), fromTxn("t2")),
	}

	got := domain.FoldBalance("user-1", entries, now, time.UTC)
	assert.True(t, got.Balance.Equal(dec("0.80")))
	assert.Equal(t, 1, got.EntryCount)
}

func TestFoldBalance_NegativeRawIsFlaggedButDisplayClamped(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	entries := []domain.LedgerEntry{
		entry("1.00", false, now.Add(-time.Hour), fromTxn("t1")),
		entry("3.00", true, now.Add(-time.Minute), fromWithdrawal("w1")),
	}

	got := domain.FoldBalance("user-1", entries, now, time.UTC)
	assert.True(t, got.IsOverdrawn())
	assert.True(t, got.RawBalance.Equal(dec("-2.00")))
	assert.True(t, got.Balance.Equal(decimal.Zero))
}

func TestLedgerEntry_Validate(t *testing.T) {
	at := time.Now()
	ok := entry("0.10", false, at, fromTxn("t1"))
	assert.NoError(t, ok.Validate())

	zero := entry("0", false, at, fromTxn("t1"))
	assert.ErrorIs(t, zero.Validate(), domain.ErrEntryAmountNotPositive)

	both := entry("0.10", false, at, fromTxn("t1"))
	both.WithdrawalID = domain.StringRef("w1")
	assert.ErrorIs(t, both.Validate(), domain.ErrEntryMultipleOrigins)

	noUser := entry("0.10", false, at, nil)
	noUser.UserID = ""
	assert.ErrorIs(t, noUser.Validate(), domain.ErrEntryMissingUser)
}

func TestLedgerEntry_Kind(t *testing.T) {
	at := time.Now()
	assert.Equal(t, domain.KindRoundUp, entry("1", false, at, fromTxn("t")).Kind())
	assert.Equal(t, domain.KindRoundUpReversal, entry("1", true, at, fromTxn("t")).Kind())
	assert.Equal(t, domain.KindWithdrawalReservation, entry("1", true, at, fromWithdrawal("w")).Kind())
	assert.Equal(t, domain.KindWithdrawalCompensation, entry("1", false, at, fromWithdrawal("w")).Kind())

	sweep := entry("1", true, at, nil)
	sweep.SweepRunID = domain.StringRef("s")
	assert.Equal(t, domain.KindSweepInvestment, sweep.Kind())
}

func TestLiveRoundUpCount(t *testing.T) {
	at := time.Now()
	entries := []domain.LedgerEntry{
		entry("0.30", false, at, fromTxn("t1")),
		entry("0.30", true, at, fromTxn("t1")),
		entry("0.30", false, at, fromTxn("t1")),
		entry("0.50", false, at, fromTxn("t2")),
	}
	assert.Equal(t, 1, domain.LiveRoundUpCount(entries, "t1"))
	assert.Equal(t, 1, domain.LiveRoundUpCount(entries, "t2"))
	assert.Equal(t, 0, domain.LiveRoundUpCount(entries, "t3"))
	assert.True(t, domain.LiveRoundUpAmount(entries, "t1").Equal(dec("0.30")))
}
