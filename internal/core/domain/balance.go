package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// VaultBalance is the derived state of a user's vault at a point in time.
// It is never authoritative; it is always reproducible from the ledger.
type VaultBalance struct {
	UserID       string `json:"userID"`
	CurrencyCode string `json:"currencyCode"`
	// Balance is the raw balance floored at zero, for display.
	Balance decimal.Decimal `json:"balance"`
	// RawBalance is the unclamped sum. Negative means a reversal was written without backing funds.
	RawBalance decimal.Decimal `json:"rawBalance"`
	// ThisMonth is the net movement since the start of the calendar month, floored at zero.
	ThisMonth decimal.Decimal `json:"thisMonth"`
	// MonthToDateAccrual is the net round-up credit this month; the monthly cap applies to it.
	MonthToDateAccrual decimal.Decimal `json:"monthToDateAccrual"`
	EntryCount         int             `json:"entryCount"`
	AsOf               time.Time       `json:"asOf"`
}

// IsOverdrawn reports whether the unclamped ledger sum is negative.
func (b VaultBalance) IsOverdrawn() bool {
	return b.RawBalance.IsNegative()
}

// StartOfMonth returns midnight on the first day of t's month in loc.
func StartOfMonth(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), 1, 0, 0, 0, 0, loc)
}

// FoldBalance folds entries created at or before asOf into a VaultBalance.
// Only sums are used, so the result does not depend on entry order.
func FoldBalance(userID string, entries []LedgerEntry, asOf time.Time, loc *time.Location) VaultBalance {
	monthStart := StartOfMonth(asOf, loc)

	raw := decimal.Zero
	thisMonth := decimal.Zero
	accrual := decimal.Zero
	count := 0
	currency := ""

	for _, e := range entries {
		if e.CreatedAt.After(asOf) {
			continue
		}
		if currency == "" {
			currency = e.CurrencyCode
		}
		signed := e.SignedAmount()
		raw = raw.Add(signed)
		count++

		if e.CreatedAt.Before(monthStart) {
			continue
		}
		thisMonth = thisMonth.Add(signed)
		if e.TransactionID != nil {
			accrual = accrual.Add(signed)
		}
	}

	return VaultBalance{
		UserID:             userID,
		CurrencyCode:       currency,
		Balance:            decimal.Max(raw, decimal.Zero),
		RawBalance:         raw,
		ThisMonth:          decimal.Max(thisMonth, decimal.Zero),
		MonthToDateAccrual: decimal.Max(accrual, decimal.Zero),
		EntryCount:         count,
		AsOf:               asOf,
	}
}

// SameAs reports whether two balances carry identical figures, ignoring AsOf.
func (b VaultBalance) SameAs(other VaultBalance) bool {
	return b.UserID == other.UserID &&
		b.RawBalance.Equal(other.RawBalance) &&
		b.Balance.Equal(other.Balance) &&
		b.ThisMonth.Equal(other.ThisMonth) &&
		b.MonthToDateAccrual.Equal(other.MonthToDateAccrual) &&
		b.EntryCount == other.EntryCount
}

// BalanceReconciliation is the result of comparing a cached balance with the ledger fold.
type BalanceReconciliation struct {
	UserID   string        `json:"userID"`
	Cached   *VaultBalance `json:"cached,omitempty"`
	Folded   VaultBalance  `json:"folded"`
	Mismatch bool          `json:"mismatch"`
	Repaired bool          `json:"repaired"`
}
