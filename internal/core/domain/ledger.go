package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind classifies a ledger entry by its origin reference and sign.
type EntryKind string

const (
	KindRoundUp                EntryKind = "ROUND_UP"
	KindRoundUpReversal        EntryKind = "ROUND_UP_REVERSAL"
	KindWithdrawalReservation  EntryKind = "WITHDRAWAL_RESERVATION"
	KindWithdrawalCompensation EntryKind = "WITHDRAWAL_COMPENSATION"
	KindSweepInvestment        EntryKind = "SWEEP_INVESTMENT"
	KindUnknown                EntryKind = "UNKNOWN"
)

var (
	ErrEntryAmountNotPositive = errors.New("ledger entry amount must be positive")
	ErrEntryMultipleOrigins   = errors.New("ledger entry may reference at most one origin")
	ErrEntryMissingUser       = errors.New("ledger entry must belong to a user")
	ErrEntryMissingCurrency   = errors.New("ledger entry must carry a currency")
)

// LedgerEntry is an immutable fact in a user's vault ledger.
// Amount is never negative; the sign is carried by IsReversal.
type LedgerEntry struct {
	EntryID       string          `json:"entryID"`
	UserID        string          `json:"userID"`
	Amount        decimal.Decimal `json:"amount"`
	CurrencyCode  string          `json:"currencyCode"`
	IsReversal    bool            `json:"isReversal"`
	TransactionID *string         `json:"transactionID,omitempty"` // round-up origin
	WithdrawalID  *string         `json:"withdrawalID,omitempty"`  // reservation / compensation origin
	SweepRunID    *string         `json:"sweepRunID,omitempty"`    // investment origin
	CreatedAt     time.Time       `json:"createdAt"`
}

// SignedAmount returns the entry's contribution to the vault balance.
func (e LedgerEntry) SignedAmount() decimal.Decimal {
	if e.IsReversal {
		return e.Amount.Neg()
	}
	return e.Amount
}

// Kind derives the entry classification from its reference and sign.
func (e LedgerEntry) Kind() EntryKind {
	switch {
	case e.TransactionID != nil && !e.IsReversal:
		return KindRoundUp
	case e.TransactionID != nil:
		return KindRoundUpReversal
	case e.WithdrawalID != nil && e.IsReversal:
		return KindWithdrawalReservation
	case e.WithdrawalID != nil:
		return KindWithdrawalCompensation
	case e.SweepRunID != nil && e.IsReversal:
		return KindSweepInvestment
	default:
		return KindUnknown
	}
}

// Validate checks the structural invariants of an entry before it is appended.
func (e LedgerEntry) Validate() error {
	if e.UserID == "" {
		return ErrEntryMissingUser
	}
	if e.CurrencyCode == "" {
		return ErrEntryMissingCurrency
	}
	if !e.Amount.IsPositive() {
		return ErrEntryAmountNotPositive
	}
	refs := 0
	for _, ref := range []*string{e.TransactionID, e.WithdrawalID, e.SweepRunID} {
		if ref != nil {
			refs++
		}
	}
	if refs > 1 {
		return ErrEntryMultipleOrigins
	}
	return nil
}

// LiveRoundUpCount returns credits minus reversals among entries that reference
// the given transaction. A consistent ledger yields 0 or 1.
func LiveRoundUpCount(entries []LedgerEntry, transactionID string) int {
	live := 0
	for _, e := range entries {
		if e.TransactionID == nil || *e.TransactionID != transactionID {
			continue
		}
		if e.IsReversal {
			live--
		} else {
			live++
		}
	}
	return live
}

// LiveRoundUpAmount returns the net amount currently credited for a transaction.
func LiveRoundUpAmount(entries []LedgerEntry, transactionID string) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		if e.TransactionID != nil && *e.TransactionID == transactionID {
			sum = sum.Add(e.SignedAmount())
		}
	}
	return sum
}

// StringRef returns a pointer to s, for optional entry references.
func StringRef(s string) *string {
	return &s
}
