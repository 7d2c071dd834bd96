package dto

import (
	"time"

	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/SscSPs/roundup_vault/internal/utils"
)

// BalanceResponse defines the data returned for a vault balance.
type BalanceResponse struct {
	Balance      string    `json:"balance"`
	ThisMonth    string    `json:"thisMonth"`
	EntryCount   int       `json:"entryCount"`
	CurrencyCode string    `json:"currencyCode"`
	AsOf         time.Time `json:"asOf"`
}

// ToBalanceResponse converts a domain.VaultBalance to BalanceResponse DTO.
func ToBalanceResponse(b *domain.VaultBalance) BalanceResponse {
	return BalanceResponse{
		Balance:      utils.FormatAmount(b.Balance, b.CurrencyCode),
		ThisMonth:    utils.FormatAmount(b.ThisMonth, b.CurrencyCode),
		EntryCount:   b.EntryCount,
		CurrencyCode: b.CurrencyCode,
		AsOf:         b.AsOf,
	}
}

// LedgerEntryResponse defines the data returned for a ledger entry.
type LedgerEntryResponse struct {
	EntryID       string    `json:"entryID"`
	Kind          string    `json:"kind"`
	Amount        string    `json:"amount"`
	CurrencyCode  string    `json:"currencyCode"`
	IsReversal    bool      `json:"isReversal"`
	TransactionID *string   `json:"transactionID,omitempty"`
	WithdrawalID  *string   `json:"withdrawalID,omitempty"`
	SweepRunID    *string   `json:"sweepRunID,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ToLedgerEntryResponse converts a domain.LedgerEntry to LedgerEntryResponse DTO.
func ToLedgerEntryResponse(e *domain.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		EntryID:       e.EntryID,
		Kind:          string(e.Kind()),
		Amount:        utils.FormatAmount(e.Amount, e.CurrencyCode),
		CurrencyCode:  e.CurrencyCode,
		IsReversal:    e.IsReversal,
		TransactionID: e.TransactionID,
		WithdrawalID:  e.WithdrawalID,
		SweepRunID:    e.SweepRunID,
		CreatedAt:     e.CreatedAt,
	}
}

// ToLedgerEntryResponses converts a slice of domain.LedgerEntry to []LedgerEntryResponse.
func ToLedgerEntryResponses(entries []domain.LedgerEntry) []LedgerEntryResponse {
	responses := make([]LedgerEntryResponse, len(entries))
	for i := range entries {
		responses[i] = ToLedgerEntryResponse(&entries[i])
	}
	return responses
}

// ListLedgerEntriesParams defines the query parameters for listing ledger entries.
type ListLedgerEntriesParams struct {
	Limit     int     `form:"limit" binding:"omitempty,min=1,max=100"`
	NextToken *string `form:"nextToken"`
}

// ListLedgerEntriesResponse defines a page of ledger entries.
type ListLedgerEntriesResponse struct {
	Entries   []LedgerEntryResponse `json:"entries"`
	NextToken *string               `json:"nextToken,omitempty"`
}

// ReconcileBalancesResponse summarises a cache reconciliation pass.
type ReconcileBalancesResponse struct {
	Checked    int                            `json:"checked"`
	Mismatched int                            `json:"mismatched"`
	Results    []domain.BalanceReconciliation `json:"results"`
}
