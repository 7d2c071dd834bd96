package dto

import (
	"time"

	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/shopspring/decimal"
)

// IngestTransactionRequest is one transaction pushed by the banking sync.
type IngestTransactionRequest struct {
	UserID          string          `json:"userID" binding:"required"`
	AccountID       string          `json:"accountID"`
	ExternalID      string          `json:"externalID" binding:"required"`
	MerchantName    string          `json:"merchantName"`
	Category        string          `json:"category"`
	Amount          decimal.Decimal `json:"amount"`
	CurrencyCode    string          `json:"currencyCode" binding:"required,len=3"`
	TransactionDate time.Time       `json:"transactionDate" binding:"required"`
	// Amount is negative for debits.
	// IsEligibleForRoundUp defaults to whether Amount is a debit when omitted.
	IsEligibleForRoundUp *bool `json:"isEligibleForRoundUp"`
}

// IngestTransactionsRequest is a batch pushed by the banking sync.
type IngestTransactionsRequest struct {
	Transactions []IngestTransactionRequest `json:"transactions" binding:"required,min=1,dive"`
}

// IngestResult reports what ingestion did with one transaction.
type IngestResult struct {
	ExternalID    string               `json:"externalID"`
	TransactionID string               `json:"transactionID,omitempty"`
	Created       bool                 `json:"created"`
	RoundUp       *LedgerEntryResponse `json:"roundUp,omitempty"`
	Error         string               `json:"error,omitempty"`
}

// IngestTransactionsResponse summarises a batch ingestion.
type IngestTransactionsResponse struct {
	Created    int            `json:"created"`
	Duplicates int            `json:"duplicates"`
	Failed     int            `json:"failed"`
	Results    []IngestResult `json:"results"`
}

// CorrectTransactionRequest changes the classification of an ingested transaction.
type CorrectTransactionRequest struct {
	Category   *string `json:"category"`
	IsExcluded *bool   `json:"isExcluded"`
}

// TransactionResponse defines the data returned for a transaction.
type TransactionResponse struct {
	TransactionID        string          `json:"transactionID"`
	ExternalID           string          `json:"externalID"`
	MerchantName         string          `json:"merchantName"`
	Category             string          `json:"category"`
	Amount               decimal.Decimal `json:"amount"`
	CurrencyCode         string          `json:"currencyCode"`
	TransactionDate      time.Time       `json:"transactionDate"`
	IsEligibleForRoundUp bool            `json:"isEligibleForRoundUp"`
	IsExcluded           bool            `json:"isExcluded"`
}

// ToTransactionResponse converts a domain.Transaction to TransactionResponse DTO.
func ToTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID:        t.TransactionID,
		ExternalID:           t.ExternalID,
		MerchantName:         t.MerchantName,
		Category:             t.Category,
		Amount:               t.Amount,
		CurrencyCode:         t.CurrencyCode,
		TransactionDate:      t.TransactionDate,
		IsEligibleForRoundUp: t.IsEligibleForRoundUp,
		IsExcluded:           t.IsExcluded,
	}
}

// ExcludedMerchantRequest adds a merchant to the user's exclusion list.
type ExcludedMerchantRequest struct {
	MerchantName string `json:"merchantName" binding:"required,max=255"`
}

// RegisterBankAccountRequest is pushed by the banking sync when a user links an account.
type RegisterBankAccountRequest struct {
	BankAccountID       string `json:"bankAccountID" binding:"required"`
	UserID              string `json:"userID" binding:"required"`
	AccountName         string `json:"accountName" binding:"required"`
	AccountNumberMasked string `json:"accountNumberMasked"`
	CurrencyCode        string `json:"currencyCode" binding:"required,len=3"`
	IsPrimary           bool   `json:"isPrimary"`
}
