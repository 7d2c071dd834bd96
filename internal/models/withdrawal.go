package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Withdrawal mirrors a row of withdrawals.
type Withdrawal struct {
	WithdrawalID         string          `json:"withdrawalID"`
	UserID               string          `json:"userID"`
	Amount               decimal.Decimal `json:"amount"`
	CurrencyCode         string          `json:"currencyCode"`
	DestinationAccountID string          `json:"destinationAccountID"`
	Status               string          `json:"status"`
	ReferenceNumber      string          `json:"referenceNumber"`
	ProviderReference    *string         `json:"providerReference"` // Nullable
	FailureReason        *string         `json:"failureReason"`     // Nullable
	InitiatedAt          time.Time       `json:"initiatedAt"`
	SettledAt            *time.Time      `json:"settledAt"` // Nullable
}
