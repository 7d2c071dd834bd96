package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BrokerageAccount mirrors a row of brokerage_accounts.
type BrokerageAccount struct {
	UserID       string          `json:"userID"`
	CashBalance  decimal.Decimal `json:"cashBalance"`
	CurrencyCode string          `json:"currencyCode"`
	SyncedAt     time.Time       `json:"syncedAt"`
}

// Position mirrors a row of positions.
type Position struct {
	UserID           string          `json:"userID"`
	InstrumentSymbol string          `json:"instrumentSymbol"`
	InstrumentName   string          `json:"instrumentName"`
	Quantity         decimal.Decimal `json:"quantity"`
	AverageCost      decimal.Decimal `json:"averageCost"`
	CurrentValue     decimal.Decimal `json:"currentValue"`
	CurrencyCode     string          `json:"currencyCode"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}
