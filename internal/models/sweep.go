package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SweepSettings mirrors a row of sweep_settings.
type SweepSettings struct {
	UserID           string          `json:"userID"`
	IsActive         bool            `json:"isActive"`
	SweepDay         int16           `json:"sweepDay"`
	MonthlyCap       decimal.Decimal `json:"monthlyCap"`
	MinimumThreshold decimal.Decimal `json:"minimumThreshold"`
	RiskProfile      string          `json:"riskProfile"`
	HaltedAt         *time.Time      `json:"haltedAt"`   // Nullable
	HaltReason       *string         `json:"haltReason"` // Nullable
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// SweepRun mirrors a row of sweep_runs.
type SweepRun struct {
	SweepRunID     string          `json:"sweepRunID"`
	UserID         string          `json:"userID"`
	ScheduledFor   time.Time       `json:"scheduledFor"` // DATE column
	ScheduledAt    time.Time       `json:"scheduledAt"`
	Amount         decimal.Decimal `json:"amount"`
	InvestedAmount decimal.Decimal `json:"investedAmount"`
	CurrencyCode   string          `json:"currencyCode"`
	RiskProfile    string          `json:"riskProfile"`
	Status         string          `json:"status"`
	ErrorDetail    *string         `json:"errorDetail"` // Nullable
	ExecutedAt     *time.Time      `json:"executedAt"`  // Nullable
}

// Order mirrors a row of orders.
type Order struct {
	OrderID          string          `json:"orderID"`
	UserID           string          `json:"userID"`
	SweepRunID       string          `json:"sweepRunID"`
	ClientOrderID    string          `json:"clientOrderID"`
	InstrumentSymbol string          `json:"instrumentSymbol"`
	InstrumentName   string          `json:"instrumentName"`
	Amount           decimal.Decimal `json:"amount"`
	CurrencyCode     string          `json:"currencyCode"`
	Status           string          `json:"status"`
	FilledQuantity   decimal.Decimal `json:"filledQuantity"`
	ExternalOrderID  *string         `json:"externalOrderID"` // Nullable
	FailureReason    *string         `json:"failureReason"`   // Nullable
	ExecutedAt       *time.Time      `json:"executedAt"`      // Nullable
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}
