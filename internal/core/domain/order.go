package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the broker-reported state of an investment order.
type OrderStatus string

const (
	OrderPending  OrderStatus = "pending"
	OrderFilled   OrderStatus = "filled"
	OrderRejected OrderStatus = "rejected"
)

// IsFinal reports whether the order will not change any more.
func (s OrderStatus) IsFinal() bool {
	return s == OrderFilled || s == OrderRejected
}

// Order is one instrument leg of a sweep run.
type Order struct {
	OrderID          string          `json:"orderID"`
	UserID           string          `json:"userID"`
	SweepRunID       string          `json:"sweepRunID"`
	ClientOrderID    string          `json:"clientOrderID"` // idempotency key sent to the broker
	InstrumentSymbol string          `json:"instrumentSymbol"`
	InstrumentName   string          `json:"instrumentName"`
	Amount           decimal.Decimal `json:"amount"`
	CurrencyCode     string          `json:"currencyCode"`
	Status           OrderStatus     `json:"status"`
	FilledQuantity   decimal.Decimal `json:"filledQuantity"`
	ExternalOrderID  string          `json:"externalOrderID,omitempty"`
	FailureReason    string          `json:"failureReason,omitempty"`
	ExecutedAt       *time.Time      `json:"executedAt,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// OrderRequest is what the engine hands to the brokerage collaborator.
type OrderRequest struct {
	UserID        string
	Symbol        string
	Amount        decimal.Decimal
	CurrencyCode  string
	SweepRunID    string
	ClientOrderID string
}

// OrderOutcome is what the brokerage collaborator reports for an order.
type OrderOutcome struct {
	Status          OrderStatus
	FilledQuantity  decimal.Decimal
	ExternalOrderID string
	Reason          string
	ExecutedAt      *time.Time
}
