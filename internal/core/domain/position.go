package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is a holding the broker reports for a user. It informs the UI only;
// the vault ledger never reads it.
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

// BrokerageSnapshot is what the broker reports for one account.
type BrokerageSnapshot struct {
	Positions    []Position
	CashBalance  decimal.Decimal
	CurrencyCode string
}

// Portfolio is the last synced view of a user's brokerage account.
type Portfolio struct {
	UserID       string          `json:"userID"`
	Positions    []Position      `json:"positions"`
	CashBalance  decimal.Decimal `json:"cashBalance"`
	CurrencyCode string          `json:"currencyCode"`
	// SyncedAt is nil until the first successful sync.
	SyncedAt *time.Time `json:"syncedAt,omitempty"`
}

// InvestedValue sums the current value of every position.
func (p Portfolio) InvestedValue() decimal.Decimal {
	total := decimal.Zero
	for _, pos := range p.Positions {
		total = total.Add(pos.CurrentValue)
	}
	return total
}

// TotalValue is the invested value plus uninvested cash at the broker.
func (p Portfolio) TotalValue() decimal.Decimal {
	return p.InvestedValue().Add(p.CashBalance)
}

// InstrumentName looks a symbol up in the model portfolios, falling back to the symbol.
func InstrumentName(symbol string) string {
	for _, instruments := range modelPortfolios {
		for _, ins := range instruments {
			if ins.Symbol == symbol {
				return ins.Name
			}
		}
	}
	return symbol
}
