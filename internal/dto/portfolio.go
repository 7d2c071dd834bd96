package dto

import (
	"time"

	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/SscSPs/roundup_vault/internal/utils"
)

// PositionResponse defines the data returned for one brokerage holding.
type PositionResponse struct {
	Symbol       string `json:"symbol"`
	Name         string `json:"name"`
	Quantity     string `json:"quantity"`
	AverageCost  string `json:"averageCost"`
	CurrentValue string `json:"currentValue"`
}

// PortfolioResponse defines the data returned for a synced portfolio.
type PortfolioResponse struct {
	Positions     []PositionResponse `json:"positions"`
	CashBalance   string             `json:"cashBalance"`
	InvestedValue string             `json:"investedValue"`
	TotalValue    string             `json:"totalValue"`
	CurrencyCode  string             `json:"currencyCode"`
	SyncedAt      *time.Time         `json:"syncedAt,omitempty"`
}

// ToPortfolioResponse converts a domain.Portfolio to PortfolioResponse DTO.
func ToPortfolioResponse(p *domain.Portfolio) PortfolioResponse {
	positions := make([]PositionResponse, len(p.Positions))
	for i, pos := range p.Positions {
		positions[i] = PositionResponse{
			Symbol:       pos.InstrumentSymbol,
			Name:         pos.InstrumentName,
			Quantity:     pos.Quantity.String(),
			AverageCost:  utils.FormatAmount(pos.AverageCost, pos.CurrencyCode),
			CurrentValue: utils.FormatAmount(pos.CurrentValue, pos.CurrencyCode),
		}
	}
	return PortfolioResponse{
		Positions:     positions,
		CashBalance:   utils.FormatAmount(p.CashBalance, p.CurrencyCode),
		InvestedValue: utils.FormatAmount(p.InvestedValue(), p.CurrencyCode),
		TotalValue:    utils.FormatAmount(p.TotalValue(), p.CurrencyCode),
		CurrencyCode:  p.CurrencyCode,
		SyncedAt:      p.SyncedAt,
	}
}

// SyncPortfoliosResponse summarises a portfolio sync pass.
type SyncPortfoliosResponse struct {
	Synced int               `json:"synced"`
	Failed int               `json:"failed"`
	Errors map[string]string `json:"errors,omitempty"`
}
