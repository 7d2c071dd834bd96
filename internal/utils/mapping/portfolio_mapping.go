package mapping

import (
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/SscSPs/roundup_vault/internal/models"
)

// ToModelPosition converts a domain Position to a model row
func ToModelPosition(d domain.Position) models.Position {
	return models.Position{
		UserID:           d.UserID,
		InstrumentSymbol: d.InstrumentSymbol,
		InstrumentName:   d.InstrumentName,
		Quantity:         d.Quantity,
		AverageCost:      d.AverageCost,
		CurrentValue:     d.CurrentValue,
		CurrencyCode:     d.CurrencyCode,
		UpdatedAt:        d.UpdatedAt,
	}
}

// ToDomainPortfolio assembles a Portfolio from its account row and position rows.
func ToDomainPortfolio(account models.BrokerageAccount, positions []models.Position) domain.Portfolio {
	syncedAt := account.SyncedAt
	p := domain.Portfolio{
		UserID:       account.UserID,
		CashBalance:  account.CashBalance,
		CurrencyCode: account.CurrencyCode,
		SyncedAt:     &syncedAt,
		Positions:    make([]domain.Position, len(positions)),
	}
	for i, m := range positions {
		p.Positions[i] = domain.Position{
			UserID:           m.UserID,
			InstrumentSymbol: m.InstrumentSymbol,
			InstrumentName:   m.InstrumentName,
			Quantity:         m.Quantity,
			AverageCost:      m.AverageCost,
			CurrentValue:     m.CurrentValue,
			CurrencyCode:     m.CurrencyCode,
			UpdatedAt:        m.UpdatedAt,
		}
	}
	return p
}
