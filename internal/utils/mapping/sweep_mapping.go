package mapping

import (
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/SscSPs/roundup_vault/internal/models"
)

// ToModelSweepSettings converts domain SweepSettings to a model row
func ToModelSweepSettings(d domain.SweepSettings) models.SweepSettings {
	return models.SweepSettings{
		UserID:           d.UserID,
		IsActive:         d.IsActive,
		SweepDay:         int16(d.SweepDay),
		MonthlyCap:       d.MonthlyCap,
		MinimumThreshold: d.MinimumThreshold,
		RiskProfile:      string(d.RiskProfile),
		HaltedAt:         d.HaltedAt,
		HaltReason:       NullString(d.HaltReason),
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

// ToDomainSweepSettings converts a model row to domain SweepSettings
func ToDomainSweepSettings(m models.SweepSettings) domain.SweepSettings {
	return domain.SweepSettings{
		UserID:           m.UserID,
		IsActive:         m.IsActive,
		SweepDay:         int(m.SweepDay),
		MonthlyCap:       m.MonthlyCap,
		MinimumThreshold: m.MinimumThreshold,
		RiskProfile:      domain.RiskProfile(m.RiskProfile),
		HaltedAt:         m.HaltedAt,
		HaltReason:       FromNullString(m.HaltReason),
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// ToDomainSweepSettingsSlice converts model rows to domain SweepSettings
func ToDomainSweepSettingsSlice(ms []models.SweepSettings) []domain.SweepSettings {
	ds := make([]domain.SweepSettings, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainSweepSettings(m)
	}
	return ds
}

// ToModelSweepRun converts a domain SweepRun to a model row
func ToModelSweepRun(d domain.SweepRun) models.SweepRun {
	return models.SweepRun{
		SweepRunID:     d.SweepRunID,
		UserID:         d.UserID,
		ScheduledFor:   d.ScheduledFor,
		ScheduledAt:    d.ScheduledAt,
		Amount:         d.Amount,
		InvestedAmount: d.InvestedAmount,
		CurrencyCode:   d.CurrencyCode,
		RiskProfile:    string(d.RiskProfile),
		Status:         string(d.Status),
		ErrorDetail:    NullString(d.ErrorDetail),
		ExecutedAt:     d.ExecutedAt,
	}
}

// ToDomainSweepRun converts a model row to a domain SweepRun
func ToDomainSweepRun(m models.SweepRun) domain.SweepRun {
	return domain.SweepRun{
		SweepRunID:     m.SweepRunID,
		UserID:         m.UserID,
		ScheduledFor:   m.ScheduledFor,
		ScheduledAt:    m.ScheduledAt,
		Amount:         m.Amount,
		InvestedAmount: m.InvestedAmount,
		CurrencyCode:   m.CurrencyCode,
		RiskProfile:    domain.RiskProfile(m.RiskProfile),
		Status:         domain.SweepStatus(m.Status),
		ErrorDetail:    FromNullString(m.ErrorDetail),
		ExecutedAt:     m.ExecutedAt,
	}
}

// ToDomainSweepRunSlice converts model rows to domain SweepRuns
func ToDomainSweepRunSlice(ms []models.SweepRun) []domain.SweepRun {
	ds := make([]domain.SweepRun, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainSweepRun(m)
	}
	return ds
}

// ToModelOrder converts a domain Order to a model row
func ToModelOrder(d domain.Order) models.Order {
	return models.Order{
		OrderID:          d.OrderID,
		UserID:           d.UserID,
		SweepRunID:       d.SweepRunID,
		ClientOrderID:    d.ClientOrderID,
		InstrumentSymbol: d.InstrumentSymbol,
		InstrumentName:   d.InstrumentName,
		Amount:           d.Amount,
		CurrencyCode:     d.CurrencyCode,
		Status:           string(d.Status),
		FilledQuantity:   d.FilledQuantity,
		ExternalOrderID:  NullString(d.ExternalOrderID),
		FailureReason:    NullString(d.FailureReason),
		ExecutedAt:       d.ExecutedAt,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

// ToDomainOrder converts a model row to a domain Order
func ToDomainOrder(m models.Order) domain.Order {
	return domain.Order{
		OrderID:          m.OrderID,
		UserID:           m.UserID,
		SweepRunID:       m.SweepRunID,
		ClientOrderID:    m.ClientOrderID,
		InstrumentSymbol: m.InstrumentSymbol,
		InstrumentName:   m.InstrumentName,
		Amount:           m.Amount,
		CurrencyCode:     m.CurrencyCode,
		Status:           domain.OrderStatus(m.Status),
		FilledQuantity:   m.FilledQuantity,
		ExternalOrderID:  FromNullString(m.ExternalOrderID),
		FailureReason:    FromNullString(m.FailureReason),
		ExecutedAt:       m.ExecutedAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// ToDomainOrderSlice converts model rows to domain Orders
func ToDomainOrderSlice(ms []models.Order) []domain.Order {
	ds := make([]domain.Order, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainOrder(m)
	}
	return ds
}
