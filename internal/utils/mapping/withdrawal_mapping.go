package mapping

import (
	"encoding/json"

	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/SscSPs/roundup_vault/internal/models"
)

// ToModelWithdrawal converts a domain Withdrawal to a model row
func ToModelWithdrawal(d domain.Withdrawal) models.Withdrawal {
	return models.Withdrawal{
		WithdrawalID:         d.WithdrawalID,
		UserID:               d.UserID,
		Amount:               d.Amount,
		CurrencyCode:         d.CurrencyCode,
		DestinationAccountID: d.DestinationAccountID,
		Status:               string(d.Status),
		ReferenceNumber:      d.ReferenceNumber,
		ProviderReference:    NullString(d.ProviderReference),
		FailureReason:        NullString(d.FailureReason),
		InitiatedAt:          d.InitiatedAt,
		SettledAt:            d.SettledAt,
	}
}

// ToDomainWithdrawal converts a model row to a domain Withdrawal
func ToDomainWithdrawal(m models.Withdrawal) domain.Withdrawal {
	return domain.Withdrawal{
		WithdrawalID:         m.WithdrawalID,
		UserID:               m.UserID,
		Amount:               m.Amount,
		CurrencyCode:         m.CurrencyCode,
		DestinationAccountID: m.DestinationAccountID,
		Status:               domain.WithdrawalStatus(m.Status),
		ReferenceNumber:      m.ReferenceNumber,
		ProviderReference:    FromNullString(m.ProviderReference),
		FailureReason:        FromNullString(m.FailureReason),
		InitiatedAt:          m.InitiatedAt,
		SettledAt:            m.SettledAt,
	}
}

// ToDomainWithdrawalSlice converts model rows to domain Withdrawals
func ToDomainWithdrawalSlice(ms []models.Withdrawal) []domain.Withdrawal {
	ds := make([]domain.Withdrawal, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainWithdrawal(m)
	}
	return ds
}

// ToModelAuditLog converts a domain AuditLog to a model row
func ToModelAuditLog(d domain.AuditLog) models.AuditLog {
	m := models.AuditLog{
		AuditLogID: d.AuditLogID,
		UserID:     d.UserID,
		Action:     string(d.Action),
		EntityType: d.EntityType,
		EntityID:   NullString(d.EntityID),
		CreatedAt:  d.CreatedAt,
	}
	if len(d.Details) > 0 {
		m.Details = []byte(d.Details)
	}
	return m
}

// ToDomainAuditLog converts a model row to a domain AuditLog
func ToDomainAuditLog(m models.AuditLog) domain.AuditLog {
	d := domain.AuditLog{
		AuditLogID: m.AuditLogID,
		UserID:     m.UserID,
		Action:     domain.AuditAction(m.Action),
		EntityType: m.EntityType,
		EntityID:   FromNullString(m.EntityID),
		CreatedAt:  m.CreatedAt,
	}
	if len(m.Details) > 0 {
		d.Details = json.RawMessage(m.Details)
	}
	return d
}
