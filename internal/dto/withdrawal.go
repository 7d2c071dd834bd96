package dto

import (
	"time"

	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/SscSPs/roundup_vault/internal/utils"
	"github.com/shopspring/decimal"
)

// CreateWithdrawalRequest defines the data needed to withdraw vault funds.
type CreateWithdrawalRequest struct {
	Amount               decimal.Decimal `json:"amount"`
	CurrencyCode         string          `json:"currencyCode" binding:"omitempty,len=3"`
	DestinationAccountID string          `json:"destinationAccountID" binding:"required"`
}

// SettleWithdrawalRequest is the payout provider's settlement callback.
type SettleWithdrawalRequest struct {
	Status            string `json:"status" binding:"required,oneof=succeeded failed"`
	ProviderReference string `json:"providerReference"`
	Reason            string `json:"reason"`
}

// WithdrawalResponse defines the data returned for a withdrawal.
type WithdrawalResponse struct {
	WithdrawalID         string     `json:"withdrawalID"`
	Amount               string     `json:"amount"`
	CurrencyCode         string     `json:"currencyCode"`
	DestinationAccountID string     `json:"destinationAccountID"`
	Status               string     `json:"status"`
	ReferenceNumber      string     `json:"referenceNumber"`
	FailureReason        string     `json:"failureReason,omitempty"`
	InitiatedAt          time.Time  `json:"initiatedAt"`
	SettledAt            *time.Time `json:"settledAt,omitempty"`
}

// ToWithdrawalResponse converts a domain.Withdrawal to WithdrawalResponse DTO.
func ToWithdrawalResponse(w *domain.Withdrawal) WithdrawalResponse {
	return WithdrawalResponse{
		WithdrawalID:         w.WithdrawalID,
		Amount:               utils.FormatAmount(w.Amount, w.CurrencyCode),
		CurrencyCode:         w.CurrencyCode,
		DestinationAccountID: w.DestinationAccountID,
		Status:               string(w.Status),
		ReferenceNumber:      w.ReferenceNumber,
		FailureReason:        w.FailureReason,
		InitiatedAt:          w.InitiatedAt,
		SettledAt:            w.SettledAt,
	}
}

// ToWithdrawalResponses converts a slice of domain.Withdrawal to []WithdrawalResponse.
func ToWithdrawalResponses(ws []domain.Withdrawal) []WithdrawalResponse {
	responses := make([]WithdrawalResponse, len(ws))
	for i := range ws {
		responses[i] = ToWithdrawalResponse(&ws[i])
	}
	return responses
}

// ListParams defines a plain limit for list endpoints without cursor pagination.
type ListParams struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}
