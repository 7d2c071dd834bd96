package dto

import (
	"time"

	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/SscSPs/roundup_vault/internal/utils"
	"github.com/shopspring/decimal"
)

// UpdateSweepSettingsRequest defines the fields a user may change. Omitted fields keep their value.
type UpdateSweepSettingsRequest struct {
	IsActive         *bool            `json:"isActive"`
	SweepDay         *int             `json:"sweepDay" binding:"omitempty,sweepday"`
	MonthlyCap       *decimal.Decimal `json:"monthlyCap"`
	MinimumThreshold *decimal.Decimal `json:"minimumThreshold"`
	RiskProfile      *string          `json:"riskProfile" binding:"omitempty,oneof=conservative balanced growth"`
}

// SweepSettingsResponse defines the data returned for sweep settings.
type SweepSettingsResponse struct {
	IsActive         bool       `json:"isActive"`
	SweepDay         int        `json:"sweepDay"`
	MonthlyCap       string     `json:"monthlyCap"`
	MinimumThreshold string     `json:"minimumThreshold"`
	RiskProfile      string     `json:"riskProfile"`
	HaltedAt         *time.Time `json:"haltedAt,omitempty"`
	HaltReason       string     `json:"haltReason,omitempty"`
}

// ToSweepSettingsResponse converts domain.SweepSettings to SweepSettingsResponse DTO.
func ToSweepSettingsResponse(s *domain.SweepSettings) SweepSettingsResponse {
	return SweepSettingsResponse{
		IsActive:         s.IsActive,
		SweepDay:         s.SweepDay,
		MonthlyCap:       s.MonthlyCap.String(),
		MinimumThreshold: s.MinimumThreshold.String(),
		RiskProfile:      string(s.RiskProfile),
		HaltedAt:         s.HaltedAt,
		HaltReason:       s.HaltReason,
	}
}

// SweepRunResponse defines the data returned for a sweep run.
type SweepRunResponse struct {
	SweepRunID     string     `json:"sweepRunID"`
	ScheduledFor   string     `json:"scheduledFor"`
	Amount         string     `json:"amount"`
	InvestedAmount string     `json:"investedAmount"`
	CurrencyCode   string     `json:"currencyCode"`
	RiskProfile    string     `json:"riskProfile"`
	Status         string     `json:"status"`
	ErrorDetail    string     `json:"errorDetail,omitempty"`
	ExecutedAt     *time.Time `json:"executedAt,omitempty"`
}

// ToSweepRunResponse converts a domain.SweepRun to SweepRunResponse DTO.
func ToSweepRunResponse(r *domain.SweepRun) SweepRunResponse {
	return SweepRunResponse{
		SweepRunID:     r.SweepRunID,
		ScheduledFor:   r.ScheduledFor.Format(time.DateOnly),
		Amount:         utils.FormatAmount(r.Amount, r.CurrencyCode),
		InvestedAmount: utils.FormatAmount(r.InvestedAmount, r.CurrencyCode),
		CurrencyCode:   r.CurrencyCode,
		RiskProfile:    string(r.RiskProfile),
		Status:         string(r.Status),
		ErrorDetail:    r.ErrorDetail,
		ExecutedAt:     r.ExecutedAt,
	}
}

// ToSweepRunResponses converts a slice of domain.SweepRun to []SweepRunResponse.
func ToSweepRunResponses(runs []domain.SweepRun) []SweepRunResponse {
	responses := make([]SweepRunResponse, len(runs))
	for i := range runs {
		responses[i] = ToSweepRunResponse(&runs[i])
	}
	return responses
}

// SweepTriggerSummary summarises one trigger over all users.
type SweepTriggerSummary struct {
	TriggeredAt      time.Time                `json:"triggeredAt"`
	Evaluated        int                      `json:"evaluated"`
	RunsCreated      int                      `json:"runsCreated"`
	Skipped          int                      `json:"skipped"`
	AlreadyScheduled int                      `json:"alreadyScheduled"`
	Idle             int                      `json:"idle"`
	Failed           int                      `json:"failed"`
	Evaluations      []domain.SweepEvaluation `json:"evaluations"`
	Errors           map[string]string        `json:"errors,omitempty"`
}

// ReconcileSweepsResponse lists runs that were re-examined against the broker.
type ReconcileSweepsResponse struct {
	Runs []SweepRunResponse `json:"runs"`
}
