package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WithdrawalStatus is the lifecycle state of a Withdrawal.
type WithdrawalStatus string

const (
	WithdrawalPending    WithdrawalStatus = "pending"
	WithdrawalProcessing WithdrawalStatus = "processing"
	WithdrawalCompleted  WithdrawalStatus = "completed"
	WithdrawalFailed     WithdrawalStatus = "failed"
)

// IsTerminal reports whether no further transitions are possible.
func (s WithdrawalStatus) IsTerminal() bool {
	return s == WithdrawalCompleted || s == WithdrawalFailed
}

// Withdrawal is a user-initiated transfer of vault funds to a bank account.
// It is created together with its reservation entry.
type Withdrawal struct {
	WithdrawalID         string           `json:"withdrawalID"`
	UserID               string           `json:"userID"`
	Amount               decimal.Decimal  `json:"amount"`
	CurrencyCode         string           `json:"currencyCode"`
	DestinationAccountID string           `json:"destinationAccountID"`
	Status               WithdrawalStatus `json:"status"`
	ReferenceNumber      string           `json:"referenceNumber"`
	ProviderReference    string           `json:"providerReference,omitempty"`
	FailureReason        string           `json:"failureReason,omitempty"`
	InitiatedAt          time.Time        `json:"initiatedAt"`
	SettledAt            *time.Time       `json:"settledAt,omitempty"`
}

// PayoutRequest is what the engine hands to the payout collaborator.
type PayoutRequest struct {
	WithdrawalID       string
	UserID             string
	Amount             decimal.Decimal
	CurrencyCode       string
	DestinationAccount BankAccount
	ReferenceNumber    string
}

// PayoutStatus is the payout collaborator's view of a payout.
type PayoutStatus string

const (
	PayoutInFlight  PayoutStatus = "in_flight"
	PayoutSucceeded PayoutStatus = "succeeded"
	PayoutFailed    PayoutStatus = "failed"
)

// PayoutOutcome is a settlement signal for a withdrawal.
type PayoutOutcome struct {
	Status            PayoutStatus
	ProviderReference string
	Reason            string
}

// BankAccount is a user's bank account maintained by the banking sync collaborator.
type BankAccount struct {
	BankAccountID       string    `json:"bankAccountID"`
	UserID              string    `json:"userID"`
	AccountName         string    `json:"accountName"`
	AccountNumberMasked string    `json:"accountNumberMasked"`
	CurrencyCode        string    `json:"currencyCode"`
	IsPrimary           bool      `json:"isPrimary"`
	CreatedAt           time.Time `json:"createdAt"`
}
