package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/SscSPs/roundup_vault/internal/apperrors"
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/SscSPs/roundup_vault/internal/core/ports"
	"github.com/shopspring/decimal"
)

type payoutRequest struct {
	WithdrawalID       string          `json:"withdrawalId"`
	UserID             string          `json:"userId"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	DestinationAccount string          `json:"destinationAccountId"`
	Reference          string          `json:"reference"`
}

type payoutResponse struct {
	PayoutID string `json:"payoutId"`
	Status   string `json:"status"`
	Reason   string `json:"reason"`
}

// Payouts moves withdrawn funds through a payout provider.
type Payouts struct {
	client
}

// NewPayouts creates a payout adapter rooted at baseURL.
func NewPayouts(baseURL string, httpClient *http.Client) *Payouts {
	return &Payouts{client: newClient(baseURL, httpClient)}
}

var _ ports.PayoutClient = (*Payouts)(nil)

// InitiatePayout is keyed by the withdrawal id on the provider side.
func (p *Payouts) InitiatePayout(ctx context.Context, req domain.PayoutRequest) (domain.PayoutOutcome, error) {
	var resp payoutResponse
	err := p.do(ctx, http.MethodPost, "/payouts", req.WithdrawalID, payoutRequest{
		WithdrawalID:       req.WithdrawalID,
		UserID:             req.UserID,
		Amount:             req.Amount,
		Currency:           req.CurrencyCode,
		DestinationAccount: req.DestinationAccount.BankAccountID,
		Reference:          req.ReferenceNumber,
	}, &resp)
	if err != nil {
		return domain.PayoutOutcome{}, err
	}
	return resp.toOutcome()
}

func (p *Payouts) GetPayoutStatus(ctx context.Context, withdrawalID string) (domain.PayoutOutcome, error) {
	var resp payoutResponse
	if err := p.do(ctx, http.MethodGet, "/payouts/"+url.PathEscape(withdrawalID), "", nil, &resp); err != nil {
		return domain.PayoutOutcome{}, err
	}
	return resp.toOutcome()
}

func (r payoutResponse) toOutcome() (domain.PayoutOutcome, error) {
	outcome := domain.PayoutOutcome{ProviderReference: r.PayoutID, Reason: r.Reason}
	switch r.Status {
	case "succeeded", "paid":
		outcome.Status = domain.PayoutSucceeded
	case "failed", "rejected", "returned":
		outcome.Status = domain.PayoutFailed
	case "pending", "in_flight", "processing":
		outcome.Status = domain.PayoutInFlight
	default:
		return domain.PayoutOutcome{}, fmt.Errorf("%w: unknown payout status %q", apperrors.ErrExternalProvider, r.Status)
	}
	return outcome, nil
}
