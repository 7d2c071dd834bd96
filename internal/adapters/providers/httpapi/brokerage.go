package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/SscSPs/roundup_vault/internal/apperrors"
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/SscSPs/roundup_vault/internal/core/ports"
	"github.com/shopspring/decimal"
)

type orderRequest struct {
	ClientOrderID string          `json:"clientOrderId"`
	UserID        string          `json:"userId"`
	Symbol        string          `json:"symbol"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Reference     string          `json:"reference"`
}

type orderResponse struct {
	OrderID        string          `json:"orderId"`
	Status         string          `json:"status"`
	FilledQuantity decimal.Decimal `json:"filledQuantity"`
	Reason         string          `json:"reason"`
	ExecutedAt     *time.Time      `json:"executedAt"`
}

type positionsResponse struct {
	Cash      decimal.Decimal `json:"cash"`
	Currency  string          `json:"currency"`
	Positions []struct {
		Symbol      string          `json:"symbol"`
		Name        string          `json:"name"`
		Quantity    decimal.Decimal `json:"quantity"`
		AverageCost decimal.Decimal `json:"averageCost"`
		MarketValue decimal.Decimal `json:"marketValue"`
	} `json:"positions"`
}

// Brokerage places fractional orders with a brokerage provider.
type Brokerage struct {
	client
}

// NewBrokerage creates a brokerage adapter rooted at baseURL.
func NewBrokerage(baseURL string, httpClient *http.Client) *Brokerage {
	return &Brokerage{client: newClient(baseURL, httpClient)}
}

var _ ports.BrokerageClient = (*Brokerage)(nil)

// PlaceOrder sends the client order id as the idempotency key, so a retry
// after a timeout returns the original order.
func (b *Brokerage) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderOutcome, error) {
	var resp orderResponse
	err := b.do(ctx, http.MethodPost, "/orders", req.ClientOrderID, orderRequest{
		ClientOrderID: req.ClientOrderID,
		UserID:        req.UserID,
		Symbol:        req.Symbol,
		Amount:        req.Amount,
		Currency:      req.CurrencyCode,
		Reference:     req.SweepRunID,
	}, &resp)
	if err != nil {
		return domain.OrderOutcome{}, err
	}
	return resp.toOutcome()
}

func (b *Brokerage) GetOrder(ctx context.Context, clientOrderID string) (domain.OrderOutcome, error) {
	var resp orderResponse
	if err := b.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(clientOrderID), "", nil, &resp); err != nil {
		return domain.OrderOutcome{}, err
	}
	return resp.toOutcome()
}

func (b *Brokerage) GetPositions(ctx context.Context, userID string) (domain.BrokerageSnapshot, error) {
	var resp positionsResponse
	if err := b.do(ctx, http.MethodGet, "/accounts/"+url.PathEscape(userID)+"/positions", "", nil, &resp); err != nil {
		return domain.BrokerageSnapshot{}, err
	}
	now := time.Now().UTC()
	snapshot := domain.BrokerageSnapshot{
		CashBalance:  resp.Cash,
		CurrencyCode: resp.Currency,
		Positions:    make([]domain.Position, 0, len(resp.Positions)),
	}
	for _, p := range resp.Positions {
		name := p.Name
		if name == "" {
			name = domain.InstrumentName(p.Symbol)
		}
		snapshot.Positions = append(snapshot.Positions, domain.Position{
			UserID:           userID,
			InstrumentSymbol: p.Symbol,
			InstrumentName:   name,
			Quantity:         p.Quantity,
			AverageCost:      p.AverageCost,
			CurrentValue:     p.MarketValue,
			CurrencyCode:     resp.Currency,
			UpdatedAt:        now,
		})
	}
	return snapshot, nil
}

func (r orderResponse) toOutcome() (domain.OrderOutcome, error) {
	outcome := domain.OrderOutcome{
		FilledQuantity:  r.FilledQuantity,
		ExternalOrderID: r.OrderID,
		Reason:          r.Reason,
		ExecutedAt:      r.ExecutedAt,
	}
	switch r.Status {
	case "filled":
		outcome.Status = domain.OrderFilled
	case "rejected", "cancelled":
		outcome.Status = domain.OrderRejected
	case "accepted", "pending", "partially_filled":
		outcome.Status = domain.OrderPending
	default:
		return domain.OrderOutcome{}, fmt.Errorf("%w: unknown order status %q", apperrors.ErrExternalProvider, r.Status)
	}
	return outcome, nil
}
