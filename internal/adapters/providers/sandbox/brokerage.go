// Package sandbox provides deterministic in-memory brokerage and payout
// providers for local development and tests.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SscSPs/roundup_vault/internal/apperrors"
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/SscSPs/roundup_vault/internal/core/ports"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Behavior selects how the sandbox answers a call.
type Behavior string

const (
	// Complete fills orders or settles payouts immediately.
	Complete Behavior = "complete"
	// Accept acknowledges the call and leaves it open until resolved.
	Accept Behavior = "accept"
	// Reject answers with an explicit rejection.
	Reject Behavior = "reject"
	// Fail returns a provider error without recording anything.
	Fail Behavior = "fail"
	// Hang blocks until the caller's context expires.
	Hang Behavior = "hang"
)

var errSandboxUnavailable = errors.New("sandbox provider unavailable")

var defaultPrice = decimal.NewFromInt(100)

// Brokerage simulates a broker. Orders are keyed by client order id, so a
// repeated PlaceOrder returns the original order.
type Brokerage struct {
	mu        sync.Mutex
	clock     func() time.Time
	byDefault Behavior
	bySymbol  map[string]Behavior
	prices    map[string]decimal.Decimal
	orders    map[string]*order
	cash      map[string]decimal.Decimal
	calls     int
}

type order struct {
	userID   string
	symbol   string
	amount   decimal.Decimal
	currency string
	outcome  domain.OrderOutcome
}

// NewBrokerage creates a broker that fills every order.
func NewBrokerage() *Brokerage {
	return &Brokerage{
		clock:     time.Now,
		byDefault: Complete,
		bySymbol:  make(map[string]Behavior),
		prices:    make(map[string]decimal.Decimal),
		orders:    make(map[string]*order),
		cash:      make(map[string]decimal.Decimal),
	}
}

var _ ports.BrokerageClient = (*Brokerage)(nil)

// SetBehavior changes the answer for every symbol without an override.
func (b *Brokerage) SetBehavior(behavior Behavior) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byDefault = behavior
}

// SetSymbolBehavior overrides the answer for one symbol.
func (b *Brokerage) SetSymbolBehavior(symbol string, behavior Behavior) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bySymbol[symbol] = behavior
}

// SetPrice sets the unit price used to compute fill quantities.
func (b *Brokerage) SetPrice(symbol string, price decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prices[symbol] = price
}

// SetCash sets the uninvested cash reported for a user's account.
func (b *Brokerage) SetCash(userID string, amount decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cash[userID] = amount
}

// Calls returns how many PlaceOrder calls were received.
func (b *Brokerage) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func (b *Brokerage) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderOutcome, error) {
	b.mu.Lock()
	b.calls++
	if existing, ok := b.orders[req.ClientOrderID]; ok {
		b.mu.Unlock()
		return existing.outcome, nil
	}
	behavior, ok := b.bySymbol[req.Symbol]
	if !ok {
		behavior = b.byDefault
	}
	b.mu.Unlock()

	switch behavior {
	case Hang:
		<-ctx.Done()
		return domain.OrderOutcome{}, ctx.Err()
	case Fail:
		return domain.OrderOutcome{}, fmt.Errorf("%w: %v", apperrors.ErrExternalProvider, errSandboxUnavailable)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	o := &order{
		userID:   req.UserID,
		symbol:   req.Symbol,
		amount:   req.Amount,
		currency: req.CurrencyCode,
		outcome:  domain.OrderOutcome{ExternalOrderID: "SBX-" + uuid.NewString()},
	}
	switch behavior {
	case Reject:
		o.outcome.Status = domain.OrderRejected
		o.outcome.Reason = "rejected by sandbox"
	case Accept:
		o.outcome.Status = domain.OrderPending
	default:
		b.fillLocked(o)
	}
	b.orders[req.ClientOrderID] = o
	return o.outcome, nil
}

func (b *Brokerage) GetOrder(ctx context.Context, clientOrderID string) (domain.OrderOutcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[clientOrderID]
	if !ok {
		return domain.OrderOutcome{}, apperrors.ErrNotFound
	}
	return o.outcome, nil
}

// GetPositions aggregates the user's filled orders per symbol and values them
// at the current sandbox price. The default behavior applies, so Fail and Hang
// simulate an unreachable broker.
func (b *Brokerage) GetPositions(ctx context.Context, userID string) (domain.BrokerageSnapshot, error) {
	b.mu.Lock()
	behavior := b.byDefault
	b.mu.Unlock()

	switch behavior {
	case Hang:
		<-ctx.Done()
		return domain.BrokerageSnapshot{}, ctx.Err()
	case Fail:
		return domain.BrokerageSnapshot{}, fmt.Errorf("%w: %v", apperrors.ErrExternalProvider, errSandboxUnavailable)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	snapshot := domain.BrokerageSnapshot{CashBalance: b.cash[userID]}
	bySymbol := make(map[string]*domain.Position)
	cost := make(map[string]decimal.Decimal)
	for _, o := range b.orders {
		if o.userID != userID || o.outcome.Status != domain.OrderFilled {
			continue
		}
		if snapshot.CurrencyCode == "" {
			snapshot.CurrencyCode = o.currency
		}
		pos, ok := bySymbol[o.symbol]
		if !ok {
			pos = &domain.Position{
				UserID:           userID,
				InstrumentSymbol: o.symbol,
				InstrumentName:   domain.InstrumentName(o.symbol),
				Quantity:         decimal.Zero,
				CurrencyCode:     o.currency,
			}
			bySymbol[o.symbol] = pos
		}
		pos.Quantity = pos.Quantity.Add(o.outcome.FilledQuantity)
		cost[o.symbol] = cost[o.symbol].Add(o.amount)
	}

	now := b.clock().UTC()
	for symbol, pos := range bySymbol {
		if pos.Quantity.IsPositive() {
			pos.AverageCost = cost[symbol].DivRound(pos.Quantity, 4)
		}
		pos.CurrentValue = pos.Quantity.Mul(b.priceLocked(symbol)).Round(2)
		pos.UpdatedAt = now
		snapshot.Positions = append(snapshot.Positions, *pos)
	}
	sort.Slice(snapshot.Positions, func(i, j int) bool {
		return snapshot.Positions[i].InstrumentSymbol < snapshot.Positions[j].InstrumentSymbol
	})
	return snapshot, nil
}

// FillOrder fills an accepted order.
func (b *Brokerage) FillOrder(clientOrderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[clientOrderID]
	if !ok {
		return apperrors.ErrNotFound
	}
	b.fillLocked(o)
	return nil
}

// RejectOrder rejects an accepted order.
func (b *Brokerage) RejectOrder(clientOrderID, reason string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[clientOrderID]
	if !ok {
		return apperrors.ErrNotFound
	}
	o.outcome.Status = domain.OrderRejected
	o.outcome.Reason = reason
	return nil
}

func (b *Brokerage) priceLocked(symbol string) decimal.Decimal {
	price, ok := b.prices[symbol]
	if !ok || !price.IsPositive() {
		return defaultPrice
	}
	return price
}

func (b *Brokerage) fillLocked(o *order) {
	price := b.priceLocked(o.symbol)
	now := b.clock().UTC()
	o.outcome.Status = domain.OrderFilled
	o.outcome.FilledQuantity = o.amount.DivRound(price, 6)
	o.outcome.ExecutedAt = &now
}
