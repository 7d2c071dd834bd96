package sandbox_test

import (
	"context"
	"testing"
	"time"

	"github.com/SscSPs/roundup_vault/internal/adapters/providers/sandbox"
	"github.com/SscSPs/roundup_vault/internal/apperrors"
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerage_IdempotentByClientOrderID(t *testing.T) {
	broker := sandbox.NewBrokerage()
	broker.SetPrice("VTI", decimal.NewFromInt(250))
	req := domain.OrderRequest{Symbol: "VTI", Amount: decimal.RequireFromString("0.50"), CurrencyCode: "EUR", ClientOrderID: "run-1-vti"}

	first, err := broker.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	second, err := broker.PlaceOrder(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, domain.OrderFilled, first.Status)
	assert.Equal(t, first.ExternalOrderID, second.ExternalOrderID)
	assert.True(t, first.FilledQuantity.Equal(decimal.RequireFromString("0.002")))
	assert.Equal(t, 2, broker.Calls())
}

func TestBrokerage_AcceptThenFill(t *testing.T) {
	broker := sandbox.NewBrokerage()
	broker.SetSymbolBehavior("AGG", sandbox.Accept)

	outcome, err := broker.PlaceOrder(context.Background(), domain.OrderRequest{Symbol: "AGG", Amount: decimal.NewFromInt(1), ClientOrderID: "c-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, outcome.Status)

	require.NoError(t, broker.FillOrder("c-1"))
	outcome, err = broker.GetOrder(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderFilled, outcome.Status)

	_, err = broker.GetOrder(context.Background(), "unknown")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestBrokerage_HangHonoursDeadline(t *testing.T) {
	broker := sandbox.NewBrokerage()
	broker.SetBehavior(sandbox.Hang)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := broker.PlaceOrder(ctx, domain.OrderRequest{Symbol: "VTI", ClientOrderID: "c-1"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = broker.GetOrder(context.Background(), "c-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestBrokerage_GetPositionsAggregatesFills(t *testing.T) {
	broker := sandbox.NewBrokerage()
	broker.SetPrice("VTI", decimal.NewFromInt(200))
	broker.SetSymbolBehavior("AGG", sandbox.Accept)
	broker.SetCash("user-1", decimal.RequireFromString("0.03"))
	ctx := context.Background()

	place := func(userID, symbol, amount, id string) {
		_, err := broker.PlaceOrder(ctx, domain.OrderRequest{UserID: userID, Symbol: symbol, Amount: decimal.RequireFromString(amount), CurrencyCode: "EUR", ClientOrderID: id})
		require.NoError(t, err)
	}
	place("user-1", "VTI", "1.00", "c-1")
	place("user-1", "VTI", "3.00", "c-2")
	place("user-1", "AGG", "2.00", "c-3")
	place("user-2", "VTI", "9.00", "c-4")

	broker.SetPrice("VTI", decimal.NewFromInt(250))
	snapshot, err := broker.GetPositions(ctx, "user-1")
	require.NoError(t, err)

	assert.Equal(t, "EUR", snapshot.CurrencyCode)
	assert.True(t, snapshot.CashBalance.Equal(decimal.RequireFromString("0.03")))
	require.Len(t, snapshot.Positions, 1, "unfilled orders are not holdings")
	vti := snapshot.Positions[0]
	assert.Equal(t, "VTI", vti.InstrumentSymbol)
	assert.Equal(t, "Vanguard Total Stock Market ETF", vti.InstrumentName)
	assert.True(t, vti.Quantity.Equal(decimal.RequireFromString("0.02")))
	assert.True(t, vti.AverageCost.Equal(decimal.NewFromInt(200)))
	assert.True(t, vti.CurrentValue.Equal(decimal.NewFromInt(5)))

	require.NoError(t, broker.FillOrder("c-3"))
	snapshot, err = broker.GetPositions(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, snapshot.Positions, 2)
	assert.Equal(t, "AGG", snapshot.Positions[0].InstrumentSymbol)
}

func TestBrokerage_GetPositionsUnavailable(t *testing.T) {
	broker := sandbox.NewBrokerage()
	broker.SetBehavior(sandbox.Fail)

	_, err := broker.GetPositions(context.Background(), "user-1")

	assert.ErrorIs(t, err, apperrors.ErrExternalProvider)
}

func TestPayouts_Lifecycle(t *testing.T) {
	payouts := sandbox.NewPayouts()
	req := domain.PayoutRequest{WithdrawalID: "wd-1", Amount: decimal.NewFromInt(5)}

	outcome, err := payouts.InitiatePayout(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutInFlight, outcome.Status)
	assert.NotEmpty(t, outcome.ProviderReference)

	require.NoError(t, payouts.Resolve("wd-1", domain.PayoutSucceeded, ""))
	outcome, err = payouts.GetPayoutStatus(context.Background(), "wd-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutSucceeded, outcome.Status)
}

func TestPayouts_Reject(t *testing.T) {
	payouts := sandbox.NewPayouts()
	payouts.SetBehavior(sandbox.Reject)

	outcome, err := payouts.InitiatePayout(context.Background(), domain.PayoutRequest{WithdrawalID: "wd-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutFailed, outcome.Status)
	assert.NotEmpty(t, outcome.Reason)
}
