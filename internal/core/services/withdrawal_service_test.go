package services_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/roundup_vault/internal/adapters/providers/sandbox"
	"github.com/SscSPs/roundup_vault/internal/apperrors"
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/SscSPs/roundup_vault/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fundedEngine(t *testing.T, amount string) *engine {
	t.Helper()
	e := newEngine(t)
	e.registerAccount(testUser, testAccount)
	e.fund(testUser, amount)
	return e
}

func withdraw(amount string) dto.CreateWithdrawalRequest {
	return dto.CreateWithdrawalRequest{Amount: dec(amount), DestinationAccountID: testAccount}
}

func withdrawalNet(t *testing.T, e *engine, withdrawalID string) decimal.Decimal {
	t.Helper()
	entries, err := e.store.ListEntriesByUser(context.Background(), testUser)
	require.NoError(t, err)
	sum := decimal.Zero
	for _, entry := range entries {
		if entry.WithdrawalID != nil && *entry.WithdrawalID == withdrawalID {
			sum = sum.Add(entry.SignedAmount())
		}
	}
	return sum
}

func TestWithdrawal_ReserveAndDispatch(t *testing.T) {
	e := fundedEngine(t, "20")

	w, err := e.svc.Withdrawal.RequestWithdrawal(context.Background(), testUser, withdraw("5"))
	require.NoError(t, err)

	assert.Equal(t, domain.WithdrawalProcessing, w.Status)
	assert.NotEmpty(t, w.ProviderReference)
	assert.True(t, strings.HasPrefix(w.ReferenceNumber, "WD-"))
	assert.Equal(t, "EUR", w.CurrencyCode)
	assert.True(t, e.balance(testUser).Balance.Equal(dec("15")))
	assert.True(t, withdrawalNet(t, e, w.WithdrawalID).Equal(dec("-5")))
}

func TestWithdrawal_InsufficientFunds(t *testing.T) {
	e := fundedEngine(t, "20")

	_, err := e.svc.Withdrawal.RequestWithdrawal(context.Background(), testUser, withdraw("20.01"))

	assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
	assert.Equal(t, 1, e.balance(testUser).EntryCount)
	assert.Equal(t, 0, e.payouts.Calls())
}

func TestWithdrawal_Validation(t *testing.T) {
	e := fundedEngine(t, "20")
	e.registerAccount("user-2", "bank-2")
	ctx := context.Background()

	cases := []struct {
		name string
		req  dto.CreateWithdrawalRequest
	}{
		{"zero amount", withdraw("0")},
		{"negative amount", withdraw("-1")},
		{"sub-cent amount", withdraw("1.234")},
		{"foreign currency", dto.CreateWithdrawalRequest{Amount: dec("1"), CurrencyCode: "USD", DestinationAccountID: testAccount}},
		{"unknown account", dto.CreateWithdrawalRequest{Amount: dec("1"), DestinationAccountID: "missing"}},
		{"other user's account", dto.CreateWithdrawalRequest{Amount: dec("1"), DestinationAccountID: "bank-2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.svc.Withdrawal.RequestWithdrawal(ctx, testUser, tc.req)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
	assert.Equal(t, 1, e.balance(testUser).EntryCount)
}

func TestWithdrawal_ConcurrentRequestsNeverOverdraw(t *testing.T) {
	e := fundedEngine(t, "10")
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		refused   int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.svc.Withdrawal.RequestWithdrawal(ctx, testUser, withdraw("1.50"))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds) {
				refused++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 6, succeeded)
	assert.Equal(t, 14, refused)
	b := e.balance(testUser)
	assert.True(t, b.RawBalance.Equal(dec("1.00")))
}

func TestWithdrawal_FailureCompensationNetsZero(t *testing.T) {
	e := fundedEngine(t, "20")
	ctx := context.Background()
	w, err := e.svc.Withdrawal.RequestWithdrawal(ctx, testUser, withdraw("5"))
	require.NoError(t, err)

	failed, err := e.svc.Withdrawal.SettleWithdrawal(ctx, w.WithdrawalID, domain.PayoutOutcome{Status: domain.PayoutFailed, Reason: "account closed"})
	require.NoError(t, err)

	assert.Equal(t, domain.WithdrawalFailed, failed.Status)
	assert.Equal(t, "account closed", failed.FailureReason)
	assert.NotNil(t, failed.SettledAt)
	assert.True(t, withdrawalNet(t, e, w.WithdrawalID).IsZero())
	assert.True(t, e.balance(testUser).Balance.Equal(dec("20")))
	assert.Equal(t, 3, e.balance(testUser).EntryCount)

	// Same outcome again is a no-op; a conflicting one is refused.
	_, err = e.svc.Withdrawal.SettleWithdrawal(ctx, w.WithdrawalID, domain.PayoutOutcome{Status: domain.PayoutFailed})
	require.NoError(t, err)
	assert.Equal(t, 3, e.balance(testUser).EntryCount)

	_, err = e.svc.Withdrawal.SettleWithdrawal(ctx, w.WithdrawalID, domain.PayoutOutcome{Status: domain.PayoutSucceeded})
	assert.ErrorIs(t, err, apperrors.ErrConcurrencyConflict)
}

func TestWithdrawal_SuccessIsFinal(t *testing.T) {
	e := fundedEngine(t, "20")
	ctx := context.Background()
	w, err := e.svc.Withdrawal.RequestWithdrawal(ctx, testUser, withdraw("5"))
	require.NoError(t, err)

	done, err := e.svc.Withdrawal.SettleWithdrawal(ctx, w.WithdrawalID, domain.PayoutOutcome{Status: domain.PayoutSucceeded, ProviderReference: "bank-ref"})
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalCompleted, done.Status)
	assert.Equal(t, "bank-ref", done.ProviderReference)

	_, err = e.svc.Withdrawal.SettleWithdrawal(ctx, w.WithdrawalID, domain.PayoutOutcome{Status: domain.PayoutSucceeded})
	require.NoError(t, err)
	_, err = e.svc.Withdrawal.SettleWithdrawal(ctx, w.WithdrawalID, domain.PayoutOutcome{Status: domain.PayoutFailed})
	assert.ErrorIs(t, err, apperrors.ErrConcurrencyConflict)

	assert.True(t, e.balance(testUser).Balance.Equal(dec("15")))
}

func TestWithdrawal_ProviderRejection(t *testing.T) {
	e := fundedEngine(t, "20")
	e.payouts.SetBehavior(sandbox.Reject)

	w, err := e.svc.Withdrawal.RequestWithdrawal(context.Background(), testUser, withdraw("5"))
	require.NoError(t, err)

	assert.Equal(t, domain.WithdrawalFailed, w.Status)
	assert.NotEmpty(t, w.FailureReason)
	assert.True(t, e.balance(testUser).Balance.Equal(dec("20")))
}

func TestWithdrawal_TimeoutStaysPendingUntilReconciled(t *testing.T) {
	e := fundedEngine(t, "20")
	ctx := context.Background()
	e.payouts.SetBehavior(sandbox.Hang)

	w, err := e.svc.Withdrawal.RequestWithdrawal(ctx, testUser, withdraw("5"))
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalPending, w.Status)
	assert.True(t, e.balance(testUser).Balance.Equal(dec("15")))

	// The provider never saw it, so reconciliation dispatches again.
	e.payouts.SetBehavior(sandbox.Accept)
	changed, err := e.svc.Withdrawal.ReconcilePendingWithdrawals(ctx, e.clock())
	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.Equal(t, domain.WithdrawalProcessing, changed[0].Status)

	require.NoError(t, e.payouts.Resolve(w.WithdrawalID, domain.PayoutSucceeded, ""))
	changed, err = e.svc.Withdrawal.ReconcilePendingWithdrawals(ctx, e.clock())
	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.Equal(t, domain.WithdrawalCompleted, changed[0].Status)
	assert.True(t, e.balance(testUser).Balance.Equal(dec("15")))
}

func TestWithdrawal_SLAExpiryFailsAndCompensates(t *testing.T) {
	e := fundedEngine(t, "20")
	ctx := context.Background()
	e.payouts.SetBehavior(sandbox.Fail)

	w, err := e.svc.Withdrawal.RequestWithdrawal(ctx, testUser, withdraw("5"))
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalPending, w.Status)

	e.advance(73 * time.Hour)
	changed, err := e.svc.Withdrawal.ReconcilePendingWithdrawals(ctx, e.clock())
	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.Equal(t, domain.WithdrawalFailed, changed[0].Status)
	assert.True(t, withdrawalNet(t, e, w.WithdrawalID).IsZero())
}

func TestWithdrawal_OpenSweepRunsAreCommitted(t *testing.T) {
	e := fundedEngine(t, "20")
	ctx := context.Background()
	require.NoError(t, e.store.CreateSweepRun(ctx, domain.SweepRun{
		SweepRunID:   "run-1",
		UserID:       testUser,
		ScheduledFor: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Amount:       dec("15"),
		CurrencyCode: "EUR",
		Status:       domain.SweepProcessing,
	}))

	_, err := e.svc.Withdrawal.RequestWithdrawal(ctx, testUser, withdraw("10"))
	assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)

	_, err = e.svc.Withdrawal.RequestWithdrawal(ctx, testUser, withdraw("5"))
	assert.NoError(t, err)
}

func TestWithdrawal_ReadsAreScopedToOwner(t *testing.T) {
	e := fundedEngine(t, "20")
	ctx := context.Background()
	w, err := e.svc.Withdrawal.RequestWithdrawal(ctx, testUser, withdraw("5"))
	require.NoError(t, err)

	got, err := e.svc.Withdrawal.GetWithdrawal(ctx, testUser, w.WithdrawalID)
	require.NoError(t, err)
	assert.Equal(t, w.ReferenceNumber, got.ReferenceNumber)

	_, err = e.svc.Withdrawal.GetWithdrawal(ctx, "user-2", w.WithdrawalID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	list, err := e.svc.Withdrawal.ListWithdrawals(ctx, testUser, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
