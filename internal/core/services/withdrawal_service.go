package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/roundup_vault/internal/apperrors"
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/SscSPs/roundup_vault/internal/core/ports"
	portsrepo "github.com/SscSPs/roundup_vault/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/roundup_vault/internal/core/ports/services"
	"github.com/SscSPs/roundup_vault/internal/dto"
	"github.com/SscSPs/roundup_vault/internal/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const referencePrefix = "WD"

// withdrawalService reserves, dispatches and settles withdrawals.
type withdrawalService struct {
	BaseService
	withdrawalRepo  portsrepo.WithdrawalRepositoryFacade
	bankAccountRepo portsrepo.BankAccountRepository
	runRepo         portsrepo.SweepRunReader
	balances        portssvc.BalanceSvcFacade
	payouts         ports.PayoutClient
	locker          ports.UserLocker
}

// NewWithdrawalService creates a new withdrawal service.
func NewWithdrawalService(
	repos portsrepo.RepositoryProvider,
	balances portssvc.BalanceSvcFacade,
	payouts ports.PayoutClient,
	locker ports.UserLocker,
	options ...Option,
) portssvc.WithdrawalSvcFacade {
	return &withdrawalService{
		BaseService:     newBaseService(repos.AuditRepo, options),
		withdrawalRepo:  repos.WithdrawalRepo,
		bankAccountRepo: repos.BankAccountRepo,
		runRepo:         repos.SweepRunRepo,
		balances:        balances,
		payouts:         payouts,
		locker:          locker,
	}
}

var _ portssvc.WithdrawalSvcFacade = (*withdrawalService)(nil)

func (s *withdrawalService) RequestWithdrawal(ctx context.Context, userID string, req dto.CreateWithdrawalRequest) (*domain.Withdrawal, error) {
	currency := strings.ToUpper(req.CurrencyCode)
	if currency == "" {
		currency = s.opts.DefaultCurrency
	}
	if err := s.validateRequest(req.Amount, currency); err != nil {
		return nil, err
	}

	account, err := s.bankAccountRepo.FindBankAccountByID(ctx, req.DestinationAccountID)
	if errors.Is(err, apperrors.ErrNotFound) || (err == nil && account.UserID != userID) {
		return nil, fmt.Errorf("%w: destination account %s does not belong to user", apperrors.ErrValidation, req.DestinationAccountID)
	}
	if err != nil {
		return nil, err
	}

	withdrawal, err := s.reserve(ctx, userID, req.Amount, currency, account.BankAccountID)
	if err != nil {
		return nil, err
	}

	return s.dispatch(ctx, withdrawal, *account)
}

func (s *withdrawalService) validateRequest(amount decimal.Decimal, currency string) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: withdrawal amount must be positive", apperrors.ErrValidation)
	}
	if !amount.Equal(domain.RoundToMinor(amount, currency)) {
		return fmt.Errorf("%w: withdrawal amount has more than %d decimal places", apperrors.ErrValidation, domain.MinorUnits(currency))
	}
	if currency != s.opts.DefaultCurrency {
		return fmt.Errorf("%w: vault currency is %s, not %s", apperrors.ErrValidation, s.opts.DefaultCurrency, currency)
	}
	return nil
}

// reserve writes the pending withdrawal and its reservation entry under the user's lock.
func (s *withdrawalService) reserve(ctx context.Context, userID string, amount decimal.Decimal, currency, destinationID string) (*domain.Withdrawal, error) {
	logger := s.GetLogger(ctx).With(slog.String("user_id", userID))

	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: locking vault of user %s: %v", apperrors.ErrConcurrencyConflict, userID, err)
	}
	defer unlock()

	now := s.now()
	balance, err := s.balances.ComputeBalance(ctx, userID, &now)
	if err != nil {
		return nil, err
	}
	committed, err := openSweepCommitments(ctx, s.runRepo, userID)
	if err != nil {
		return nil, err
	}
	available := balance.Balance.Sub(committed)
	if amount.GreaterThan(available) {
		logger.Info("Withdrawal rejected for insufficient funds",
			slog.String("requested", amount.String()),
			slog.String("available", available.String()))
		return nil, fmt.Errorf("%w: requested %s, available %s", apperrors.ErrInsufficientFunds, amount.String(), decimal.Max(available, decimal.Zero).String())
	}

	reference, err := utils.GenerateReferenceNumber(referencePrefix, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInternal, err)
	}

	withdrawal := domain.Withdrawal{
		WithdrawalID:         uuid.NewString(),
		UserID:               userID,
		Amount:               amount,
		CurrencyCode:         currency,
		DestinationAccountID: destinationID,
		Status:               domain.WithdrawalPending,
		ReferenceNumber:      reference,
		InitiatedAt:          now,
	}
	reservation := domain.LedgerEntry{
		EntryID:      uuid.NewString(),
		UserID:       userID,
		Amount:       amount,
		CurrencyCode: currency,
		IsReversal:   true,
		WithdrawalID: domain.StringRef(withdrawal.WithdrawalID),
		CreatedAt:    now,
	}

	if err := s.withdrawalRepo.ReserveWithdrawal(ctx, withdrawal, reservation); err != nil {
		s.LogError(ctx, err, "Failed to reserve withdrawal", slog.String("user_id", userID))
		return nil, err
	}

	s.balances.RefreshAfterMutation(ctx, userID)
	logger.Info("Withdrawal reserved",
		slog.String("withdrawal_id", withdrawal.WithdrawalID),
		slog.String("reference", reference),
		slog.String("amount", amount.String()))
	s.RecordAudit(ctx, userID, domain.AuditWithdrawalReserved, "withdrawal", withdrawal.WithdrawalID, map[string]string{
		"amount":    amount.String(),
		"reference": reference,
	})
	return &withdrawal, nil
}

// dispatch hands a reserved withdrawal to the payout provider. Only an explicit
// rejection fails it; errors and timeouts leave it pending for reconciliation.
func (s *withdrawalService) dispatch(ctx context.Context, w *domain.Withdrawal, account domain.BankAccount) (*domain.Withdrawal, error) {
	logger := s.GetLogger(ctx).With(slog.String("withdrawal_id", w.WithdrawalID))

	pctx, cancel := s.withProviderTimeout(ctx)
	outcome, err := s.payouts.InitiatePayout(pctx, domain.PayoutRequest{
		WithdrawalID:       w.WithdrawalID,
		UserID:             w.UserID,
		Amount:             w.Amount,
		CurrencyCode:       w.CurrencyCode,
		DestinationAccount: account,
		ReferenceNumber:    w.ReferenceNumber,
	})
	cancel()
	if err != nil {
		logger.Warn("Payout initiation did not complete, left pending", slog.String("error", err.Error()))
		return w, nil
	}

	return s.SettleWithdrawal(ctx, w.WithdrawalID, outcome)
}

func (s *withdrawalService) SettleWithdrawal(ctx context.Context, withdrawalID string, outcome domain.PayoutOutcome) (*domain.Withdrawal, error) {
	w, err := s.withdrawalRepo.FindWithdrawalByID(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}

	switch outcome.Status {
	case domain.PayoutInFlight:
		if w.Status != domain.WithdrawalPending {
			return w, nil
		}
		if err := s.withdrawalRepo.MarkWithdrawalProcessing(ctx, withdrawalID, outcome.ProviderReference); err != nil {
			if errors.Is(err, apperrors.ErrConcurrencyConflict) {
				return s.withdrawalRepo.FindWithdrawalByID(ctx, withdrawalID)
			}
			return nil, err
		}
		w.Status = domain.WithdrawalProcessing
		w.ProviderReference = outcome.ProviderReference
		return w, nil

	case domain.PayoutSucceeded:
		switch w.Status {
		case domain.WithdrawalCompleted:
			return w, nil
		case domain.WithdrawalFailed:
			return nil, fmt.Errorf("%w: withdrawal %s already failed", apperrors.ErrConcurrencyConflict, withdrawalID)
		}
		return s.complete(ctx, w, outcome.ProviderReference)

	case domain.PayoutFailed:
		switch w.Status {
		case domain.WithdrawalFailed:
			return w, nil
		case domain.WithdrawalCompleted:
			return nil, fmt.Errorf("%w: withdrawal %s already completed", apperrors.ErrConcurrencyConflict, withdrawalID)
		}
		reason := outcome.Reason
		if reason == "" {
			reason = "payout rejected by provider"
		}
		return s.fail(ctx, w, reason)
	}

	return nil, fmt.Errorf("%w: unknown payout status %q", apperrors.ErrValidation, outcome.Status)
}

func (s *withdrawalService) complete(ctx context.Context, w *domain.Withdrawal, providerReference string) (*domain.Withdrawal, error) {
	now := s.now()
	if providerReference == "" {
		providerReference = w.ProviderReference
	}
	if err := s.withdrawalRepo.CompleteWithdrawal(ctx, w.WithdrawalID, providerReference, now); err != nil {
		if errors.Is(err, apperrors.ErrConcurrencyConflict) {
			return s.settledConcurrently(ctx, w.WithdrawalID, domain.WithdrawalCompleted)
		}
		return nil, err
	}

	w.Status = domain.WithdrawalCompleted
	w.ProviderReference = providerReference
	w.SettledAt = &now
	s.LogInfo(ctx, "Withdrawal completed", slog.String("withdrawal_id", w.WithdrawalID))
	s.RecordAudit(ctx, w.UserID, domain.AuditWithdrawalCompleted, "withdrawal", w.WithdrawalID, map[string]string{"providerReference": providerReference})
	return w, nil
}

// fail marks the withdrawal failed and restores the reserved funds with a compensating credit.
// The original reservation entry is never touched.
func (s *withdrawalService) fail(ctx context.Context, w *domain.Withdrawal, reason string) (*domain.Withdrawal, error) {
	unlock, err := s.locker.Lock(ctx, w.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: locking vault of user %s: %v", apperrors.ErrConcurrencyConflict, w.UserID, err)
	}

	now := s.now()
	compensation := domain.LedgerEntry{
		EntryID:      uuid.NewString(),
		UserID:       w.UserID,
		Amount:       w.Amount,
		CurrencyCode: w.CurrencyCode,
		IsReversal:   false,
		WithdrawalID: domain.StringRef(w.WithdrawalID),
		CreatedAt:    now,
	}
	err = s.withdrawalRepo.FailWithdrawal(ctx, w.WithdrawalID, reason, now, compensation)
	unlock()
	if err != nil {
		if errors.Is(err, apperrors.ErrConcurrencyConflict) {
			return s.settledConcurrently(ctx, w.WithdrawalID, domain.WithdrawalFailed)
		}
		s.LogError(ctx, err, "Failed to fail withdrawal", slog.String("withdrawal_id", w.WithdrawalID))
		return nil, err
	}

	w.Status = domain.WithdrawalFailed
	w.FailureReason = reason
	w.SettledAt = &now

	s.balances.RefreshAfterMutation(ctx, w.UserID)
	s.GetLogger(ctx).Warn("Withdrawal failed, funds restored",
		slog.String("withdrawal_id", w.WithdrawalID),
		slog.String("reason", reason))
	s.RecordAudit(ctx, w.UserID, domain.AuditWithdrawalCompensated, "withdrawal", w.WithdrawalID, map[string]string{
		"amount": w.Amount.String(),
		"reason": reason,
	})
	return w, nil
}

// settledConcurrently resolves a lost race: the same outcome is a no-op, a different one a conflict.
func (s *withdrawalService) settledConcurrently(ctx context.Context, withdrawalID string, wanted domain.WithdrawalStatus) (*domain.Withdrawal, error) {
	current, err := s.withdrawalRepo.FindWithdrawalByID(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}
	if current.Status == wanted {
		return current, nil
	}
	return nil, fmt.Errorf("%w: withdrawal %s is %s", apperrors.ErrConcurrencyConflict, withdrawalID, current.Status)
}

func (s *withdrawalService) ReconcilePendingWithdrawals(ctx context.Context, now time.Time) ([]domain.Withdrawal, error) {
	open, err := s.withdrawalRepo.ListWithdrawalsByStatus(ctx, domain.WithdrawalPending, domain.WithdrawalProcessing)
	if err != nil {
		return nil, err
	}

	changed := make([]domain.Withdrawal, 0)
	for i := range open {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		w := open[i]
		updated, err := s.reconcileOne(ctx, &w, now)
		if err != nil {
			s.LogError(ctx, err, "Withdrawal reconciliation failed", slog.String("withdrawal_id", w.WithdrawalID))
			continue
		}
		if updated != nil && updated.Status != open[i].Status {
			changed = append(changed, *updated)
		}
	}

	s.LogInfo(ctx, "Withdrawal reconciliation finished",
		slog.Int("open", len(open)),
		slog.Int("changed", len(changed)))
	return changed, nil
}

func (s *withdrawalService) reconcileOne(ctx context.Context, w *domain.Withdrawal, now time.Time) (*domain.Withdrawal, error) {
	expired := now.Sub(w.InitiatedAt) > s.opts.WithdrawalSLA

	pctx, cancel := s.withProviderTimeout(ctx)
	outcome, err := s.payouts.GetPayoutStatus(pctx, w.WithdrawalID)
	cancel()

	switch {
	case err == nil && outcome.Status != domain.PayoutInFlight:
		return s.SettleWithdrawal(ctx, w.WithdrawalID, outcome)
	case expired:
		return s.fail(ctx, w, fmt.Sprintf("not settled within %s", s.opts.WithdrawalSLA))
	case err == nil:
		return s.SettleWithdrawal(ctx, w.WithdrawalID, outcome)
	case errors.Is(err, apperrors.ErrNotFound) && w.Status == domain.WithdrawalPending:
		// The provider never received it; the withdrawal id is the idempotency key.
		account, findErr := s.bankAccountRepo.FindBankAccountByID(ctx, w.DestinationAccountID)
		if findErr != nil {
			return nil, findErr
		}
		return s.dispatch(ctx, w, *account)
	default:
		return w, err
	}
}

func (s *withdrawalService) GetWithdrawal(ctx context.Context, userID, withdrawalID string) (*domain.Withdrawal, error) {
	w, err := s.withdrawalRepo.FindWithdrawalByID(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}
	if w.UserID != userID {
		return nil, apperrors.ErrNotFound
	}
	return w, nil
}

func (s *withdrawalService) ListWithdrawals(ctx context.Context, userID string, limit int) ([]domain.Withdrawal, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	return s.withdrawalRepo.ListWithdrawalsByUser(ctx, userID, limit)
}
