package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SscSPs/roundup_vault/internal/apperrors"
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/SscSPs/roundup_vault/internal/core/ports"
	portsrepo "github.com/SscSPs/roundup_vault/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/roundup_vault/internal/core/ports/services"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// roundUpService computes round-up credits and their reversals.
type roundUpService struct {
	BaseService
	ledgerRepo   portsrepo.LedgerRepositoryFacade
	settingsRepo portsrepo.SweepSettingsRepository
	merchantRepo portsrepo.MerchantExclusionRepository
	runRepo      portsrepo.SweepRunReader
	locker       ports.UserLocker
	balances     portssvc.BalanceReconcilerSvc
	integrity    portssvc.IntegritySvc
}

// NewRoundUpService creates a new round-up service.
func NewRoundUpService(
	repos portsrepo.RepositoryProvider,
	locker ports.UserLocker,
	balances portssvc.BalanceReconcilerSvc,
	integrity portssvc.IntegritySvc,
	options ...Option,
) portssvc.RoundUpSvc {
	return &roundUpService{
		BaseService:  newBaseService(repos.AuditRepo, options),
		ledgerRepo:   repos.LedgerRepo,
		settingsRepo: repos.SweepSettingsRepo,
		merchantRepo: repos.MerchantRepo,
		runRepo:      repos.SweepRunRepo,
		locker:       locker,
		balances:     balances,
		integrity:    integrity,
	}
}

var _ portssvc.RoundUpSvc = (*roundUpService)(nil)

func (s *roundUpService) ProcessRoundUp(ctx context.Context, txn domain.Transaction) (*domain.LedgerEntry, error) {
	logger := s.GetLogger(ctx).With(
		slog.String("user_id", txn.UserID),
		slog.String("transaction_id", txn.TransactionID))

	if !txn.QualifiesForRoundUp() {
		logger.Debug("Transaction does not qualify for round-up")
		return nil, nil
	}
	if !strings.EqualFold(txn.CurrencyCode, s.opts.DefaultCurrency) {
		logger.Info("Skipping round-up for foreign currency transaction", slog.String("currency", txn.CurrencyCode))
		return nil, nil
	}

	excluded, err := s.isExcluded(ctx, txn)
	if err != nil {
		return nil, err
	}
	if excluded {
		logger.Debug("Transaction category or merchant is excluded")
		return nil, nil
	}

	roundUp := domain.ComputeRoundUp(txn.Amount, txn.CurrencyCode)
	if roundUp.IsZero() {
		return nil, nil
	}

	unlock, err := s.locker.Lock(ctx, txn.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: locking vault of user %s: %v", apperrors.ErrConcurrencyConflict, txn.UserID, err)
	}
	defer unlock()

	entries, err := s.ledgerRepo.ListEntriesByUser(ctx, txn.UserID)
	if err != nil {
		return nil, err
	}

	switch live := domain.LiveRoundUpCount(entries, txn.TransactionID); {
	case live == 1:
		logger.Debug("Round-up already credited")
		return nil, nil
	case live != 0:
		return nil, s.integrityViolation(ctx, txn, live)
	}

	settings, err := s.settingsFor(ctx, txn.UserID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	balance := domain.FoldBalance(txn.UserID, entries, now, s.opts.Location)
	amount := domain.ApplyMonthlyCap(roundUp, balance.MonthToDateAccrual, settings.MonthlyCap)
	if !amount.IsPositive() {
		logger.Info("Monthly cap reached, round-up dropped",
			slog.String("round_up", roundUp.String()),
			slog.String("monthly_cap", settings.MonthlyCap.String()))
		return nil, nil
	}

	entry := domain.LedgerEntry{
		EntryID:       uuid.NewString(),
		UserID:        txn.UserID,
		Amount:        amount,
		CurrencyCode:  strings.ToUpper(txn.CurrencyCode),
		IsReversal:    false,
		TransactionID: domain.StringRef(txn.TransactionID),
		CreatedAt:     now,
	}
	if err := entry.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	if err := s.ledgerRepo.AppendTransactionEntry(ctx, entry, 0); err != nil {
		if errors.Is(err, apperrors.ErrConcurrencyConflict) {
			logger.Warn("Round-up credited concurrently, skipping")
			return nil, nil
		}
		s.LogError(ctx, err, "Failed to append round-up entry", slog.String("transaction_id", txn.TransactionID))
		return nil, err
	}

	s.balances.RefreshAfterMutation(ctx, txn.UserID)
	logger.Info("Round-up credited", slog.String("amount", amount.String()))
	return &entry, nil
}

func (s *roundUpService) ReverseRoundUp(ctx context.Context, txn domain.Transaction) (*domain.LedgerEntry, error) {
	logger := s.GetLogger(ctx).With(
		slog.String("user_id", txn.UserID),
		slog.String("transaction_id", txn.TransactionID))

	unlock, err := s.locker.Lock(ctx, txn.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: locking vault of user %s: %v", apperrors.ErrConcurrencyConflict, txn.UserID, err)
	}
	defer unlock()

	entries, err := s.ledgerRepo.ListEntriesByUser(ctx, txn.UserID)
	if err != nil {
		return nil, err
	}

	switch live := domain.LiveRoundUpCount(entries, txn.TransactionID); {
	case live == 0:
		return nil, nil
	case live != 1:
		return nil, s.integrityViolation(ctx, txn, live)
	}

	amount := domain.LiveRoundUpAmount(entries, txn.TransactionID)

	// A credit that was already swept or withdrawn stays; only funds still in
	// the vault and not promised to an open sweep run can be taken back.
	balance := domain.FoldBalance(txn.UserID, entries, s.now(), s.opts.Location)
	available, err := uncommittedBalance(ctx, s.runRepo, &balance)
	if err != nil {
		return nil, err
	}
	if available.LessThan(amount) {
		logger.Info("Round-up already left the vault, credit retained",
			slog.String("amount", amount.String()),
			slog.String("available", available.String()))
		s.RecordAudit(ctx, txn.UserID, domain.AuditRoundUpRetained, "transaction", txn.TransactionID, map[string]string{
			"amount":    amount.String(),
			"available": decimal.Max(available, decimal.Zero).String(),
		})
		return nil, nil
	}

	entry := domain.LedgerEntry{
		EntryID:       uuid.NewString(),
		UserID:        txn.UserID,
		Amount:        amount,
		CurrencyCode:  strings.ToUpper(txn.CurrencyCode),
		IsReversal:    true,
		TransactionID: domain.StringRef(txn.TransactionID),
		CreatedAt:     s.now(),
	}
	if err := entry.Validate(); err != nil {
		return nil, s.integrityViolation(ctx, txn, 1)
	}

	if err := s.ledgerRepo.AppendTransactionEntry(ctx, entry, 1); err != nil {
		s.LogError(ctx, err, "Failed to append round-up reversal", slog.String("transaction_id", txn.TransactionID))
		return nil, err
	}

	s.balances.RefreshAfterMutation(ctx, txn.UserID)
	logger.Info("Round-up reversed", slog.String("amount", amount.String()))
	return &entry, nil
}

func (s *roundUpService) isExcluded(ctx context.Context, txn domain.Transaction) (bool, error) {
	var merchants []domain.ExcludedMerchant
	if s.merchantRepo != nil && txn.MerchantName != "" {
		var err error
		merchants, err = s.merchantRepo.ListExcludedMerchants(ctx, txn.UserID)
		if err != nil {
			return false, err
		}
	}
	policy := domain.NewExclusionPolicy(s.opts.ExcludedCategories, merchants)
	return policy.Excludes(txn.Category, txn.MerchantName), nil
}

func (s *roundUpService) settingsFor(ctx context.Context, userID string) (domain.SweepSettings, error) {
	settings, err := s.settingsRepo.FindSweepSettings(ctx, userID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return domain.DefaultSweepSettings(userID), nil
	}
	if err != nil {
		return domain.SweepSettings{}, err
	}
	return *settings, nil
}

func (s *roundUpService) integrityViolation(ctx context.Context, txn domain.Transaction, live int) error {
	reason := fmt.Sprintf("transaction %s has %d live round-up entries", txn.TransactionID, live)
	s.integrity.PlaceHold(ctx, txn.UserID, reason)
	return fmt.Errorf("%w: %s", apperrors.ErrDataIntegrity, reason)
}
