package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/roundup_vault/internal/apperrors"
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/SscSPs/roundup_vault/internal/core/ports"
	portsrepo "github.com/SscSPs/roundup_vault/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/roundup_vault/internal/core/ports/services"
	"github.com/SscSPs/roundup_vault/internal/dto"
)

const defaultPageSize = 20

// balanceService folds ledgers into balances and keeps the optional cache in line with the fold.
type balanceService struct {
	BaseService
	ledgerRepo portsrepo.LedgerReader
	cache      ports.BalanceCache
	integrity  portssvc.IntegritySvc
}

// NewBalanceService creates a new balance service. cache may be nil.
func NewBalanceService(ledgerRepo portsrepo.LedgerReader, cache ports.BalanceCache, integrity portssvc.IntegritySvc, options ...Option) portssvc.BalanceSvcFacade {
	return &balanceService{
		BaseService: newBaseService(nil, options),
		ledgerRepo:  ledgerRepo,
		cache:       cache,
		integrity:   integrity,
	}
}

var _ portssvc.BalanceSvcFacade = (*balanceService)(nil)

func (s *balanceService) ComputeBalance(ctx context.Context, userID string, asOf *time.Time) (*domain.VaultBalance, error) {
	at := s.now()
	if asOf != nil {
		at = *asOf
	}

	entries, err := s.ledgerRepo.ListEntriesByUser(ctx, userID)
	if err != nil {
		s.LogError(ctx, err, "Failed to load ledger entries", slog.String("user_id", userID))
		return nil, err
	}

	balance := domain.FoldBalance(userID, entries, at, s.opts.Location)
	if balance.CurrencyCode == "" {
		balance.CurrencyCode = s.opts.DefaultCurrency
	}

	if balance.IsOverdrawn() {
		reason := fmt.Sprintf("raw ledger balance is %s", balance.RawBalance.String())
		if s.integrity != nil {
			s.integrity.PlaceHold(ctx, userID, reason)
		}
		return nil, fmt.Errorf("%w: user %s: %s", apperrors.ErrDataIntegrity, userID, reason)
	}

	return &balance, nil
}

func (s *balanceService) GetBalance(ctx context.Context, userID string) (*domain.VaultBalance, error) {
	now := s.now()
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, userID)
		if err != nil {
			s.GetLogger(ctx).Warn("Balance cache read failed, folding ledger", slog.String("user_id", userID), slog.String("error", err.Error()))
		} else if ok && s.sameMonth(cached.AsOf, now) {
			return cached, nil
		}
	}

	balance, err := s.ComputeBalance(ctx, userID, &now)
	if err != nil {
		return nil, err
	}
	s.storeInCache(ctx, *balance)
	return balance, nil
}

func (s *balanceService) ListEntries(ctx context.Context, userID string, params dto.ListLedgerEntriesParams) (*dto.ListLedgerEntriesResponse, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	entries, nextToken, err := s.ledgerRepo.ListEntriesPage(ctx, userID, limit, params.NextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list ledger entries", slog.String("user_id", userID))
		return nil, err
	}

	return &dto.ListLedgerEntriesResponse{
		Entries:   dto.ToLedgerEntryResponses(entries),
		NextToken: nextToken,
	}, nil
}

func (s *balanceService) ReconcileBalance(ctx context.Context, userID string) (*domain.BalanceReconciliation, error) {
	now := s.now()
	folded, err := s.ComputeBalance(ctx, userID, &now)
	if err != nil {
		return nil, err
	}

	result := &domain.BalanceReconciliation{UserID: userID, Folded: *folded}
	if s.cache == nil {
		return result, nil
	}

	cached, ok, err := s.cache.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: reading balance cache: %v", apperrors.ErrInternal, err)
	}
	if ok {
		result.Cached = cached
		result.Mismatch = !s.sameMonth(cached.AsOf, now) || !cached.SameAs(*folded)
	}

	if result.Mismatch {
		s.GetLogger(ctx).Warn("Cached balance disagrees with ledger",
			slog.String("user_id", userID),
			slog.String("cached_balance", cached.RawBalance.String()),
			slog.String("ledger_balance", folded.RawBalance.String()))
	}
	if !ok || result.Mismatch {
		result.Repaired = s.storeInCache(ctx, *folded) && result.Mismatch
	}
	return result, nil
}

func (s *balanceService) ReconcileAllBalances(ctx context.Context) (*dto.ReconcileBalancesResponse, error) {
	userIDs, err := s.ledgerRepo.ListLedgerUserIDs(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to list ledger users for reconciliation")
		return nil, err
	}

	resp := &dto.ReconcileBalancesResponse{Results: make([]domain.BalanceReconciliation, 0, len(userIDs))}
	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return resp, err
		}
		result, err := s.ReconcileBalance(ctx, userID)
		if err != nil {
			// Integrity failures already placed a hold; keep going for the other users.
			s.LogError(ctx, err, "Balance reconciliation failed", slog.String("user_id", userID))
			continue
		}
		resp.Checked++
		if result.Mismatch {
			resp.Mismatched++
		}
		resp.Results = append(resp.Results, *result)
	}

	s.LogInfo(ctx, "Balance reconciliation finished",
		slog.Int("users", len(userIDs)),
		slog.Int("checked", resp.Checked),
		slog.Int("mismatched", resp.Mismatched))
	return resp, nil
}

func (s *balanceService) RefreshAfterMutation(ctx context.Context, userID string) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, userID); err != nil {
			s.GetLogger(ctx).Warn("Failed to invalidate cached balance", slog.String("user_id", userID), slog.String("error", err.Error()))
		}
	}
	if !s.opts.ReconcileAfterMutation {
		return
	}
	if _, err := s.ReconcileBalance(ctx, userID); err != nil {
		s.LogError(ctx, err, "Post-mutation reconciliation failed", slog.String("user_id", userID))
	}
}

func (s *balanceService) storeInCache(ctx context.Context, balance domain.VaultBalance) bool {
	if s.cache == nil {
		return false
	}
	if err := s.cache.Set(ctx, balance, s.opts.BalanceCacheTTL); err != nil {
		s.GetLogger(ctx).Warn("Failed to cache balance", slog.String("user_id", balance.UserID), slog.String("error", err.Error()))
		return false
	}
	return true
}

func (s *balanceService) sameMonth(a, b time.Time) bool {
	return domain.StartOfMonth(a, s.opts.Location).Equal(domain.StartOfMonth(b, s.opts.Location))
}
