package services

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/SscSPs/roundup_vault/internal/apperrors"
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/SscSPs/roundup_vault/internal/core/ports"
	portsrepo "github.com/SscSPs/roundup_vault/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/roundup_vault/internal/core/ports/services"
	"github.com/SscSPs/roundup_vault/internal/dto"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// portfolioService keeps a local copy of each user's brokerage holdings.
type portfolioService struct {
	BaseService
	portfolioRepo portsrepo.PortfolioRepository
	ledgerRepo    portsrepo.LedgerReader
	broker        ports.BrokerageClient
}

// NewPortfolioService creates a new portfolio service.
func NewPortfolioService(repos portsrepo.RepositoryProvider, broker ports.BrokerageClient, options ...Option) portssvc.PortfolioSvc {
	return &portfolioService{
		BaseService:   newBaseService(repos.AuditRepo, options),
		portfolioRepo: repos.PortfolioRepo,
		ledgerRepo:    repos.LedgerRepo,
		broker:        broker,
	}
}

var _ portssvc.PortfolioSvc = (*portfolioService)(nil)

func (s *portfolioService) GetPortfolio(ctx context.Context, userID string) (*domain.Portfolio, error) {
	portfolio, err := s.portfolioRepo.FindPortfolio(ctx, userID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return &domain.Portfolio{
			UserID:       userID,
			Positions:    []domain.Position{},
			CashBalance:  decimal.Zero,
			CurrencyCode: s.opts.DefaultCurrency,
		}, nil
	}
	if err != nil {
		s.LogError(ctx, err, "Failed to load portfolio", slog.String("user_id", userID))
		return nil, err
	}
	return portfolio, nil
}

func (s *portfolioService) SyncPortfolio(ctx context.Context, userID string) (*domain.Portfolio, error) {
	callCtx, cancel := s.withProviderTimeout(ctx)
	snapshot, err := s.broker.GetPositions(callCtx, userID)
	cancel()
	if err != nil {
		s.LogError(ctx, err, "Failed to fetch positions from brokerage", slog.String("user_id", userID))
		return nil, err
	}

	now := s.now()
	currency := strings.ToUpper(snapshot.CurrencyCode)
	if currency == "" {
		currency = s.opts.DefaultCurrency
	}
	portfolio := domain.Portfolio{
		UserID:       userID,
		Positions:    make([]domain.Position, 0, len(snapshot.Positions)),
		CashBalance:  snapshot.CashBalance,
		CurrencyCode: currency,
		SyncedAt:     &now,
	}
	for _, pos := range snapshot.Positions {
		// Closed positions are dropped so the stored copy prunes them.
		if !pos.Quantity.IsPositive() {
			continue
		}
		pos.UserID = userID
		if pos.CurrencyCode == "" {
			pos.CurrencyCode = currency
		}
		if pos.InstrumentName == "" {
			pos.InstrumentName = domain.InstrumentName(pos.InstrumentSymbol)
		}
		pos.UpdatedAt = now
		portfolio.Positions = append(portfolio.Positions, pos)
	}

	if err := s.portfolioRepo.SavePortfolio(ctx, portfolio); err != nil {
		s.LogError(ctx, err, "Failed to save portfolio", slog.String("user_id", userID))
		return nil, err
	}

	s.LogDebug(ctx, "Portfolio synced",
		slog.String("user_id", userID),
		slog.Int("positions", len(portfolio.Positions)),
		slog.String("total_value", portfolio.TotalValue().String()))
	return &portfolio, nil
}

func (s *portfolioService) SyncAllPortfolios(ctx context.Context) (*dto.SyncPortfoliosResponse, error) {
	userIDs, err := s.ledgerRepo.ListLedgerUserIDs(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to list ledger users for portfolio sync")
		return nil, err
	}
	sort.Strings(userIDs)

	resp := &dto.SyncPortfoliosResponse{Errors: map[string]string{}}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(s.opts.SweepParallelism)
	for _, userID := range userIDs {
		userID := userID
		g.Go(func() error {
			_, err := s.SyncPortfolio(ctx, userID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				resp.Failed++
				resp.Errors[userID] = err.Error()
				return nil
			}
			resp.Synced++
			return nil
		})
	}
	_ = g.Wait()

	s.LogInfo(ctx, "Portfolio sync finished",
		slog.Int("users", len(userIDs)),
		slog.Int("synced", resp.Synced),
		slog.Int("failed", resp.Failed))
	return resp, nil
}
