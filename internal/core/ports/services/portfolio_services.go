package services

import (
	"context"

	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/SscSPs/roundup_vault/internal/dto"
)

// PortfolioSvc mirrors brokerage holdings for display. It never touches the vault ledger.
type PortfolioSvc interface {
	// GetPortfolio returns the last synced portfolio, or an empty one before the first sync.
	GetPortfolio(ctx context.Context, userID string) (*domain.Portfolio, error)

	// SyncPortfolio pulls the user's positions from the brokerage and stores them.
	SyncPortfolio(ctx context.Context, userID string) (*domain.Portfolio, error)

	// SyncAllPortfolios syncs every user that owns a ledger. Failures are reported per user.
	SyncAllPortfolios(ctx context.Context) (*dto.SyncPortfoliosResponse, error)
}
