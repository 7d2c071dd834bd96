package repositories

import (
	"context"

	"github.com/SscSPs/roundup_vault/internal/core/domain"
)

// PortfolioRepository stores the last brokerage snapshot per user.
type PortfolioRepository interface {
	// FindPortfolio returns ErrNotFound until the user's first sync.
	FindPortfolio(ctx context.Context, userID string) (*domain.Portfolio, error)

	// SavePortfolio upserts positions by (user, symbol), drops symbols the broker no
	// longer reports and records the cash balance, all at once.
	SavePortfolio(ctx context.Context, portfolio domain.Portfolio) error
}
