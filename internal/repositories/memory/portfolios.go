package memory

import (
	"context"
	"sort"

	"github.com/SscSPs/roundup_vault/internal/apperrors"
	"github.com/SscSPs/roundup_vault/internal/core/domain"
)

func (s *Store) FindPortfolio(ctx context.Context, userID string) (*domain.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.portfolios[userID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	out := p
	out.Positions = append([]domain.Position(nil), p.Positions...)
	return &out, nil
}

func (s *Store) SavePortfolio(ctx context.Context, portfolio domain.Portfolio) error {
	positions := append([]domain.Position(nil), portfolio.Positions...)
	sort.Slice(positions, func(i, j int) bool { return positions[i].InstrumentSymbol < positions[j].InstrumentSymbol })
	portfolio.Positions = positions

	s.mu.Lock()
	defer s.mu.Unlock()
	s.portfolios[portfolio.UserID] = portfolio
	return nil
}
