package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/roundup_vault/internal/apperrors"
	"github.com/SscSPs/roundup_vault/internal/core/domain"
)

func (s *Store) FindWithdrawalByID(ctx context.Context, withdrawalID string) (*domain.Withdrawal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.withdrawals[withdrawalID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &w, nil
}

func (s *Store) ListWithdrawalsByUser(ctx context.Context, userID string, limit int) ([]domain.Withdrawal, error) {
	out := s.filterWithdrawals(func(w domain.Withdrawal) bool { return w.UserID == userID })
	sort.Slice(out, func(i, j int) bool { return out[i].InitiatedAt.After(out[j].InitiatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListWithdrawalsByStatus(ctx context.Context, statuses ...domain.WithdrawalStatus) ([]domain.Withdrawal, error) {
	out := s.filterWithdrawals(func(w domain.Withdrawal) bool {
		for _, st := range statuses {
			if w.Status == st {
				return true
			}
		}
		return false
	})
	sort.Slice(out, func(i, j int) bool { return out[i].InitiatedAt.Before(out[j].InitiatedAt) })
	return out, nil
}

func (s *Store) filterWithdrawals(keep func(domain.Withdrawal) bool) []domain.Withdrawal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Withdrawal, 0)
	for _, w := range s.withdrawals {
		if keep(w) {
			out = append(out, w)
		}
	}
	return out
}

func (s *Store) ReserveWithdrawal(ctx context.Context, withdrawal domain.Withdrawal, reservation domain.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.withdrawals[withdrawal.WithdrawalID]; ok {
		return apperrors.ErrDuplicate
	}
	if s.rawBalanceLocked(withdrawal.UserID).Sub(reservation.Amount).IsNegative() {
		return fmt.Errorf("%w: reservation of %s would overdraw vault of user %s",
			apperrors.ErrConcurrencyConflict, reservation.Amount.String(), withdrawal.UserID)
	}
	if err := s.appendLocked(reservation); err != nil {
		return err
	}
	s.withdrawals[withdrawal.WithdrawalID] = withdrawal
	return nil
}

func (s *Store) MarkWithdrawalProcessing(ctx context.Context, withdrawalID, providerReference string) error {
	return s.transitionWithdrawal(withdrawalID, func(w *domain.Withdrawal) error {
		if w.Status != domain.WithdrawalPending {
			return fmt.Errorf("%w: withdrawal %s is %s", apperrors.ErrConcurrencyConflict, withdrawalID, w.Status)
		}
		w.Status = domain.WithdrawalProcessing
		w.ProviderReference = providerReference
		return nil
	})
}

func (s *Store) CompleteWithdrawal(ctx context.Context, withdrawalID, providerReference string, settledAt time.Time) error {
	return s.transitionWithdrawal(withdrawalID, func(w *domain.Withdrawal) error {
		if w.Status.IsTerminal() {
			return fmt.Errorf("%w: withdrawal %s is %s", apperrors.ErrConcurrencyConflict, withdrawalID, w.Status)
		}
		w.Status = domain.WithdrawalCompleted
		if providerReference != "" {
			w.ProviderReference = providerReference
		}
		w.SettledAt = &settledAt
		return nil
	})
}

func (s *Store) FailWithdrawal(ctx context.Context, withdrawalID, reason string, settledAt time.Time, compensation domain.LedgerEntry) error {
	return s.transitionWithdrawal(withdrawalID, func(w *domain.Withdrawal) error {
		if w.Status.IsTerminal() {
			return fmt.Errorf("%w: withdrawal %s is %s", apperrors.ErrConcurrencyConflict, withdrawalID, w.Status)
		}
		if err := s.appendLocked(compensation); err != nil {
			return err
		}
		w.Status = domain.WithdrawalFailed
		w.FailureReason = reason
		w.SettledAt = &settledAt
		return nil
	})
}

func (s *Store) transitionWithdrawal(withdrawalID string, apply func(*domain.Withdrawal) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.withdrawals[withdrawalID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if err := apply(&w); err != nil {
		return err
	}
	s.withdrawals[withdrawalID] = w
	return nil
}
