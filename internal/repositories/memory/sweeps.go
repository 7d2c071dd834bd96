package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/roundup_vault/internal/apperrors"
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/shopspring/decimal"
)

const dateKeyLayout = "2006-01-02"

func (s *Store) FindSweepSettings(ctx context.Context, userID string) (*domain.SweepSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settings, ok := s.settings[userID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &settings, nil
}

func (s *Store) UpsertSweepSettings(ctx context.Context, settings domain.SweepSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.settings[settings.UserID]; ok {
		// Holds are owned by Place/ClearIntegrityHold.
		settings.HaltedAt = existing.HaltedAt
		settings.HaltReason = existing.HaltReason
		settings.CreatedAt = existing.CreatedAt
	}
	s.settings[settings.UserID] = settings
	return nil
}

func (s *Store) ListSweepSettings(ctx context.Context) ([]domain.SweepSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.SweepSettings, 0, len(s.settings))
	for _, v := range s.settings {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *Store) PlaceIntegrityHold(ctx context.Context, userID, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings, ok := s.settings[userID]
	if !ok {
		settings = domain.DefaultSweepSettings(userID)
		settings.CreatedAt = at
	}
	if settings.HaltedAt == nil {
		settings.HaltedAt = &at
	}
	settings.HaltReason = reason
	settings.UpdatedAt = at
	s.settings[userID] = settings
	return nil
}

func (s *Store) ClearIntegrityHold(ctx context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings, ok := s.settings[userID]
	if !ok {
		return apperrors.ErrNotFound
	}
	settings.HaltedAt = nil
	settings.HaltReason = ""
	settings.UpdatedAt = at
	s.settings[userID] = settings
	return nil
}

func (s *Store) FindSweepRunByID(ctx context.Context, sweepRunID string) (*domain.SweepRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[sweepRunID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &run, nil
}

func (s *Store) FindSweepRunByScheduledDate(ctx context.Context, userID string, scheduledFor time.Time) (*domain.SweepRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.runDates[key(userID, scheduledFor.Format(dateKeyLayout))]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	run := s.runs[id]
	return &run, nil
}

func (s *Store) ListSweepRunsByUser(ctx context.Context, userID string, limit int) ([]domain.SweepRun, error) {
	runs := s.filterRuns(func(r domain.SweepRun) bool { return r.UserID == userID })
	sort.Slice(runs, func(i, j int) bool { return runs[i].ScheduledFor.After(runs[j].ScheduledFor) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (s *Store) ListSweepRunsByStatus(ctx context.Context, statuses ...domain.SweepStatus) ([]domain.SweepRun, error) {
	runs := s.filterRuns(func(r domain.SweepRun) bool {
		for _, st := range statuses {
			if r.Status == st {
				return true
			}
		}
		return false
	})
	sort.Slice(runs, func(i, j int) bool { return runs[i].ScheduledAt.Before(runs[j].ScheduledAt) })
	return runs, nil
}

func (s *Store) ListSweepRunsInRange(ctx context.Context, userID string, from, to time.Time) ([]domain.SweepRun, error) {
	runs := s.filterRuns(func(r domain.SweepRun) bool {
		return r.UserID == userID && !r.ScheduledFor.Before(from) && r.ScheduledFor.Before(to)
	})
	sort.Slice(runs, func(i, j int) bool { return runs[i].ScheduledFor.Before(runs[j].ScheduledFor) })
	return runs, nil
}

func (s *Store) filterRuns(keep func(domain.SweepRun) bool) []domain.SweepRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.SweepRun, 0)
	for _, r := range s.runs {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s *Store) CreateSweepRun(ctx context.Context, run domain.SweepRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(run.UserID, run.ScheduledFor.Format(dateKeyLayout))
	if _, ok := s.runDates[k]; ok {
		return apperrors.ErrDuplicate
	}
	if _, ok := s.runs[run.SweepRunID]; ok {
		return apperrors.ErrDuplicate
	}
	s.runs[run.SweepRunID] = run
	s.runDates[k] = run.SweepRunID
	return nil
}

func (s *Store) TransitionSweepRun(ctx context.Context, sweepRunID string, from, to domain.SweepStatus, errorDetail string, executedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[sweepRunID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if run.Status != from {
		return fmt.Errorf("%w: sweep run %s is %s, not %s", apperrors.ErrConcurrencyConflict, sweepRunID, run.Status, from)
	}
	run.Status = to
	run.ErrorDetail = errorDetail
	if executedAt != nil {
		run.ExecutedAt = executedAt
	}
	s.runs[sweepRunID] = run
	return nil
}

func (s *Store) CompleteSweepRun(ctx context.Context, sweepRunID string, from domain.SweepStatus, invested decimal.Decimal, executedAt time.Time, entry domain.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[sweepRunID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if run.Status != from {
		return fmt.Errorf("%w: sweep run %s is %s, not %s", apperrors.ErrConcurrencyConflict, sweepRunID, run.Status, from)
	}
	if err := s.appendLocked(entry); err != nil {
		return err
	}
	run.Status = domain.SweepCompleted
	run.InvestedAmount = invested
	run.ExecutedAt = &executedAt
	run.ErrorDetail = ""
	s.runs[sweepRunID] = run
	return nil
}

func (s *Store) SaveOrder(ctx context.Context, order domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ClientOrderID == order.ClientOrderID {
			return apperrors.ErrDuplicate
		}
	}
	s.orders[order.OrderID] = order
	return nil
}

func (s *Store) UpdateOrder(ctx context.Context, order domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[order.OrderID]; !ok {
		return apperrors.ErrNotFound
	}
	s.orders[order.OrderID] = order
	return nil
}

func (s *Store) ListOrdersBySweepRun(ctx context.Context, sweepRunID string) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Order, 0)
	for _, o := range s.orders {
		if o.SweepRunID == sweepRunID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstrumentSymbol < out[j].InstrumentSymbol })
	return out, nil
}
