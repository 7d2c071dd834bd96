package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/SscSPs/roundup_vault/internal/apperrors"
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/SscSPs/roundup_vault/internal/utils/pagination"
	"github.com/shopspring/decimal"
)

func (s *Store) ListEntriesByUser(ctx context.Context, userID string) ([]domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entriesOf(userID), nil
}

func (s *Store) ListEntriesByTransaction(ctx context.Context, transactionID string) ([]domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.LedgerEntry, 0)
	for _, e := range s.entries {
		if e.TransactionID != nil && *e.TransactionID == transactionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) ListEntriesPage(ctx context.Context, userID string, limit int, nextToken *string) ([]domain.LedgerEntry, *string, error) {
	s.mu.RLock()
	entries := s.entriesOf(userID)
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].EntryID > entries[j].EntryID
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})

	start := 0
	if nextToken != nil && *nextToken != "" {
		afterTime, afterID, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: invalid next token: %v", apperrors.ErrValidation, err)
		}
		start = len(entries)
		for i, e := range entries {
			if e.CreatedAt.Before(afterTime) || (e.CreatedAt.Equal(afterTime) && e.EntryID < afterID) {
				start = i
				break
			}
		}
	}

	end := start + limit
	if end >= len(entries) {
		return entries[start:], nil, nil
	}
	last := entries[end-1]
	token := pagination.EncodeToken(last.CreatedAt, last.EntryID)
	return entries[start:end], &token, nil
}

func (s *Store) ListLedgerUserIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, e := range s.entries {
		if _, ok := seen[e.UserID]; !ok {
			seen[e.UserID] = struct{}{}
			out = append(out, e.UserID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) AppendEntry(ctx context.Context, entry domain.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(entry)
}

func (s *Store) AppendTransactionEntry(ctx context.Context, entry domain.LedgerEntry, expectedLive int) error {
	if entry.TransactionID == nil {
		return fmt.Errorf("%w: entry does not reference a transaction", apperrors.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if live := domain.LiveRoundUpCount(s.entries, *entry.TransactionID); live != expectedLive {
		return fmt.Errorf("%w: transaction %s has %d live round-ups, expected %d",
			apperrors.ErrConcurrencyConflict, *entry.TransactionID, live, expectedLive)
	}
	return s.appendLocked(entry)
}

func (s *Store) appendLocked(entry domain.LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	for _, e := range s.entries {
		if e.EntryID == entry.EntryID {
			return apperrors.ErrDuplicate
		}
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *Store) entriesOf(userID string) []domain.LedgerEntry {
	out := make([]domain.LedgerEntry, 0)
	for _, e := range s.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) rawBalanceLocked(userID string) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range s.entries {
		if e.UserID == userID {
			sum = sum.Add(e.SignedAmount())
		}
	}
	return sum
}
