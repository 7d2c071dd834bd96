package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/SscSPs/roundup_vault/internal/apperrors"
	"github.com/SscSPs/roundup_vault/internal/core/domain"
)

func (s *Store) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txn, ok := s.transactions[transactionID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &txn, nil
}

func (s *Store) FindTransactionByExternalID(ctx context.Context, userID, externalID string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.externalIDs[key(userID, externalID)]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	txn := s.transactions[id]
	return &txn, nil
}

func (s *Store) SaveTransaction(ctx context.Context, txn domain.Transaction) (*domain.Transaction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(txn.UserID, txn.ExternalID)
	if id, ok := s.externalIDs[k]; ok {
		existing := s.transactions[id]
		return &existing, false, nil
	}
	s.transactions[txn.TransactionID] = txn
	s.externalIDs[k] = txn.TransactionID
	return &txn, true, nil
}

func (s *Store) UpdateTransactionClassification(ctx context.Context, transactionID, category string, eligible, excluded bool, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.transactions[transactionID]
	if !ok {
		return apperrors.ErrNotFound
	}
	txn.Category = category
	txn.IsEligibleForRoundUp = eligible
	txn.IsExcluded = excluded
	txn.UpdatedAt = updatedAt
	s.transactions[transactionID] = txn
	return nil
}

func (s *Store) ListExcludedMerchants(ctx context.Context, userID string) ([]domain.ExcludedMerchant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]domain.ExcludedMerchant(nil), s.merchants[userID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].MerchantName < out[j].MerchantName })
	return out, nil
}

func (s *Store) AddExcludedMerchant(ctx context.Context, merchant domain.ExcludedMerchant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.merchants[merchant.UserID] {
		if strings.EqualFold(m.MerchantName, merchant.MerchantName) {
			return apperrors.ErrDuplicate
		}
	}
	s.merchants[merchant.UserID] = append(s.merchants[merchant.UserID], merchant)
	return nil
}

func (s *Store) RemoveExcludedMerchant(ctx context.Context, userID, merchantName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.merchants[userID]
	for i, m := range list {
		if strings.EqualFold(m.MerchantName, merchantName) {
			s.merchants[userID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (s *Store) FindBankAccountByID(ctx context.Context, bankAccountID string) (*domain.BankAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.bankAccounts[bankAccountID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &account, nil
}

func (s *Store) ListBankAccountsByUser(ctx context.Context, userID string) ([]domain.BankAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.BankAccount, 0)
	for _, a := range s.bankAccounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BankAccountID < out[j].BankAccountID })
	return out, nil
}

func (s *Store) SaveBankAccount(ctx context.Context, account domain.BankAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.bankAccounts[account.BankAccountID]; ok && existing.UserID != account.UserID {
		return apperrors.ErrDuplicate
	}
	s.bankAccounts[account.BankAccountID] = account
	return nil
}

func (s *Store) SaveAuditLog(ctx context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogsByUser(ctx context.Context, userID string, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AuditLog, 0)
	for i := len(s.auditLogs) - 1; i >= 0; i-- {
		if s.auditLogs[i].UserID != userID {
			continue
		}
		out = append(out, s.auditLogs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
