package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SscSPs/roundup_vault/internal/apperrors"
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	portsrepo "github.com/SscSPs/roundup_vault/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/roundup_vault/internal/core/ports/services"
	"github.com/SscSPs/roundup_vault/internal/dto"
	"github.com/google/uuid"
)

var ErrNothingToCorrect = errors.New("correction must change the category or the exclusion flag")

// transactionService ingests banking transactions and applies user corrections.
type transactionService struct {
	BaseService
	txnRepo         portsrepo.TransactionRepositoryFacade
	merchantRepo    portsrepo.MerchantExclusionRepository
	bankAccountRepo portsrepo.BankAccountRepository
	roundUps        portssvc.RoundUpSvc
}

// NewTransactionService creates a new transaction service.
func NewTransactionService(
	txnRepo portsrepo.TransactionRepositoryFacade,
	merchantRepo portsrepo.MerchantExclusionRepository,
	bankAccountRepo portsrepo.BankAccountRepository,
	roundUps portssvc.RoundUpSvc,
	options ...Option,
) portssvc.TransactionSvcFacade {
	return &transactionService{
		BaseService:     newBaseService(nil, options),
		txnRepo:         txnRepo,
		merchantRepo:    merchantRepo,
		bankAccountRepo: bankAccountRepo,
		roundUps:        roundUps,
	}
}

var _ portssvc.TransactionSvcFacade = (*transactionService)(nil)

func (s *transactionService) IngestTransactions(ctx context.Context, req dto.IngestTransactionsRequest) (*dto.IngestTransactionsResponse, error) {
	resp := &dto.IngestTransactionsResponse{Results: make([]dto.IngestResult, 0, len(req.Transactions))}
	policies := make(map[string]domain.ExclusionPolicy)

	for _, item := range req.Transactions {
		result := dto.IngestResult{ExternalID: item.ExternalID}

		policy, ok := policies[item.UserID]
		if !ok {
			var err error
			policy, err = s.policyFor(ctx, item.UserID)
			if err != nil {
				result.Error = err.Error()
				resp.Failed++
				resp.Results = append(resp.Results, result)
				continue
			}
			policies[item.UserID] = policy
		}

		stored, created, err := s.txnRepo.SaveTransaction(ctx, s.newTransaction(item, policy))
		if err != nil {
			s.LogError(ctx, err, "Failed to store transaction",
				slog.String("user_id", item.UserID),
				slog.String("external_id", item.ExternalID))
			result.Error = err.Error()
			resp.Failed++
			resp.Results = append(resp.Results, result)
			continue
		}
		result.TransactionID = stored.TransactionID
		result.Created = created

		if !created {
			resp.Duplicates++
			resp.Results = append(resp.Results, result)
			continue
		}
		resp.Created++

		entry, err := s.roundUps.ProcessRoundUp(ctx, *stored)
		if err != nil {
			// The transaction is stored; the round-up can be retried through a correction.
			s.LogError(ctx, err, "Round-up failed for ingested transaction",
				slog.String("user_id", stored.UserID),
				slog.String("transaction_id", stored.TransactionID))
			result.Error = err.Error()
		} else if entry != nil {
			entryResp := dto.ToLedgerEntryResponse(entry)
			result.RoundUp = &entryResp
		}
		resp.Results = append(resp.Results, result)
	}

	s.LogInfo(ctx, "Transactions ingested",
		slog.Int("received", len(req.Transactions)),
		slog.Int("created", resp.Created),
		slog.Int("duplicates", resp.Duplicates),
		slog.Int("failed", resp.Failed))
	return resp, nil
}

func (s *transactionService) newTransaction(item dto.IngestTransactionRequest, policy domain.ExclusionPolicy) domain.Transaction {
	now := s.now()
	// Only money leaving the account is rounded up unless the feed says otherwise.
	eligible := item.Amount.IsNegative()
	if item.IsEligibleForRoundUp != nil {
		eligible = *item.IsEligibleForRoundUp
	}
	return domain.Transaction{
		TransactionID:        uuid.NewString(),
		UserID:               item.UserID,
		AccountID:            item.AccountID,
		ExternalID:           item.ExternalID,
		MerchantName:         strings.TrimSpace(item.MerchantName),
		Category:             strings.TrimSpace(item.Category),
		Amount:               item.Amount,
		CurrencyCode:         strings.ToUpper(item.CurrencyCode),
		TransactionDate:      item.TransactionDate,
		IsEligibleForRoundUp: eligible,
		IsExcluded:           policy.Excludes(item.Category, item.MerchantName),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

func (s *transactionService) RegisterBankAccount(ctx context.Context, req dto.RegisterBankAccountRequest) (*domain.BankAccount, error) {
	account := domain.BankAccount{
		BankAccountID:       req.BankAccountID,
		UserID:              req.UserID,
		AccountName:         req.AccountName,
		AccountNumberMasked: req.AccountNumberMasked,
		CurrencyCode:        strings.ToUpper(req.CurrencyCode),
		IsPrimary:           req.IsPrimary,
		CreatedAt:           s.now(),
	}
	if err := s.bankAccountRepo.SaveBankAccount(ctx, account); err != nil {
		s.LogError(ctx, err, "Failed to save bank account", slog.String("user_id", req.UserID))
		return nil, err
	}
	return &account, nil
}

func (s *transactionService) CorrectTransaction(ctx context.Context, userID, transactionID string, req dto.CorrectTransactionRequest) (*domain.Transaction, error) {
	if req.Category == nil && req.IsExcluded == nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, ErrNothingToCorrect)
	}

	txn, err := s.txnRepo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.UserID != userID {
		// Do not reveal other users' transactions.
		return nil, apperrors.ErrNotFound
	}

	policy, err := s.policyFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	manual := txn.IsExcluded && !policy.Excludes(txn.Category, txn.MerchantName)
	if req.IsExcluded != nil {
		manual = *req.IsExcluded
	}
	category := txn.Category
	if req.Category != nil {
		category = strings.TrimSpace(*req.Category)
	}

	updated := *txn
	updated.Category = category
	updated.IsExcluded = manual || policy.Excludes(category, txn.MerchantName)
	updated.UpdatedAt = s.now()

	if err := s.txnRepo.UpdateTransactionClassification(ctx, transactionID, updated.Category, updated.IsEligibleForRoundUp, updated.IsExcluded, updated.UpdatedAt); err != nil {
		s.LogError(ctx, err, "Failed to update transaction classification", slog.String("transaction_id", transactionID))
		return nil, err
	}

	if updated.QualifiesForRoundUp() {
		_, err = s.roundUps.ProcessRoundUp(ctx, updated)
	} else {
		_, err = s.roundUps.ReverseRoundUp(ctx, updated)
	}
	if err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Transaction corrected",
		slog.String("transaction_id", transactionID),
		slog.String("category", updated.Category),
		slog.Bool("excluded", updated.IsExcluded))
	return &updated, nil
}

func (s *transactionService) ListExcludedMerchants(ctx context.Context, userID string) ([]domain.ExcludedMerchant, error) {
	return s.merchantRepo.ListExcludedMerchants(ctx, userID)
}

func (s *transactionService) AddExcludedMerchant(ctx context.Context, userID string, req dto.ExcludedMerchantRequest) (*domain.ExcludedMerchant, error) {
	name := strings.TrimSpace(req.MerchantName)
	if name == "" {
		return nil, fmt.Errorf("%w: merchant name is required", apperrors.ErrValidation)
	}
	merchant := domain.ExcludedMerchant{UserID: userID, MerchantName: name, CreatedAt: s.now()}
	if err := s.merchantRepo.AddExcludedMerchant(ctx, merchant); err != nil {
		return nil, err
	}
	return &merchant, nil
}

func (s *transactionService) RemoveExcludedMerchant(ctx context.Context, userID, merchantName string) error {
	return s.merchantRepo.RemoveExcludedMerchant(ctx, userID, strings.TrimSpace(merchantName))
}

func (s *transactionService) policyFor(ctx context.Context, userID string) (domain.ExclusionPolicy, error) {
	merchants, err := s.merchantRepo.ListExcludedMerchants(ctx, userID)
	if err != nil {
		return domain.ExclusionPolicy{}, err
	}
	return domain.NewExclusionPolicy(s.opts.ExcludedCategories, merchants), nil
}
