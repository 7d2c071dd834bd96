package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/SscSPs/roundup_vault/internal/apperrors"
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	portssvc "github.com/SscSPs/roundup_vault/internal/core/ports/services"
	"github.com/SscSPs/roundup_vault/internal/core/services"
	"github.com/SscSPs/roundup_vault/internal/dto"
	"github.com/SscSPs/roundup_vault/internal/repositories/memory"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock BalanceCache ---
type MockBalanceCache struct {
	mock.Mock
}

func (m *MockBalanceCache) Get(ctx context.Context, userID string) (*domain.VaultBalance, bool, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.VaultBalance), args.Bool(1), args.Error(2)
}

func (m *MockBalanceCache) Set(ctx context.Context, balance domain.VaultBalance, ttl time.Duration) error {
	args := m.Called(ctx, balance, ttl)
	return args.Error(0)
}

func (m *MockBalanceCache) Invalidate(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// --- Test Suite ---
type BalanceServiceTestSuite struct {
	suite.Suite
	store     *memory.Store
	cache     *MockBalanceCache
	integrity portssvc.IntegritySvc
	service   portssvc.BalanceSvcFacade
	now       time.Time
}

func (suite *BalanceServiceTestSuite) SetupTest() {
	suite.store = memory.NewStore()
	suite.cache = new(MockBalanceCache)
	suite.now = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	clock := services.WithClock(func() time.Time { return suite.now })
	suite.integrity = services.NewIntegrityService(suite.store, suite.store, clock)
	suite.service = services.NewBalanceService(suite.store, suite.cache, suite.integrity,
		clock,
		services.WithDefaultCurrency("EUR"),
		services.WithBalanceCacheTTL(time.Minute),
	)
}

func (suite *BalanceServiceTestSuite) credit(id, amount string, at time.Time) {
	suite.Require().NoError(suite.store.AppendEntry(context.Background(), domain.LedgerEntry{
		EntryID:       id,
		UserID:        testUser,
		Amount:        dec(amount),
		CurrencyCode:  "EUR",
		TransactionID: domain.StringRef("txn-" + id),
		CreatedAt:     at,
	}))
}

func (suite *BalanceServiceTestSuite) debit(id, amount string, at time.Time) {
	suite.Require().NoError(suite.store.AppendEntry(context.Background(), domain.LedgerEntry{
		EntryID:      id,
		UserID:       testUser,
		Amount:       dec(amount),
		CurrencyCode: "EUR",
		IsReversal:   true,
		WithdrawalID: domain.StringRef("wd-" + id),
		CreatedAt:    at,
	}))
}

// --- Test Cases ---

func (suite *BalanceServiceTestSuite) TestComputeBalance_FoldsMonths() {
	lastMonth := suite.now.AddDate(0, -1, 0)
	suite.credit("a", "3.00", lastMonth)
	suite.credit("b", "0.80", suite.now.Add(-time.Hour))
	suite.debit("c", "1.00", suite.now.Add(-time.Minute))

	b, err := suite.service.ComputeBalance(context.Background(), testUser, nil)

	suite.Require().NoError(err)
	suite.True(b.Balance.Equal(dec("2.80")))
	suite.True(b.ThisMonth.IsZero())
	suite.True(b.MonthToDateAccrual.Equal(dec("0.80")))
	suite.Equal(3, b.EntryCount)
	suite.Equal("EUR", b.CurrencyCode)
}

func (suite *BalanceServiceTestSuite) TestComputeBalance_AsOfExcludesLaterEntries() {
	suite.credit("a", "1.00", suite.now.Add(-48*time.Hour))
	suite.credit("b", "2.00", suite.now.Add(-time.Hour))

	asOf := suite.now.Add(-24 * time.Hour)
	b, err := suite.service.ComputeBalance(context.Background(), testUser, &asOf)

	suite.Require().NoError(err)
	suite.True(b.Balance.Equal(dec("1.00")))
	suite.Equal(1, b.EntryCount)
}

func (suite *BalanceServiceTestSuite) TestComputeBalance_EmptyLedger() {
	b, err := suite.service.ComputeBalance(context.Background(), "nobody", nil)

	suite.Require().NoError(err)
	suite.True(b.Balance.IsZero())
	suite.Equal(0, b.EntryCount)
	suite.Equal("EUR", b.CurrencyCode)
}

func (suite *BalanceServiceTestSuite) TestComputeBalance_OverdrawnPlacesHold() {
	ctx := context.Background()
	suite.credit("a", "1.00", suite.now.Add(-time.Hour))
	suite.debit("b", "1.50", suite.now.Add(-time.Minute))

	_, err := suite.service.ComputeBalance(ctx, testUser, nil)

	suite.ErrorIs(err, apperrors.ErrDataIntegrity)
	settings, err := suite.store.FindSweepSettings(ctx, testUser)
	suite.Require().NoError(err)
	suite.True(settings.IsHalted())

	suite.Require().NoError(suite.integrity.ReleaseHold(ctx, testUser))
	settings, err = suite.store.FindSweepSettings(ctx, testUser)
	suite.Require().NoError(err)
	suite.False(settings.IsHalted())
}

func (suite *BalanceServiceTestSuite) TestGetBalance_ServesWarmCache() {
	ctx := context.Background()
	cached := &domain.VaultBalance{UserID: testUser, CurrencyCode: "EUR", Balance: dec("9.99"), RawBalance: dec("9.99"), AsOf: suite.now.Add(-time.Minute)}
	suite.cache.On("Get", ctx, testUser).Return(cached, true, nil).Once()

	b, err := suite.service.GetBalance(ctx, testUser)

	suite.Require().NoError(err)
	suite.Same(cached, b)
	suite.cache.AssertExpectations(suite.T())
}

func (suite *BalanceServiceTestSuite) TestGetBalance_MissFoldsAndStores() {
	ctx := context.Background()
	suite.credit("a", "0.80", suite.now.Add(-time.Hour))
	suite.cache.On("Get", ctx, testUser).Return(nil, false, nil).Once()
	suite.cache.On("Set", ctx, mock.MatchedBy(func(b domain.VaultBalance) bool {
		return b.Balance.Equal(dec("0.80"))
	}), time.Minute).Return(nil).Once()

	b, err := suite.service.GetBalance(ctx, testUser)

	suite.Require().NoError(err)
	suite.True(b.Balance.Equal(dec("0.80")))
	suite.cache.AssertExpectations(suite.T())
}

func (suite *BalanceServiceTestSuite) TestGetBalance_StaleMonthIsRefolded() {
	ctx := context.Background()
	suite.credit("a", "0.80", suite.now.Add(-time.Hour))
	stale := &domain.VaultBalance{UserID: testUser, Balance: dec("0.80"), RawBalance: dec("0.80"), AsOf: suite.now.AddDate(0, -1, 0)}
	suite.cache.On("Get", ctx, testUser).Return(stale, true, nil).Once()
	suite.cache.On("Set", ctx, mock.AnythingOfType("domain.VaultBalance"), time.Minute).Return(nil).Once()

	b, err := suite.service.GetBalance(ctx, testUser)

	suite.Require().NoError(err)
	suite.NotSame(stale, b)
	suite.Equal(suite.now, b.AsOf)
	suite.cache.AssertExpectations(suite.T())
}

func (suite *BalanceServiceTestSuite) TestGetBalance_CacheErrorFallsBackToLedger() {
	ctx := context.Background()
	suite.credit("a", "0.80", suite.now.Add(-time.Hour))
	suite.cache.On("Get", ctx, testUser).Return(nil, false, errors.New("connection refused")).Once()
	suite.cache.On("Set", ctx, mock.AnythingOfType("domain.VaultBalance"), time.Minute).Return(errors.New("connection refused")).Once()

	b, err := suite.service.GetBalance(ctx, testUser)

	suite.Require().NoError(err)
	suite.True(b.Balance.Equal(dec("0.80")))
}

func (suite *BalanceServiceTestSuite) TestReconcileBalance_RepairsMismatch() {
	ctx := context.Background()
	suite.credit("a", "0.80", suite.now.Add(-time.Hour))
	wrong := &domain.VaultBalance{UserID: testUser, Balance: dec("5.00"), RawBalance: dec("5.00"), EntryCount: 1, AsOf: suite.now}
	suite.cache.On("Get", ctx, testUser).Return(wrong, true, nil).Once()
	suite.cache.On("Set", ctx, mock.MatchedBy(func(b domain.VaultBalance) bool {
		return b.RawBalance.Equal(dec("0.80"))
	}), time.Minute).Return(nil).Once()

	result, err := suite.service.ReconcileBalance(ctx, testUser)

	suite.Require().NoError(err)
	suite.True(result.Mismatch)
	suite.True(result.Repaired)
	suite.True(result.Folded.Balance.Equal(dec("0.80")))
	suite.cache.AssertExpectations(suite.T())
}

func (suite *BalanceServiceTestSuite) TestReconcileBalance_MatchingCacheIsLeftAlone() {
	ctx := context.Background()
	suite.credit("a", "0.80", suite.now.Add(-time.Hour))
	folded := domain.FoldBalance(testUser, suite.mustEntries(), suite.now, time.UTC)
	suite.cache.On("Get", ctx, testUser).Return(&folded, true, nil).Once()

	result, err := suite.service.ReconcileBalance(ctx, testUser)

	suite.Require().NoError(err)
	suite.False(result.Mismatch)
	suite.False(result.Repaired)
	suite.cache.AssertNotCalled(suite.T(), "Set", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *BalanceServiceTestSuite) TestReconcileAllBalances_SkipsCorruptUsers() {
	ctx := context.Background()
	suite.credit("a", "0.80", suite.now.Add(-time.Hour))
	suite.Require().NoError(suite.store.AppendEntry(ctx, domain.LedgerEntry{
		EntryID:      "bad",
		UserID:       "user-2",
		Amount:       dec("1.00"),
		CurrencyCode: "EUR",
		IsReversal:   true,
		WithdrawalID: domain.StringRef("wd-bad"),
		CreatedAt:    suite.now.Add(-time.Hour),
	}))
	suite.cache.On("Get", ctx, testUser).Return(nil, false, nil).Once()
	suite.cache.On("Set", ctx, mock.AnythingOfType("domain.VaultBalance"), time.Minute).Return(nil).Once()

	resp, err := suite.service.ReconcileAllBalances(ctx)

	suite.Require().NoError(err)
	suite.Equal(1, resp.Checked)
	suite.Equal(0, resp.Mismatched)
	held, err := suite.store.FindSweepSettings(ctx, "user-2")
	suite.Require().NoError(err)
	suite.True(held.IsHalted())
}

func (suite *BalanceServiceTestSuite) TestRefreshAfterMutation_Invalidates() {
	ctx := context.Background()
	suite.cache.On("Invalidate", ctx, testUser).Return(nil).Once()

	suite.service.RefreshAfterMutation(ctx, testUser)

	suite.cache.AssertExpectations(suite.T())
}

func (suite *BalanceServiceTestSuite) TestListEntries_Pages() {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		suite.credit(fmt.Sprintf("e%d", i), "0.10", suite.now.Add(time.Duration(i-10)*time.Minute))
	}

	first, err := suite.service.ListEntries(ctx, testUser, dto.ListLedgerEntriesParams{Limit: 3})
	suite.Require().NoError(err)
	suite.Len(first.Entries, 3)
	suite.Equal("e4", first.Entries[0].EntryID)
	suite.Require().NotNil(first.NextToken)

	second, err := suite.service.ListEntries(ctx, testUser, dto.ListLedgerEntriesParams{Limit: 3, NextToken: first.NextToken})
	suite.Require().NoError(err)
	suite.Len(second.Entries, 2)
	suite.Equal("e0", second.Entries[1].EntryID)
	suite.Nil(second.NextToken)

	bad := "not-a-token"
	_, err = suite.service.ListEntries(ctx, testUser, dto.ListLedgerEntriesParams{NextToken: &bad})
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *BalanceServiceTestSuite) mustEntries() []domain.LedgerEntry {
	entries, err := suite.store.ListEntriesByUser(context.Background(), testUser)
	suite.Require().NoError(err)
	return entries
}

// --- Run Test Suite ---
func TestBalanceServiceTestSuite(t *testing.T) {
	suite.Run(t, new(BalanceServiceTestSuite))
}
