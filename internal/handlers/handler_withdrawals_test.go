package handlers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SscSPs/roundup_vault/internal/apperrors"
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	portssvc "github.com/SscSPs/roundup_vault/internal/core/ports/services"
	"github.com/SscSPs/roundup_vault/internal/dto"
	"github.com/SscSPs/roundup_vault/internal/handlers"
	"github.com/SscSPs/roundup_vault/internal/platform/config"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock WithdrawalService ---
type MockWithdrawalService struct {
	mock.Mock
}

func (m *MockWithdrawalService) RequestWithdrawal(ctx context.Context, userID string, req dto.CreateWithdrawalRequest) (*domain.Withdrawal, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalService) SettleWithdrawal(ctx context.Context, withdrawalID string, outcome domain.PayoutOutcome) (*domain.Withdrawal, error) {
	args := m.Called(ctx, withdrawalID, outcome)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalService) ReconcilePendingWithdrawals(ctx context.Context, now time.Time) ([]domain.Withdrawal, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalService) GetWithdrawal(ctx context.Context, userID, withdrawalID string) (*domain.Withdrawal, error) {
	args := m.Called(ctx, userID, withdrawalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalService) ListWithdrawals(ctx context.Context, userID string, limit int) ([]domain.Withdrawal, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Withdrawal), args.Error(1)
}

// Ensure mock implements the interface
var _ portssvc.WithdrawalSvcFacade = (*MockWithdrawalService)(nil)

// --- Test Suite ---
type WithdrawalHandlerTestSuite struct {
	suite.Suite
	router      *gin.Engine
	mockService *MockWithdrawalService
	cfg         *config.Config
}

func (suite *WithdrawalHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.cfg = &config.Config{
		JWTSecret:      "test-secret-key-that-is-long-enough",
		JWTIssuer:      "roundup-vault-test",
		InternalAPIKey: "internal-test-key",
		IsProduction:   true,
	}
	suite.mockService = new(MockWithdrawalService)

	err := handlers.RegisterRoutes(suite.router, suite.cfg, &portssvc.ServiceContainer{Withdrawal: suite.mockService}, nil)
	suite.Require().NoError(err)
}

func (suite *WithdrawalHandlerTestSuite) token(userID string) string {
	t, err := signToken(userID, suite.cfg.JWTSecret, time.Hour, suite.cfg.JWTIssuer)
	suite.Require().NoError(err)
	return t
}

func (suite *WithdrawalHandlerTestSuite) do(method, url, userID, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+suite.token(userID))
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func sampleWithdrawal(status domain.WithdrawalStatus) *domain.Withdrawal {
	return &domain.Withdrawal{
		WithdrawalID:         "wd-1",
		UserID:               "user-1",
		Amount:               decimal.RequireFromString("12.5"),
		CurrencyCode:         "EUR",
		DestinationAccountID: "bank-1",
		Status:               status,
		ReferenceNumber:      "WD-20260315-ABC",
		InitiatedAt:          time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC),
	}
}

// --- Test Cases ---

func (suite *WithdrawalHandlerTestSuite) TestCreateWithdrawal_Accepted() {
	suite.mockService.On("RequestWithdrawal",
		mock.Anything,
		"user-1",
		mock.MatchedBy(func(r dto.CreateWithdrawalRequest) bool {
			return r.Amount.Equal(decimal.RequireFromString("12.50")) && r.DestinationAccountID == "bank-1"
		}),
	).Return(sampleWithdrawal(domain.WithdrawalProcessing), nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/withdrawals", "user-1", `{"amount":"12.50","destinationAccountID":"bank-1"}`)

	suite.Equal(http.StatusAccepted, w.Code)
	var resp dto.WithdrawalResponse
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("wd-1", resp.WithdrawalID)
	suite.Equal("12.50", resp.Amount)
	suite.Equal("processing", resp.Status)
	suite.mockService.AssertExpectations(suite.T())
}

func (suite *WithdrawalHandlerTestSuite) TestCreateWithdrawal_ErrorMapping() {
	tests := []struct {
		err      error
		wantCode int
	}{
		{fmt.Errorf("%w: amount must be positive", apperrors.ErrValidation), http.StatusBadRequest},
		{apperrors.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{apperrors.ErrConcurrencyConflict, http.StatusConflict},
		{apperrors.ErrNotFound, http.StatusNotFound},
		{apperrors.ErrDataIntegrity, http.StatusInternalServerError},
		{apperrors.ErrExternalProvider, http.StatusBadGateway},
		{apperrors.NewAppError(http.StatusTeapot, "short and stout", nil), http.StatusTeapot},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		suite.Run(tt.err.Error(), func() {
			suite.mockService.On("RequestWithdrawal", mock.Anything, "user-1", mock.Anything).Return(nil, tt.err).Once()
			w := suite.do(http.MethodPost, "/api/v1/withdrawals", "user-1", `{"amount":"1","destinationAccountID":"bank-1"}`)
			suite.Equal(tt.wantCode, w.Code)
		})
	}
}

func (suite *WithdrawalHandlerTestSuite) TestCreateWithdrawal_BadBody() {
	w := suite.do(http.MethodPost, "/api/v1/withdrawals", "user-1", `{"amount":"1"}`)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockService.AssertNotCalled(suite.T(), "RequestWithdrawal")
}

func (suite *WithdrawalHandlerTestSuite) TestCreateWithdrawal_Unauthenticated() {
	w := suite.do(http.MethodPost, "/api/v1/withdrawals", "", `{"amount":"1","destinationAccountID":"bank-1"}`)
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.mockService.AssertNotCalled(suite.T(), "RequestWithdrawal")
}

func (suite *WithdrawalHandlerTestSuite) TestListWithdrawals_DefaultLimit() {
	suite.mockService.On("ListWithdrawals", mock.Anything, "user-1", 20).
		Return([]domain.Withdrawal{*sampleWithdrawal(domain.WithdrawalCompleted)}, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/withdrawals", "user-1", "")

	suite.Equal(http.StatusOK, w.Code)
	var resp []dto.WithdrawalResponse
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Len(resp, 1)
	suite.mockService.AssertExpectations(suite.T())
}

func (suite *WithdrawalHandlerTestSuite) TestListWithdrawals_LimitOutOfRange() {
	w := suite.do(http.MethodGet, "/api/v1/withdrawals?limit=500", "user-1", "")
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *WithdrawalHandlerTestSuite) TestGetWithdrawal_NotFound() {
	suite.mockService.On("GetWithdrawal", mock.Anything, "user-2", "wd-1").Return(nil, apperrors.ErrNotFound).Once()

	w := suite.do(http.MethodGet, "/api/v1/withdrawals/wd-1", "user-2", "")
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *WithdrawalHandlerTestSuite) TestSettleWithdrawal_RequiresInternalKey() {
	req, _ := http.NewRequest(http.MethodPost, "/internal/withdrawals/wd-1/settle", strings.NewReader(`{"status":"succeeded"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+suite.token("user-1"))
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.mockService.AssertNotCalled(suite.T(), "SettleWithdrawal")
}

func (suite *WithdrawalHandlerTestSuite) TestSettleWithdrawal_PassesOutcome() {
	suite.mockService.On("SettleWithdrawal", mock.Anything, "wd-1", domain.PayoutOutcome{
		Status:            domain.PayoutFailed,
		ProviderReference: "po_9",
		Reason:            "account closed",
	}).Return(sampleWithdrawal(domain.WithdrawalFailed), nil).Once()

	req, _ := http.NewRequest(http.MethodPost, "/internal/withdrawals/wd-1/settle",
		strings.NewReader(`{"status":"failed","providerReference":"po_9","reason":"account closed"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Internal-Api-Key", suite.cfg.InternalAPIKey)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), `"status":"failed"`)
	suite.mockService.AssertExpectations(suite.T())
}

func (suite *WithdrawalHandlerTestSuite) TestSettleWithdrawal_UnknownStatus() {
	req, _ := http.NewRequest(http.MethodPost, "/internal/withdrawals/wd-1/settle", strings.NewReader(`{"status":"in_flight"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Internal-Api-Key", suite.cfg.InternalAPIKey)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusBadRequest, w.Code)
}

// --- Run Test Suite ---
func TestWithdrawalHandler(t *testing.T) {
	suite.Run(t, new(WithdrawalHandlerTestSuite))
}
