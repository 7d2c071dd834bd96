package handlers_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SscSPs/roundup_vault/internal/adapters/providers/sandbox"
	"github.com/SscSPs/roundup_vault/internal/core/services"
	"github.com/SscSPs/roundup_vault/internal/dto"
	"github.com/SscSPs/roundup_vault/internal/handlers"
	"github.com/SscSPs/roundup_vault/internal/middleware"
	"github.com/SscSPs/roundup_vault/internal/platform/config"
	"github.com/SscSPs/roundup_vault/internal/platform/lock"
	"github.com/SscSPs/roundup_vault/internal/repositories/memory"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// apiHarness serves the real engine over the in-memory store.
type apiHarness struct {
	t      *testing.T
	router *gin.Engine
	cfg    *config.Config
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		JWTSecret:      "test-secret-key-that-is-long-enough",
		JWTIssuer:      "roundup-vault-test",
		InternalAPIKey: "internal-test-key",
		IsProduction:   true,
	}
	repos := memory.NewRepositoryProvider(memory.NewStore())
	svc := services.NewServiceContainer(repos, services.Collaborators{
		Locker:  lock.NewKeyedLocker(),
		Broker:  sandbox.NewBrokerage(),
		Payouts: sandbox.NewPayouts(),
	}, services.WithDefaultCurrency("EUR"))

	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(slogDiscard()))
	require.NoError(t, handlers.RegisterRoutes(r, cfg, svc, nil))
	handlers.RegisterReadinessRoute(r, repos.Health)
	return &apiHarness{t: t, router: r, cfg: cfg}
}

func (h *apiHarness) user(method, url, userID, body string) *httptest.ResponseRecorder {
	h.t.Helper()
	token, err := signToken(userID, h.cfg.JWTSecret, time.Hour, h.cfg.JWTIssuer)
	require.NoError(h.t, err)
	return h.send(method, url, body, "Authorization", "Bearer "+token)
}

func (h *apiHarness) internal(method, url, body string) *httptest.ResponseRecorder {
	return h.send(method, url, body, middleware.InternalAPIKeyHeader, h.cfg.InternalAPIKey)
}

func (h *apiHarness) send(method, url, body, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(header, value)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func ingestBody(userID, externalID, amount, merchant string) string {
	now := time.Now().UTC().Add(-time.Minute).Format(time.RFC3339)
	return `{"transactions":[{"userID":"` + userID + `","accountID":"bank-1","externalID":"` + externalID +
		`","merchantName":"` + merchant + `","category":"Food & Drink","amount":"-` + amount +
		`","currencyCode":"EUR","transactionDate":"` + now + `"}]}`
}

func TestAPI_Health(t *testing.T) {
	h := newAPIHarness(t)
	w := h.send(http.MethodGet, "/health", "", "X-Unused", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	w = h.send(http.MethodGet, "/ready", "", "X-Unused", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ready")
}

func TestAPI_IngestThenBalance(t *testing.T) {
	h := newAPIHarness(t)

	w := h.internal(http.MethodPost, "/internal/transactions", ingestBody("user-1", "ext-1", "4.20", "Coffee House"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ingest := decode[dto.IngestTransactionsResponse](t, w)
	assert.Equal(t, 1, ingest.Created)
	require.NotNil(t, ingest.Results[0].RoundUp)
	assert.Equal(t, "0.80", ingest.Results[0].RoundUp.Amount)

	// Replays are reported, not re-credited.
	w = h.internal(http.MethodPost, "/internal/transactions", ingestBody("user-1", "ext-1", "4.20", "Coffee House"))
	assert.Equal(t, 1, decode[dto.IngestTransactionsResponse](t, w).Duplicates)

	w = h.user(http.MethodGet, "/api/v1/vault/balance", "user-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	balance := decode[dto.BalanceResponse](t, w)
	assert.Equal(t, "0.80", balance.Balance)
	assert.Equal(t, "EUR", balance.CurrencyCode)
	assert.Equal(t, 1, balance.EntryCount)

	// Another user's vault is untouched.
	w = h.user(http.MethodGet, "/api/v1/vault/balance", "user-2", "")
	assert.Equal(t, "0.00", decode[dto.BalanceResponse](t, w).Balance)

	w = h.user(http.MethodGet, "/api/v1/vault/entries?limit=10", "user-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[dto.ListLedgerEntriesResponse](t, w)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "ROUND_UP", page.Entries[0].Kind)
}

func TestAPI_IngestRequiresInternalKey(t *testing.T) {
	h := newAPIHarness(t)
	w := h.user(http.MethodPost, "/internal/transactions", "user-1", ingestBody("user-1", "ext-1", "4.20", "Coffee House"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPI_ExcludedMerchantSkipsRoundUp(t *testing.T) {
	h := newAPIHarness(t)

	w := h.user(http.MethodPost, "/api/v1/excluded-merchants", "user-1", `{"merchantName":"Landlord Ltd"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = h.user(http.MethodPost, "/api/v1/excluded-merchants", "user-1", `{"merchantName":"landlord ltd"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.internal(http.MethodPost, "/internal/transactions", ingestBody("user-1", "ext-rent", "950.50", "LANDLORD LTD"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[dto.IngestTransactionsResponse](t, w).Results[0].RoundUp)

	w = h.user(http.MethodDelete, "/api/v1/excluded-merchants/Landlord%20Ltd", "user-1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = h.user(http.MethodDelete, "/api/v1/excluded-merchants/Landlord%20Ltd", "user-1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_CorrectionReversesRoundUp(t *testing.T) {
	h := newAPIHarness(t)

	w := h.internal(http.MethodPost, "/internal/transactions", ingestBody("user-1", "ext-1", "4.20", "Coffee House"))
	txnID := decode[dto.IngestTransactionsResponse](t, w).Results[0].TransactionID

	w = h.user(http.MethodPatch, "/api/v1/transactions/"+txnID, "user-1", `{"isExcluded":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[dto.TransactionResponse](t, w).IsExcluded)

	w = h.user(http.MethodGet, "/api/v1/vault/balance", "user-1", "")
	assert.Equal(t, "0.00", decode[dto.BalanceResponse](t, w).Balance)

	// Someone else's transaction is invisible.
	w = h.user(http.MethodPatch, "/api/v1/transactions/"+txnID, "user-2", `{"isExcluded":false}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_SweepSettings(t *testing.T) {
	h := newAPIHarness(t)

	w := h.user(http.MethodGet, "/api/v1/sweep-settings", "user-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	defaults := decode[dto.SweepSettingsResponse](t, w)
	assert.True(t, defaults.IsActive)
	assert.Equal(t, 1, defaults.SweepDay)

	w = h.user(http.MethodPut, "/api/v1/sweep-settings", "user-1", `{"sweepDay":31}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.user(http.MethodPut, "/api/v1/sweep-settings", "user-1", `{"riskProfile":"yolo"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.user(http.MethodPut, "/api/v1/sweep-settings", "user-1", `{"isActive":true,"sweepDay":15,"riskProfile":"growth"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	settings := decode[dto.SweepSettingsResponse](t, w)
	assert.True(t, settings.IsActive)
	assert.Equal(t, 15, settings.SweepDay)
	assert.Equal(t, "growth", settings.RiskProfile)

	w = h.user(http.MethodGet, "/api/v1/sweeps", "user-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]dto.SweepRunResponse](t, w))
}

func TestAPI_WithdrawalLifecycle(t *testing.T) {
	h := newAPIHarness(t)

	w := h.internal(http.MethodPost, "/internal/bank-accounts",
		`{"bankAccountID":"bank-1","userID":"user-1","accountName":"Main","currencyCode":"EUR","isPrimary":true}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	h.internal(http.MethodPost, "/internal/transactions", ingestBody("user-1", "ext-1", "4.20", "Coffee House"))
	h.internal(http.MethodPost, "/internal/transactions", ingestBody("user-1", "ext-2", "7.10", "Bakery"))

	w = h.user(http.MethodPost, "/api/v1/withdrawals", "user-1", `{"amount":"5.00","destinationAccountID":"bank-1"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = h.user(http.MethodPost, "/api/v1/withdrawals", "user-1", `{"amount":"1.00","destinationAccountID":"bank-1"}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	created := decode[dto.WithdrawalResponse](t, w)

	w = h.user(http.MethodGet, "/api/v1/vault/balance", "user-1", "")
	assert.Equal(t, "0.70", decode[dto.BalanceResponse](t, w).Balance)

	w = h.internal(http.MethodPost, "/internal/withdrawals/"+created.WithdrawalID+"/settle", `{"status":"failed","reason":"account closed"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "failed", decode[dto.WithdrawalResponse](t, w).Status)

	w = h.user(http.MethodGet, "/api/v1/vault/balance", "user-1", "")
	assert.Equal(t, "1.70", decode[dto.BalanceResponse](t, w).Balance)

	// A failed withdrawal cannot later succeed.
	w = h.internal(http.MethodPost, "/internal/withdrawals/"+created.WithdrawalID+"/settle", `{"status":"succeeded"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.user(http.MethodGet, "/api/v1/withdrawals/"+created.WithdrawalID, "user-2", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_InternalOperations(t *testing.T) {
	h := newAPIHarness(t)
	h.internal(http.MethodPost, "/internal/transactions", ingestBody("user-1", "ext-1", "4.20", "Coffee House"))

	w := h.internal(http.MethodPost, "/internal/sweeps/trigger?at=not-a-time", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.internal(http.MethodPost, "/internal/sweeps/trigger", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.internal(http.MethodPost, "/internal/sweeps/reconcile", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.internal(http.MethodPost, "/internal/withdrawals/reconcile", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.internal(http.MethodPost, "/internal/balances/reconcile", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[dto.ReconcileBalancesResponse](t, w).Checked)

	w = h.internal(http.MethodGet, "/internal/users/user-1/balance", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0.80", decode[dto.BalanceResponse](t, w).Balance)

	w = h.internal(http.MethodGet, "/internal/users/user-1/balance?asOf=2000-01-01T00:00:00Z", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0.00", decode[dto.BalanceResponse](t, w).Balance)

	w = h.internal(http.MethodPost, "/internal/users/user-1/balance/reconcile", "")
	assert.Equal(t, http.StatusOK, w.Code)

	// Nothing to release.
	w = h.internal(http.MethodDelete, "/internal/users/user-1/hold", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.internal(http.MethodPost, "/internal/sweeps/missing-run/execute", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAPI_PortfolioSync(t *testing.T) {
	h := newAPIHarness(t)

	w := h.user(http.MethodGet, "/api/v1/portfolio", "user-1", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	empty := decode[dto.PortfolioResponse](t, w)
	assert.Empty(t, empty.Positions)
	assert.Equal(t, "0.00", empty.TotalValue)
	assert.Nil(t, empty.SyncedAt)

	w = h.internal(http.MethodPost, "/internal/transactions", ingestBody("user-1", "ext-1", "4.20", "Coffee House"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.internal(http.MethodPost, "/internal/portfolios/sync", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, decode[dto.SyncPortfoliosResponse](t, w).Synced)

	w = h.user(http.MethodPost, "/api/v1/portfolio/sync", "user-1", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	synced := decode[dto.PortfolioResponse](t, w)
	assert.NotNil(t, synced.SyncedAt)
	assert.Equal(t, "EUR", synced.CurrencyCode)

	w = h.send(http.MethodGet, "/api/v1/portfolio", "", "X-Unused", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
