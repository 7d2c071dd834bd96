package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/SscSPs/roundup_vault/internal/core/domain"
	portssvc "github.com/SscSPs/roundup_vault/internal/core/ports/services"
	"github.com/SscSPs/roundup_vault/internal/dto"
	"github.com/SscSPs/roundup_vault/internal/middleware"
	"github.com/gin-gonic/gin"
)

// internalHandler serves the service-to-service surface: banking sync pushes,
// payout callbacks, scheduled triggers and operator actions.
type internalHandler struct {
	services *portssvc.ServiceContainer
	now      func() time.Time
}

func newInternalHandler(services *portssvc.ServiceContainer) *internalHandler {
	return &internalHandler{services: services, now: time.Now}
}

// registerInternalRoutes registers the internal routes. Callers authenticate with the internal API key.
func registerInternalRoutes(rg *gin.RouterGroup, services *portssvc.ServiceContainer) {
	h := newInternalHandler(services)

	rg.POST("/transactions", h.ingestTransactions)
	rg.POST("/bank-accounts", h.registerBankAccount)

	sweeps := rg.Group("/sweeps")
	{
		sweeps.POST("/trigger", h.triggerSweeps)
		sweeps.POST("/reconcile", h.reconcileSweeps)
		sweeps.POST("/:sweep_run_id/execute", h.executeSweepRun)
	}

	withdrawals := rg.Group("/withdrawals")
	{
		withdrawals.POST("/reconcile", h.reconcileWithdrawals)
		withdrawals.POST("/:withdrawal_id/settle", h.settleWithdrawal)
	}

	rg.POST("/balances/reconcile", h.reconcileBalances)
	rg.POST("/portfolios/sync", h.syncPortfolios)
	users := rg.Group("/users/:user_id")
	{
		users.GET("/balance", h.computeBalance)
		users.POST("/balance/reconcile", h.reconcileUserBalance)
		users.DELETE("/hold", h.releaseHold)
	}
}

// ingestTransactions godoc
// @Summary Ingest card transactions
// @Description Stores new transactions pushed by the banking sync and credits their round-ups. Replays are reported as duplicates.
// @Tags internal
// @Accept  json
// @Produce  json
// @Param   batch body dto.IngestTransactionsRequest true "Transactions"
// @Success 200 {object} dto.IngestTransactionsResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Invalid internal credentials"
// @Failure 500 {object} map[string]string "Internal server error"
// @Security InternalApiKey
// @Router /internal/transactions [post]
func (h *internalHandler) ingestTransactions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.IngestTransactionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for IngestTransactions", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	resp, err := h.services.Transaction.IngestTransactions(c.Request.Context(), req)
	if err != nil {
		respondError(c, logger, "IngestTransactions", err)
		return
	}

	logger.Info("Transactions ingested", slog.Int("created", resp.Created), slog.Int("duplicates", resp.Duplicates), slog.Int("failed", resp.Failed))
	c.JSON(http.StatusOK, resp)
}

// registerBankAccount godoc
// @Summary Register a linked bank account
// @Tags internal
// @Accept  json
// @Produce  json
// @Param   account body dto.RegisterBankAccountRequest true "Bank account"
// @Success 201 {object} domain.BankAccount
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Invalid internal credentials"
// @Failure 500 {object} map[string]string "Internal server error"
// @Security InternalApiKey
// @Router /internal/bank-accounts [post]
func (h *internalHandler) registerBankAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.RegisterBankAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for RegisterBankAccount", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	account, err := h.services.Transaction.RegisterBankAccount(c.Request.Context(), req)
	if err != nil {
		respondError(c, logger, "RegisterBankAccount", err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

// triggerSweeps godoc
// @Summary Trigger sweeps
// @Description Evaluates every configured user at the given instant (now when omitted) and executes due runs
// @Tags internal
// @Produce  json
// @Param   at query string false "Evaluation instant, RFC3339"
// @Success 200 {object} dto.SweepTriggerSummary
// @Failure 400 {object} map[string]string "Invalid instant"
// @Failure 401 {object} map[string]string "Invalid internal credentials"
// @Failure 500 {object} map[string]string "Internal server error"
// @Security InternalApiKey
// @Router /internal/sweeps/trigger [post]
func (h *internalHandler) triggerSweeps(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	at := h.now()
	if raw := c.Query("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			logger.Warn("Invalid trigger instant", slog.String("at", raw))
			c.JSON(http.StatusBadRequest, gin.H{"error": "at must be an RFC3339 timestamp"})
			return
		}
		at = parsed
	}

	summary, err := h.services.Sweep.TriggerSweeps(c.Request.Context(), at)
	if err != nil {
		respondError(c, logger, "TriggerSweeps", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// reconcileSweeps godoc
// @Summary Reconcile open sweep runs
// @Description Polls the brokerage for every pending or processing run and settles the finished ones
// @Tags internal
// @Produce  json
// @Success 200 {object} dto.ReconcileSweepsResponse
// @Failure 401 {object} map[string]string "Invalid internal credentials"
// @Failure 500 {object} map[string]string "Internal server error"
// @Security InternalApiKey
// @Router /internal/sweeps/reconcile [post]
func (h *internalHandler) reconcileSweeps(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	runs, err := h.services.Sweep.ReconcileOpenSweepRuns(c.Request.Context())
	if err != nil {
		respondError(c, logger, "ReconcileOpenSweepRuns", err)
		return
	}
	c.JSON(http.StatusOK, dto.ReconcileSweepsResponse{Runs: dto.ToSweepRunResponses(runs)})
}

// executeSweepRun godoc
// @Summary Execute a pending sweep run
// @Tags internal
// @Produce  json
// @Param   sweep_run_id path string true "Sweep run ID"
// @Success 200 {object} dto.SweepRunResponse
// @Failure 401 {object} map[string]string "Invalid internal credentials"
// @Failure 404 {object} map[string]string "Sweep run not found"
// @Failure 409 {object} map[string]string "Sweep run is not pending"
// @Failure 500 {object} map[string]string "Internal server error"
// @Security InternalApiKey
// @Router /internal/sweeps/{sweep_run_id}/execute [post]
func (h *internalHandler) executeSweepRun(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	run, err := h.services.Sweep.ExecuteSweepRun(c.Request.Context(), c.Param("sweep_run_id"))
	if err != nil {
		respondError(c, logger, "ExecuteSweepRun", err)
		return
	}
	c.JSON(http.StatusOK, dto.ToSweepRunResponse(run))
}

// reconcileWithdrawals godoc
// @Summary Reconcile open withdrawals
// @Description Polls the payout provider for open withdrawals and fails those past the settlement SLA
// @Tags internal
// @Produce  json
// @Success 200 {array} dto.WithdrawalResponse
// @Failure 401 {object} map[string]string "Invalid internal credentials"
// @Failure 500 {object} map[string]string "Internal server error"
// @Security InternalApiKey
// @Router /internal/withdrawals/reconcile [post]
func (h *internalHandler) reconcileWithdrawals(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	ws, err := h.services.Withdrawal.ReconcilePendingWithdrawals(c.Request.Context(), h.now())
	if err != nil {
		respondError(c, logger, "ReconcilePendingWithdrawals", err)
		return
	}
	c.JSON(http.StatusOK, dto.ToWithdrawalResponses(ws))
}

// settleWithdrawal godoc
// @Summary Settle a withdrawal
// @Description Payout provider callback. A failed outcome releases the reserved funds back to the vault.
// @Tags internal
// @Accept  json
// @Produce  json
// @Param   withdrawal_id path string true "Withdrawal ID"
// @Param   outcome body dto.SettleWithdrawalRequest true "Settlement outcome"
// @Success 200 {object} dto.WithdrawalResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Invalid internal credentials"
// @Failure 404 {object} map[string]string "Withdrawal not found"
// @Failure 409 {object} map[string]string "Withdrawal already settled differently"
// @Failure 500 {object} map[string]string "Internal server error"
// @Security InternalApiKey
// @Router /internal/withdrawals/{withdrawal_id}/settle [post]
func (h *internalHandler) settleWithdrawal(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.SettleWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for SettleWithdrawal", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	id := c.Param("withdrawal_id")
	w, err := h.services.Withdrawal.SettleWithdrawal(c.Request.Context(), id, domain.PayoutOutcome{
		Status:            domain.PayoutStatus(req.Status),
		ProviderReference: req.ProviderReference,
		Reason:            req.Reason,
	})
	if err != nil {
		respondError(c, logger, "SettleWithdrawal", err)
		return
	}

	logger.Info("Withdrawal settled", slog.String("withdrawal_id", id), slog.String("status", string(w.Status)))
	c.JSON(http.StatusOK, dto.ToWithdrawalResponse(w))
}

// reconcileBalances godoc
// @Summary Reconcile cached balances
// @Description Re-folds every user's ledger and repairs stale cache entries
// @Tags internal
// @Produce  json
// @Success 200 {object} dto.ReconcileBalancesResponse
// @Failure 401 {object} map[string]string "Invalid internal credentials"
// @Failure 500 {object} map[string]string "Internal server error"
// @Security InternalApiKey
// @Router /internal/balances/reconcile [post]
func (h *internalHandler) reconcileBalances(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	resp, err := h.services.Balance.ReconcileAllBalances(c.Request.Context())
	if err != nil {
		respondError(c, logger, "ReconcileAllBalances", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// syncPortfolios godoc
// @Summary Sync brokerage portfolios
// @Description Pulls positions from the brokerage for every user with a vault ledger
// @Tags internal
// @Produce  json
// @Success 200 {object} dto.SyncPortfoliosResponse
// @Failure 401 {object} map[string]string "Invalid internal credentials"
// @Failure 500 {object} map[string]string "Internal server error"
// @Security InternalApiKey
// @Router /internal/portfolios/sync [post]
func (h *internalHandler) syncPortfolios(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	resp, err := h.services.Portfolio.SyncAllPortfolios(c.Request.Context())
	if err != nil {
		respondError(c, logger, "SyncAllPortfolios", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// computeBalance godoc
// @Summary Fold a user's ledger
// @Description Computes the balance from the ledger, bypassing the cache. asOf limits the fold to earlier entries.
// @Tags internal
// @Produce  json
// @Param   user_id path string true "User ID"
// @Param   asOf query string false "Cut-off instant, RFC3339"
// @Success 200 {object} dto.BalanceResponse
// @Failure 400 {object} map[string]string "Invalid instant"
// @Failure 401 {object} map[string]string "Invalid internal credentials"
// @Failure 500 {object} map[string]string "Integrity failure"
// @Security InternalApiKey
// @Router /internal/users/{user_id}/balance [get]
func (h *internalHandler) computeBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var asOf *time.Time
	if raw := c.Query("asOf"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "asOf must be an RFC3339 timestamp"})
			return
		}
		asOf = &parsed
	}

	balance, err := h.services.Balance.ComputeBalance(c.Request.Context(), c.Param("user_id"), asOf)
	if err != nil {
		respondError(c, logger, "ComputeBalance", err)
		return
	}
	c.JSON(http.StatusOK, dto.ToBalanceResponse(balance))
}

// reconcileUserBalance godoc
// @Summary Reconcile one user's cached balance
// @Tags internal
// @Produce  json
// @Param   user_id path string true "User ID"
// @Success 200 {object} domain.BalanceReconciliation
// @Failure 401 {object} map[string]string "Invalid internal credentials"
// @Failure 500 {object} map[string]string "Integrity failure"
// @Security InternalApiKey
// @Router /internal/users/{user_id}/balance/reconcile [post]
func (h *internalHandler) reconcileUserBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	result, err := h.services.Balance.ReconcileBalance(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		respondError(c, logger, "ReconcileBalance", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// releaseHold godoc
// @Summary Release an integrity hold
// @Description Resumes automated sweeps for a user after manual review of the ledger
// @Tags internal
// @Param   user_id path string true "User ID"
// @Success 204 "No Content"
// @Failure 401 {object} map[string]string "Invalid internal credentials"
// @Failure 500 {object} map[string]string "Internal server error"
// @Security InternalApiKey
// @Router /internal/users/{user_id}/hold [delete]
func (h *internalHandler) releaseHold(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID := c.Param("user_id")
	if err := h.services.Integrity.ReleaseHold(c.Request.Context(), userID); err != nil {
		respondError(c, logger, "ReleaseHold", err)
		return
	}
	logger.Info("Integrity hold released", slog.String("user_id", userID))
	c.Status(http.StatusNoContent)
}
