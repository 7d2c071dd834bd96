package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/roundup_vault/internal/core/ports/services"
	"github.com/SscSPs/roundup_vault/internal/dto"
	"github.com/SscSPs/roundup_vault/internal/middleware"
	"github.com/gin-gonic/gin"
)

// withdrawalHandler handles withdrawal requests from vault owners.
type withdrawalHandler struct {
	withdrawalService portssvc.WithdrawalSvcFacade
}

func newWithdrawalHandler(ws portssvc.WithdrawalSvcFacade) *withdrawalHandler {
	return &withdrawalHandler{withdrawalService: ws}
}

// registerWithdrawalRoutes registers routes related to withdrawals. createLimit guards the write path only.
func registerWithdrawalRoutes(rg *gin.RouterGroup, withdrawalService portssvc.WithdrawalSvcFacade, createLimit gin.HandlerFunc) {
	h := newWithdrawalHandler(withdrawalService)

	withdrawals := rg.Group("/withdrawals")
	{
		if createLimit != nil {
			withdrawals.POST("", createLimit, h.createWithdrawal)
		} else {
			withdrawals.POST("", h.createWithdrawal)
		}
		withdrawals.GET("", h.listWithdrawals)
		withdrawals.GET("/:withdrawal_id", h.getWithdrawal)
	}
}

// createWithdrawal godoc
// @Summary Withdraw vault funds
// @Description Reserves the amount against the vault and dispatches a payout to one of the user's bank accounts
// @Tags withdrawals
// @Accept  json
// @Produce  json
// @Param   withdrawal body dto.CreateWithdrawalRequest true "Withdrawal details"
// @Success 202 {object} dto.WithdrawalResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 409 {object} map[string]string "Concurrent vault mutation, retry"
// @Failure 422 {object} map[string]string "Insufficient vault balance"
// @Failure 429 {object} map[string]string "Too many requests"
// @Failure 500 {object} map[string]string "Internal server error"
// @Security BearerAuth
// @Router /withdrawals [post]
func (h *withdrawalHandler) createWithdrawal(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}

	var req dto.CreateWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateWithdrawal", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	logger.Info("Received withdrawal request", slog.String("amount", req.Amount.String()), slog.String("destination_account_id", req.DestinationAccountID))

	w, err := h.withdrawalService.RequestWithdrawal(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, logger, "RequestWithdrawal", err)
		return
	}

	// The payout settles asynchronously.
	c.JSON(http.StatusAccepted, dto.ToWithdrawalResponse(w))
}

// listWithdrawals godoc
// @Summary List withdrawals
// @Description Returns the user's withdrawals, most recent first
// @Tags withdrawals
// @Produce  json
// @Param   limit query int false "Maximum number of withdrawals (1-100)"
// @Success 200 {array} dto.WithdrawalResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Security BearerAuth
// @Router /withdrawals [get]
func (h *withdrawalHandler) listWithdrawals(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}

	var params dto.ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for ListWithdrawals", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}
	if params.Limit == 0 {
		params.Limit = defaultListLimit
	}

	ws, err := h.withdrawalService.ListWithdrawals(c.Request.Context(), userID, params.Limit)
	if err != nil {
		respondError(c, logger, "ListWithdrawals", err)
		return
	}
	c.JSON(http.StatusOK, dto.ToWithdrawalResponses(ws))
}

// getWithdrawal godoc
// @Summary Get a withdrawal
// @Tags withdrawals
// @Produce  json
// @Param   withdrawal_id path string true "Withdrawal ID"
// @Success 200 {object} dto.WithdrawalResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Withdrawal not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Security BearerAuth
// @Router /withdrawals/{withdrawal_id} [get]
func (h *withdrawalHandler) getWithdrawal(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}

	w, err := h.withdrawalService.GetWithdrawal(c.Request.Context(), userID, c.Param("withdrawal_id"))
	if err != nil {
		respondError(c, logger, "GetWithdrawal", err)
		return
	}
	c.JSON(http.StatusOK, dto.ToWithdrawalResponse(w))
}
