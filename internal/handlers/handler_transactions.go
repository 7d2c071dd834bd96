package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/roundup_vault/internal/core/ports/services"
	"github.com/SscSPs/roundup_vault/internal/dto"
	"github.com/SscSPs/roundup_vault/internal/middleware"
	"github.com/gin-gonic/gin"
)

// transactionHandler handles user corrections of ingested transactions and merchant exclusions.
type transactionHandler struct {
	transactionService portssvc.TransactionSvcFacade
}

func newTransactionHandler(ts portssvc.TransactionSvcFacade) *transactionHandler {
	return &transactionHandler{transactionService: ts}
}

// registerTransactionRoutes registers user-facing transaction routes.
func registerTransactionRoutes(rg *gin.RouterGroup, transactionService portssvc.TransactionSvcFacade) {
	h := newTransactionHandler(transactionService)

	rg.PATCH("/transactions/:transaction_id", h.correctTransaction)

	merchants := rg.Group("/excluded-merchants")
	{
		merchants.GET("", h.listExcludedMerchants)
		merchants.POST("", h.addExcludedMerchant)
		merchants.DELETE("/:merchant_name", h.removeExcludedMerchant)
	}
}

// correctTransaction godoc
// @Summary Correct a transaction
// @Description Changes the category or exclusion flag of a transaction. The round-up is reversed or re-credited to match.
// @Tags transactions
// @Accept  json
// @Produce  json
// @Param   transaction_id path string true "Transaction ID"
// @Param   correction body dto.CorrectTransactionRequest true "Fields to change"
// @Success 200 {object} dto.TransactionResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 409 {object} map[string]string "Concurrent vault mutation, retry"
// @Failure 500 {object} map[string]string "Internal server error"
// @Security BearerAuth
// @Router /transactions/{transaction_id} [patch]
func (h *transactionHandler) correctTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}

	var req dto.CorrectTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CorrectTransaction", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	txnID := c.Param("transaction_id")
	txn, err := h.transactionService.CorrectTransaction(c.Request.Context(), userID, txnID, req)
	if err != nil {
		respondError(c, logger, "CorrectTransaction", err)
		return
	}

	logger.Info("Transaction corrected", slog.String("transaction_id", txnID))
	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}

// listExcludedMerchants godoc
// @Summary List excluded merchants
// @Tags merchants
// @Produce  json
// @Success 200 {array} domain.ExcludedMerchant
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Security BearerAuth
// @Router /excluded-merchants [get]
func (h *transactionHandler) listExcludedMerchants(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}

	merchants, err := h.transactionService.ListExcludedMerchants(c.Request.Context(), userID)
	if err != nil {
		respondError(c, logger, "ListExcludedMerchants", err)
		return
	}
	c.JSON(http.StatusOK, merchants)
}

// addExcludedMerchant godoc
// @Summary Exclude a merchant from round-ups
// @Description Future transactions at this merchant are not rounded up. Matching ignores case.
// @Tags merchants
// @Accept  json
// @Produce  json
// @Param   merchant body dto.ExcludedMerchantRequest true "Merchant"
// @Success 201 {object} domain.ExcludedMerchant
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 409 {object} map[string]string "Merchant already excluded"
// @Failure 500 {object} map[string]string "Internal server error"
// @Security BearerAuth
// @Router /excluded-merchants [post]
func (h *transactionHandler) addExcludedMerchant(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}

	var req dto.ExcludedMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for AddExcludedMerchant", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	merchant, err := h.transactionService.AddExcludedMerchant(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, logger, "AddExcludedMerchant", err)
		return
	}
	c.JSON(http.StatusCreated, merchant)
}

// removeExcludedMerchant godoc
// @Summary Stop excluding a merchant
// @Tags merchants
// @Param   merchant_name path string true "Merchant name"
// @Success 204 "No Content"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Merchant not excluded"
// @Failure 500 {object} map[string]string "Internal server error"
// @Security BearerAuth
// @Router /excluded-merchants/{merchant_name} [delete]
func (h *transactionHandler) removeExcludedMerchant(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}

	if err := h.transactionService.RemoveExcludedMerchant(c.Request.Context(), userID, c.Param("merchant_name")); err != nil {
		respondError(c, logger, "RemoveExcludedMerchant", err)
		return
	}
	c.Status(http.StatusNoContent)
}
