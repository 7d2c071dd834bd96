package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/roundup_vault/internal/core/ports/services"
	"github.com/SscSPs/roundup_vault/internal/dto"
	"github.com/SscSPs/roundup_vault/internal/middleware"
	"github.com/gin-gonic/gin"
)

// vaultHandler handles HTTP requests for the user's vault balance and ledger.
type vaultHandler struct {
	balanceService portssvc.BalanceReaderSvc
}

func newVaultHandler(bs portssvc.BalanceReaderSvc) *vaultHandler {
	return &vaultHandler{balanceService: bs}
}

// registerVaultRoutes registers routes related to the vault.
func registerVaultRoutes(rg *gin.RouterGroup, balanceService portssvc.BalanceReaderSvc) {
	h := newVaultHandler(balanceService)

	vault := rg.Group("/vault")
	{
		vault.GET("/balance", h.getBalance)
		vault.GET("/entries", h.listEntries)
	}
}

// getBalance godoc
// @Summary Get vault balance
// @Description Returns the display balance of the authenticated user's vault and this month's round-up accrual
// @Tags vault
// @Produce  json
// @Success 200 {object} dto.BalanceResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Vault under review or internal error"
// @Security BearerAuth
// @Router /vault/balance [get]
func (h *vaultHandler) getBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}

	balance, err := h.balanceService.GetBalance(c.Request.Context(), userID)
	if err != nil {
		respondError(c, logger, "GetBalance", err)
		return
	}

	c.JSON(http.StatusOK, dto.ToBalanceResponse(balance))
}

// listEntries godoc
// @Summary List vault ledger entries
// @Description Returns the authenticated user's ledger entries, newest first, with cursor pagination
// @Tags vault
// @Produce  json
// @Param   limit query int false "Page size (1-100)"
// @Param   nextToken query string false "Cursor returned by the previous page"
// @Success 200 {object} dto.ListLedgerEntriesResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Security BearerAuth
// @Router /vault/entries [get]
func (h *vaultHandler) listEntries(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}

	var params dto.ListLedgerEntriesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for ListEntries", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	page, err := h.balanceService.ListEntries(c.Request.Context(), userID, params)
	if err != nil {
		respondError(c, logger, "ListEntries", err)
		return
	}

	c.JSON(http.StatusOK, page)
}
