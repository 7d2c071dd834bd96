package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/roundup_vault/internal/core/ports/services"
	"github.com/SscSPs/roundup_vault/internal/dto"
	"github.com/SscSPs/roundup_vault/internal/middleware"
	"github.com/gin-gonic/gin"
)

// portfolioHandler serves the user's brokerage holdings.
type portfolioHandler struct {
	portfolioService portssvc.PortfolioSvc
}

func newPortfolioHandler(ps portssvc.PortfolioSvc) *portfolioHandler {
	return &portfolioHandler{portfolioService: ps}
}

func registerPortfolioRoutes(rg *gin.RouterGroup, portfolioService portssvc.PortfolioSvc) {
	h := newPortfolioHandler(portfolioService)

	portfolio := rg.Group("/portfolio")
	{
		portfolio.GET("", h.getPortfolio)
		portfolio.POST("/sync", h.syncPortfolio)
	}
}

// getPortfolio godoc
// @Summary Get portfolio
// @Description Returns the last synced brokerage holdings of the authenticated user. Empty before the first sync.
// @Tags portfolio
// @Produce  json
// @Success 200 {object} dto.PortfolioResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Security BearerAuth
// @Router /portfolio [get]
func (h *portfolioHandler) getPortfolio(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}

	portfolio, err := h.portfolioService.GetPortfolio(c.Request.Context(), userID)
	if err != nil {
		respondError(c, logger, "GetPortfolio", err)
		return
	}
	c.JSON(http.StatusOK, dto.ToPortfolioResponse(portfolio))
}

// syncPortfolio godoc
// @Summary Refresh portfolio
// @Description Pulls the authenticated user's positions from the brokerage now
// @Tags portfolio
// @Produce  json
// @Success 200 {object} dto.PortfolioResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "No brokerage account"
// @Failure 502 {object} map[string]string "Brokerage unavailable"
// @Security BearerAuth
// @Router /portfolio/sync [post]
func (h *portfolioHandler) syncPortfolio(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}

	portfolio, err := h.portfolioService.SyncPortfolio(c.Request.Context(), userID)
	if err != nil {
		respondError(c, logger, "SyncPortfolio", err)
		return
	}

	logger.Info("Portfolio refreshed", slog.String("user_id", userID), slog.Int("positions", len(portfolio.Positions)))
	c.JSON(http.StatusOK, dto.ToPortfolioResponse(portfolio))
}
