package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/roundup_vault/internal/core/ports/services"
	"github.com/SscSPs/roundup_vault/internal/dto"
	"github.com/SscSPs/roundup_vault/internal/middleware"
	"github.com/gin-gonic/gin"
)

const defaultListLimit = 20

// sweepHandler handles a user's sweep configuration and history.
type sweepHandler struct {
	settingsService portssvc.SweepSettingsSvc
	sweepService    portssvc.SweepReaderSvc
}

func newSweepHandler(ss portssvc.SweepSettingsSvc, sr portssvc.SweepReaderSvc) *sweepHandler {
	return &sweepHandler{settingsService: ss, sweepService: sr}
}

// registerSweepRoutes registers routes related to sweeps.
func registerSweepRoutes(rg *gin.RouterGroup, settingsService portssvc.SweepSettingsSvc, sweepService portssvc.SweepReaderSvc) {
	h := newSweepHandler(settingsService, sweepService)

	settings := rg.Group("/sweep-settings")
	{
		settings.GET("", h.getSettings)
		settings.PUT("", h.updateSettings)
	}
	rg.GET("/sweeps", h.listSweepRuns)
}

// getSettings godoc
// @Summary Get sweep settings
// @Description Returns the user's sweep configuration, or the defaults when sweeps were never configured
// @Tags sweeps
// @Produce  json
// @Success 200 {object} dto.SweepSettingsResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Security BearerAuth
// @Router /sweep-settings [get]
func (h *sweepHandler) getSettings(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}

	settings, err := h.settingsService.GetSweepSettings(c.Request.Context(), userID)
	if err != nil {
		respondError(c, logger, "GetSweepSettings", err)
		return
	}
	c.JSON(http.StatusOK, dto.ToSweepSettingsResponse(settings))
}

// updateSettings godoc
// @Summary Update sweep settings
// @Description Changes the sweep day, caps, threshold, risk profile or active flag. Omitted fields keep their value.
// @Tags sweeps
// @Accept  json
// @Produce  json
// @Param   settings body dto.UpdateSweepSettingsRequest true "Fields to change"
// @Success 200 {object} dto.SweepSettingsResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Security BearerAuth
// @Router /sweep-settings [put]
func (h *sweepHandler) updateSettings(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}

	var req dto.UpdateSweepSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateSweepSettings", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	settings, err := h.settingsService.UpdateSweepSettings(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, logger, "UpdateSweepSettings", err)
		return
	}

	logger.Info("Sweep settings updated", slog.Bool("is_active", settings.IsActive), slog.Int("sweep_day", settings.SweepDay))
	c.JSON(http.StatusOK, dto.ToSweepSettingsResponse(settings))
}

// listSweepRuns godoc
// @Summary List sweep runs
// @Description Returns the user's sweep runs, most recent first
// @Tags sweeps
// @Produce  json
// @Param   limit query int false "Maximum number of runs (1-100)"
// @Success 200 {array} dto.SweepRunResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Security BearerAuth
// @Router /sweeps [get]
func (h *sweepHandler) listSweepRuns(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}

	var params dto.ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for ListSweepRuns", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}
	if params.Limit == 0 {
		params.Limit = defaultListLimit
	}

	runs, err := h.sweepService.ListSweepRuns(c.Request.Context(), userID, params.Limit)
	if err != nil {
		respondError(c, logger, "ListSweepRuns", err)
		return
	}
	c.JSON(http.StatusOK, dto.ToSweepRunResponses(runs))
}
