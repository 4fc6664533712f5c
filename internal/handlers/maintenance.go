package handlers

import (
	"errors"
	"net/http"

	"air_monitor/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errLoadMaintenance  = "failed to load maintenance record"
	errCheckMaintenance = "maintenance check failed"
)

// @Summary      Get maintenance record
// @Tags         maintenance
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "recorded, last_reset_at"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/maintenance [get]
// @Security     BearerAuth
func (h *Handler) getMaintenance(c *gin.Context) {
	ctx := c.Request.Context()
	rec, ok, err := h.services.Maintenance.Record(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errLoadMaintenance, "maintenance_load_failed", err)
		return
	}
	resp := gin.H{"recorded": ok}
	if ok {
		resp["last_reset_at"] = rec.LastResetAt.UTC()
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary      Run maintenance check
// @Description  Performs the weekly device reset if it is due
// @Tags         maintenance
// @Produce      json
// @Success      200  {object}  service.ResetResult
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/maintenance/check [post]
// @Security     BearerAuth
func (h *Handler) checkMaintenance(c *gin.Context) {
	ctx := c.Request.Context()
	res, err := h.services.Monitoring.CheckMaintenance(ctx)
	if err != nil {
		if errors.Is(err, service.ErrSessionClosed) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errCheckMaintenance, "maintenance_check_failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}
