package handlers

import (
	"errors"
	"io"
	"net/http"

	"air_monitor/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK        = "ok"
	statusDismissed = "dismissed"

	errGetState        = "failed to load state"
	errDismiss         = "failed to dismiss notification"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// DismissRequest is the optional body of the dismiss call. An empty ID
// dismisses whatever is pending.
type DismissRequest struct {
	ID string `json:"id,omitempty" example:"1b4e28ba-2fa1-11d2-883f-0016d3cca427"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Get dashboard state
// @Description  Latest readings, per-sensor status, abnormal sensors and the pending notification
// @Tags         sensors
// @Produce      json
// @Success      200  {object}  models.DashboardState
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/sensors/state [get]
// @Security     BearerAuth
func (h *Handler) getState(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := h.services.Monitoring.GetState(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "sensors_get_state_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Dismiss notification
// @Description  Clears the pending notification. If id is given it must match the pending one.
// @Tags         sensors
// @Accept       json
// @Produce      json
// @Param        body  body   DismissRequest  false  "Notification to dismiss"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/sensors/notification/dismiss [post]
// @Security     BearerAuth
func (h *Handler) dismissNotification(c *gin.Context) {
	var req DismissRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	ctx := c.Request.Context()
	if err := h.services.Monitoring.Dismiss(ctx, req.ID); err != nil {
		if errors.Is(err, service.ErrNotificationMismatch) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errDismiss, "sensors_dismiss_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusDismissed})
}
