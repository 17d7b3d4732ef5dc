package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"grid_supervisor/internal/grid"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK = "ok"

	errGetState        = "failed to load state"
	errCommandFailed   = "command failed"
	errInvalidBodyPref = "invalid body: "
	errInvalidID       = "invalid id: must be an integer"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// commandStatus maps a command error to its HTTP status.
func commandStatus(err error) int {
	switch {
	case errors.Is(err, grid.ErrRejected):
		return http.StatusConflict
	case errors.Is(err, grid.ErrUnknownSetting), errors.Is(err, grid.ErrUnknownComponent):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// runCommand executes one grid command and responds with the resulting state.
// Rejections and bad input carry the engine's message; anything else is logged.
func (h *Handler) runCommand(c *gin.Context, command string, fn func(ctx context.Context) error) {
	if err := fn(c.Request.Context()); err != nil {
		code := commandStatus(err)
		if code == http.StatusInternalServerError {
			h.logAndJSONError(c, code, errCommandFailed, "grid_command_failed", err, "command", command)
			return
		}
		c.JSON(code, gin.H{"error": err.Error()})
		return
	}
	h.respondWithStatusAndState(c, command, gin.H{})
}

// Respond with a status and include current state if available (best-effort).
func (h *Handler) respondWithStatusAndState(c *gin.Context, status string, extra gin.H) {
	resp := gin.H{"status": status}
	for k, v := range extra {
		resp[k] = v
	}
	if st, err := h.services.Monitoring.GetState(c.Request.Context()); err == nil {
		resp["state"] = st
	}
	c.JSON(http.StatusOK, resp)
}

// pathID parses the :id segment, writing a 400 when it is not an integer.
func pathID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidID})
		return 0, false
	}
	return id, true
}

// EmergencyStopRequest is the optional body of an emergency shutdown.
type EmergencyStopRequest struct {
	// Reason written to the operator log. Empty means a generic operator reason.
	Reason string `json:"reason" example:"Smoke reported in turbine hall"`
}

// SettingRequest changes one operator set point.
type SettingRequest struct {
	// Setting key. Allowed: plantDispatch, targetVoltage, targetFrequency
	Key string `json:"key" binding:"required" example:"targetVoltage"`
	// New value; clamped to the setting's range
	Value *float64 `json:"value" binding:"required" example:"1.02"`
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

// @Summary      Get grid snapshot
// @Tags         grid
// @Produce      json
// @Success      200  {object}  models.Snapshot
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/grid/state [get]
// @Security     BearerAuth
func (h *Handler) getState(c *gin.Context) {
	st, err := h.services.Monitoring.GetState(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "grid_get_state_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Start the grid
// @Description  Runs the startup sequence. Allowed from OFFLINE or BLACKOUT.
// @Tags         grid
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, state"
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      429  {object}  map[string]string
// @Router       /api/v1/grid/start [post]
// @Security     BearerAuth
func (h *Handler) startGrid(c *gin.Context) {
	h.runCommand(c, "started", h.services.Grid.Start)
}

// @Summary      Controlled shutdown
// @Description  Runs the shutdown sequence. Allowed from STABLE or ALERT.
// @Tags         grid
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/grid/stop [post]
// @Security     BearerAuth
func (h *Handler) stopGrid(c *gin.Context) {
	h.runCommand(c, "stopping", h.services.Grid.Stop)
}

// @Summary      Emergency shutdown
// @Description  Trips the grid to BLACKOUT immediately and runs the emergency sequence.
// @Tags         grid
// @Accept       json
// @Produce      json
// @Param        body  body  EmergencyStopRequest  false  "Reason"
// @Success      200   {object}  map[string]interface{}
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/grid/emergency-stop [post]
// @Security     BearerAuth
func (h *Handler) emergencyStop(c *gin.Context) {
	var req EmergencyStopRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
			return
		}
	}
	h.runCommand(c, "tripped", func(ctx context.Context) error {
		return h.services.Grid.EmergencyShutdown(ctx, req.Reason)
	})
}

// @Summary      Update a set point
// @Tags         grid
// @Accept       json
// @Produce      json
// @Param        body  body  SettingRequest  true  "Setting"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/grid/settings [post]
// @Security     BearerAuth
func (h *Handler) updateSetting(c *gin.Context) {
	var req SettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	h.runCommand(c, "setting_updated", func(ctx context.Context) error {
		return h.services.Grid.UpdateSetting(ctx, req.Key, *req.Value)
	})
}

// @Summary      Acknowledge alert
// @Description  Returns the grid from ALERT to STABLE.
// @Tags         grid
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/grid/alert/ack [post]
// @Security     BearerAuth
func (h *Handler) acknowledgeAlert(c *gin.Context) {
	h.runCommand(c, "acknowledged", h.services.Grid.AcknowledgeAlert)
}

// @Summary      Toggle substation breaker
// @Tags         grid
// @Produce      json
// @Param        id   path  int  true  "Substation id (1-7)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/grid/substations/{id}/toggle [post]
// @Security     BearerAuth
func (h *Handler) toggleSubstation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	h.runCommand(c, "toggled", func(ctx context.Context) error {
		return h.services.Grid.ToggleSubstation(ctx, id)
	})
}

// @Summary      Inject a transmission line fault
// @Tags         faults
// @Produce      json
// @Param        id   path  int  true  "Line id (1-7)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/grid/faults/line/{id} [post]
// @Security     BearerAuth
func (h *Handler) lineFault(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	h.runCommand(c, "fault_injected", func(ctx context.Context) error {
		return h.services.Grid.TriggerLineFault(ctx, id)
	})
}

// @Summary      Inject a substation fault
// @Tags         faults
// @Produce      json
// @Param        id   path  int  true  "Substation id (1-7)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/grid/faults/substation/{id} [post]
// @Security     BearerAuth
func (h *Handler) substationFault(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	h.runCommand(c, "fault_injected", func(ctx context.Context) error {
		return h.services.Grid.TriggerSubstationFault(ctx, id)
	})
}

// @Summary      Inject a city load surge
// @Tags         faults
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/grid/faults/load-surge [post]
// @Security     BearerAuth
func (h *Handler) loadSurge(c *gin.Context) {
	h.runCommand(c, "fault_injected", h.services.Grid.TriggerLoadSurge)
}

// @Summary      Clear all faults
// @Tags         faults
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/v1/grid/faults/reset [post]
// @Security     BearerAuth
func (h *Handler) resetFaults(c *gin.Context) {
	h.runCommand(c, "faults_reset", h.services.Grid.ResetFaults)
}
