package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"grid_supervisor/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid  = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid    = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"
	errLimitInvalid = "invalid 'limit'; must be a positive integer"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// isDateOnly reports whether the query string represents a date without time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

// parseRange reads the optional from/to query pair. A date-only 'to' covers
// the whole day. It writes a 400 and returns false on bad input.
func parseRange(c *gin.Context) (from, to time.Time, ok bool) {
	var err error
	if qs := c.Query("from"); qs != "" {
		if from, err = parseQueryTime(qs); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errFromInvalid})
			return from, to, false
		}
	}
	if qs := c.Query("to"); qs != "" {
		if to, err = parseQueryTime(qs); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errToInvalid})
			return from, to, false
		}
		if isDateOnly(qs) {
			to = to.Add(24*time.Hour - time.Nanosecond).UTC()
		}
	}
	return from, to, true
}

// historyStatus maps filter validation errors to 400 and anything else to 500.
func historyStatus(err error) int {
	if errors.Is(err, service.ErrInvalidTimeRange) || errors.Is(err, service.ErrUnknownEventKind) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// @Summary      List operator log
// @Description  Persisted log lines filtered by date (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD') and kind. A date-only 'to' is end-of-day inclusive.
// @Tags         history
// @Produce      json
// @Param        from  query   string  false  "Start of range"  example(2025-08-01)
// @Param        to    query   string  false  "End of range. Date-only treated as end of day."  example(2025-08-31)
// @Param        kind  query   string  false  "Event kind"  Enums(SEQUENCE,ALERT,TRIP,OPERATOR,SCENARIO,FAULT,SYSTEM)
// @Success      200   {object}  map[string]interface{}  "count, events"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/logs [get]
// @Security     BearerAuth
func (h *Handler) getLogs(c *gin.Context) {
	from, to, ok := parseRange(c)
	if !ok {
		return
	}
	kind := c.Query("kind")
	events, err := h.services.EventLog.List(c.Request.Context(), service.LogFilter{
		From: from,
		To:   to,
		Kind: kind,
	})
	if err != nil {
		if code := historyStatus(err); code == http.StatusBadRequest {
			c.JSON(code, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load logs", "logs_list_failed", err,
			"from", from, "to", to, "kind", kind)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(events),
		"events": events,
	})
}

// @Summary      Telemetry history
// @Description  Newest per-tick samples inside the range, returned oldest first.
// @Tags         history
// @Produce      json
// @Param        from   query  string  false  "Start of range"
// @Param        to     query  string  false  "End of range. Date-only treated as end of day."
// @Param        limit  query  int     false  "Maximum samples (default 600)"
// @Success      200    {object}  map[string]interface{}  "count, samples"
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Failure      500    {object}  map[string]string
// @Router       /api/v1/telemetry [get]
// @Security     BearerAuth
func (h *Handler) getTelemetry(c *gin.Context) {
	from, to, ok := parseRange(c)
	if !ok {
		return
	}
	var limit int
	if qs := c.Query("limit"); qs != "" {
		n, err := strconv.Atoi(qs)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": errLimitInvalid})
			return
		}
		limit = n
	}
	samples, err := h.services.Telemetry.History(c.Request.Context(), service.TelemetryFilter{
		From:  from,
		To:    to,
		Limit: limit,
	})
	if err != nil {
		if code := historyStatus(err); code == http.StatusBadRequest {
			c.JSON(code, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load telemetry", "telemetry_list_failed", err,
			"from", from, "to", to, "limit", limit)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(samples),
		"samples": samples,
	})
}

func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf(
		"invalid time format %q, expected one of: "+
			"RFC3339 (e.g. 2025-08-27T15:04:05Z), "+
			"'YYYY-MM-DD HH:MM:SS', "+
			"'YYYY-MM-DD'",
		s,
	)
}
