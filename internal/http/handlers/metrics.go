package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

var errInvalidDateRange = errors.New("invalid date range")

// parseDateRange accepts date-only or RFC3339 bounds and returns the start
// date plus an exclusive end one day past the last requested day, as the
// `YYYY-MM-DD` strings the local_date comparisons expect.
func parseDateRange(from, to string) (string, string, error) {
	start, err := parseDateParam(from)
	if err != nil {
		return "", "", errInvalidDateRange
	}
	end, err := parseDateParam(to)
	if err != nil {
		return "", "", errInvalidDateRange
	}
	if end.Before(start) {
		return "", "", errInvalidDateRange
	}
	endExclusive := end.AddDate(0, 0, 1)
	return start.Format("2006-01-02"), endExclusive.Format("2006-01-02"), nil
}

func parseDateParam(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func (h *Handler) dateRange(c *gin.Context) (string, string, bool) {
	start, end, err := parseDateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_QUERY", "from/to must be dates with from <= to", nil)
		return "", "", false
	}
	return start, end, true
}

func optionalQuery(c *gin.Context, name string) *string {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return nil
	}
	return &v
}

// @Summary Conversations attended per day
// @Tags metrics
// @Produce json
// @Param from query string true "Start date"
// @Param to query string true "End date (inclusive)"
// @Success 200 {array} db.CasesAttendedRow
// @Router /api/metrics/cases-attended [get]
func (h *Handler) CasesAttended(c *gin.Context) {
	start, end, ok := h.dateRange(c)
	if !ok {
		return
	}
	rows, err := h.Store.CasesAttendedByDay(c.Request.Context(), start, end)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to query day metrics", err.Error())
		return
	}
	c.JSON(http.StatusOK, rows)
}

// @Summary Conversations attended, range total
// @Tags metrics
// @Produce json
// @Param from query string true "Start date"
// @Param to query string true "End date (inclusive)"
// @Success 200 {object} db.CasesAttendedSummary
// @Router /api/metrics/cases-attended/summary [get]
func (h *Handler) CasesAttendedSummary(c *gin.Context) {
	start, end, ok := h.dateRange(c)
	if !ok {
		return
	}
	sum, err := h.Store.CasesAttendedTotal(c.Request.Context(), start, end)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to query day metrics", err.Error())
		return
	}
	c.JSON(http.StatusOK, sum)
}

// @Summary Per-team conversations attended per day
// @Tags metrics
// @Produce json
// @Param from query string true "Start date"
// @Param to query string true "End date (inclusive)"
// @Success 200 {array} db.TeamMetricsRow
// @Router /api/metrics/teams [get]
func (h *Handler) TeamMetrics(c *gin.Context) {
	start, end, ok := h.dateRange(c)
	if !ok {
		return
	}
	rows, err := h.Store.TeamMetricsByDay(c.Request.Context(), start, end)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to query team metrics", err.Error())
		return
	}
	c.JSON(http.StatusOK, rows)
}

// @Summary Raw team day counters
// @Tags metrics
// @Produce json
// @Param uuid path string true "Team UUID"
// @Param from query string true "Start date"
// @Param to query string true "End date (inclusive)"
// @Success 200 {array} db.TeamDailyRow
// @Router /api/metrics/teams/{uuid}/daily [get]
func (h *Handler) TeamDaily(c *gin.Context) {
	start, end, ok := h.dateRange(c)
	if !ok {
		return
	}
	rows, err := h.Store.TeamDailyMetrics(c.Request.Context(), c.Param("uuid"), start, end)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to query team day metrics", err.Error())
		return
	}
	c.JSON(http.StatusOK, rows)
}

// @Summary First-response latency per day, team, and agent
// @Tags metrics
// @Produce json
// @Param from query string true "Start date"
// @Param to query string true "End date (inclusive)"
// @Param team_uuid query string false "Filter by team"
// @Param agent_email query string false "Filter by agent"
// @Success 200 {array} db.FirstResponseRow
// @Router /api/metrics/first-response [get]
func (h *Handler) FirstResponse(c *gin.Context) {
	start, end, ok := h.dateRange(c)
	if !ok {
		return
	}
	rows, err := h.Store.FirstResponseByDay(c.Request.Context(), start, end,
		optionalQuery(c, "team_uuid"), optionalQuery(c, "agent_email"))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to query first-response metrics", err.Error())
		return
	}
	c.JSON(http.StatusOK, rows)
}

// @Summary First-response SLA attainment
// @Tags metrics
// @Produce json
// @Param from query string true "Start date"
// @Param to query string true "End date (inclusive)"
// @Param max_seconds query int true "SLA threshold in seconds"
// @Param team_uuid query string false "Filter by team"
// @Param agent_email query string false "Filter by agent"
// @Success 200 {array} db.FirstResponseSLARow
// @Router /api/metrics/first-response/sla [get]
func (h *Handler) FirstResponseSLA(c *gin.Context) {
	start, end, ok := h.dateRange(c)
	if !ok {
		return
	}
	maxSeconds, err := strconv.ParseInt(c.Query("max_seconds"), 10, 64)
	if err != nil || maxSeconds <= 0 {
		writeError(c, http.StatusBadRequest, "INVALID_QUERY", "max_seconds must be a positive integer", nil)
		return
	}
	rows, err := h.Store.FirstResponseSLA(c.Request.Context(), start, end, maxSeconds,
		optionalQuery(c, "team_uuid"), optionalQuery(c, "agent_email"))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to query SLA metrics", err.Error())
		return
	}
	c.JSON(http.StatusOK, rows)
}

// @Summary First-response latency per agent
// @Tags metrics
// @Produce json
// @Param from query string true "Start date"
// @Param to query string true "End date (inclusive)"
// @Param team_uuid query string false "Filter by team"
// @Success 200 {array} db.AgentFirstResponseRow
// @Router /api/metrics/first-response/agents [get]
func (h *Handler) FirstResponseAgents(c *gin.Context) {
	start, end, ok := h.dateRange(c)
	if !ok {
		return
	}
	rows, err := h.Store.FirstResponseByAgent(c.Request.Context(), start, end, optionalQuery(c, "team_uuid"))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to query agent metrics", err.Error())
		return
	}
	c.JSON(http.StatusOK, rows)
}

// @Summary Agent ranking by average first-response latency
// @Tags metrics
// @Produce json
// @Param from query string true "Start date"
// @Param to query string true "End date (inclusive)"
// @Param order query string false "asc or desc" default(asc)
// @Param limit query int false "Max agents" default(10)
// @Param team_uuid query string false "Filter by team"
// @Success 200 {array} db.AgentFirstResponseRow
// @Router /api/metrics/first-response/agents/ranking [get]
func (h *Handler) FirstResponseRanking(c *gin.Context) {
	start, end, ok := h.dateRange(c)
	if !ok {
		return
	}
	order := c.DefaultQuery("order", "asc")
	if order != "asc" && order != "desc" {
		writeError(c, http.StatusBadRequest, "INVALID_QUERY", "order must be asc or desc", nil)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	rows, err := h.Store.FirstResponseAgentRanking(c.Request.Context(), start, end,
		order == "desc", limit, optionalQuery(c, "team_uuid"))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to query agent ranking", err.Error())
		return
	}
	c.JSON(http.StatusOK, rows)
}

// @Summary Resolution duration per day, team, and agent
// @Tags metrics
// @Produce json
// @Param from query string true "Start date"
// @Param to query string true "End date (inclusive)"
// @Param team_uuid query string false "Filter by team"
// @Param agent_email query string false "Filter by agent"
// @Success 200 {array} db.ResolutionRow
// @Router /api/metrics/resolution [get]
func (h *Handler) Resolution(c *gin.Context) {
	start, end, ok := h.dateRange(c)
	if !ok {
		return
	}
	rows, err := h.Store.ResolutionByDay(c.Request.Context(), start, end,
		optionalQuery(c, "team_uuid"), optionalQuery(c, "agent_email"))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to query resolution metrics", err.Error())
		return
	}
	c.JSON(http.StatusOK, rows)
}
