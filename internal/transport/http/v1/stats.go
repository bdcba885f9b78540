package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/workautomate224-lang/agentverse-sub002/internal/domain"
)

// GetStats returns the cross-run statistical summary for a (node, metric)
// pair. Thresholds are passed as a comma-separated, non-decreasing list.
func (h *Handler) GetStats(c echo.Context) error {
	req := domain.StatsRequest{
		MetricKey: c.QueryParam("metric_key"),
		Op:        domain.ComparisonOp(c.QueryParam("op")),
	}
	if raw := c.QueryParam("min_runs"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return writeError(c, domain.NewValidationError("min_runs", "min_runs must be an integer"))
		}
		req.MinRuns = v
	}
	if raw := c.QueryParam("thresholds"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return writeError(c, domain.NewValidationError("thresholds", "thresholds must be a comma-separated list of numbers"))
			}
			req.Thresholds = append(req.Thresholds, v)
		}
	}

	summary, err := h.service.GetStatisticalSummary(c.Request().Context(), c.Param("node_id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}
