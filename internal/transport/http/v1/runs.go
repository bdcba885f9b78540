package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GetRun returns a run by ID.
func (h *Handler) GetRun(c echo.Context) error {
	run, err := h.service.GetRun(c.Request().Context(), c.Param("run_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, run)
}

// ListNodeRuns returns all runs recorded for a node.
func (h *Handler) ListNodeRuns(c echo.Context) error {
	runs, err := h.service.ListNodeRuns(c.Request().Context(), c.Param("node_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"node_id": c.Param("node_id"),
		"runs":    runs,
		"count":   len(runs),
	})
}
