package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GetRunReliability returns the recomputed reliability summary for a run.
func (h *Handler) GetRunReliability(c echo.Context) error {
	metrics, err := h.service.GetRunReliability(c.Request().Context(), c.Param("run_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, metrics)
}

// GetNodeReliability returns the reliability summary for a node's most
// recent terminal run.
func (h *Handler) GetNodeReliability(c echo.Context) error {
	metrics, err := h.service.GetNodeReliability(c.Request().Context(), c.Param("node_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, metrics)
}
