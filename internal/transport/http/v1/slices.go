package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/workautomate224-lang/agentverse-sub002/internal/domain"
)

// GetSlice reconstructs the world state at a single tick of a sealed run.
func (h *Handler) GetSlice(c echo.Context) error {
	tick, err := strconv.ParseInt(c.Param("tick"), 10, 64)
	if err != nil {
		return writeError(c, domain.NewValidationError("tick", "tick must be an integer"))
	}
	slice, err := h.service.GetSlice(c.Request().Context(), c.Param("run_id"), tick)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, slice)
}

// GetRange reconstructs slices over [start, end) with optional downsampling.
func (h *Handler) GetRange(c echo.Context) error {
	start, err := queryInt64(c, "start", 0)
	if err != nil {
		return writeError(c, err)
	}
	end, err := queryInt64(c, "end", -1)
	if err != nil {
		return writeError(c, err)
	}
	if end < 0 {
		return writeError(c, domain.NewValidationError("end", "end query parameter is required"))
	}
	downsample, err := queryInt64(c, "downsample", 1)
	if err != nil {
		return writeError(c, err)
	}

	slices, err := h.service.GetRange(c.Request().Context(), c.Param("run_id"), start, end, downsample)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"run_id": c.Param("run_id"),
		"start":  start,
		"end":    end,
		"slices": slices,
		"count":  len(slices),
	})
}

func queryInt64(c echo.Context, name string, fallback int64) (int64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, domain.NewValidationError(name, name+" must be an integer")
	}
	return v, nil
}
