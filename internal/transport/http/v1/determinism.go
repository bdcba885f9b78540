package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/workautomate224-lang/agentverse-sub002/internal/domain"
)

// GetDeterminismSignature returns the canonical config/result/telemetry
// hashes for a terminal run.
func (h *Handler) GetDeterminismSignature(c echo.Context) error {
	sig, err := h.service.GetDeterminismSignature(c.Request().Context(), c.Param("run_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sig)
}

// CompareRuns compares the determinism signatures of two runs.
func (h *Handler) CompareRuns(c echo.Context) error {
	runA := c.QueryParam("run_a")
	runB := c.QueryParam("run_b")
	if runA == "" || runB == "" {
		return writeError(c, domain.NewValidationError("run_a", "run_a and run_b query parameters are required"))
	}
	result, err := h.service.CompareRuns(c.Request().Context(), runA, runB)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
