// Package v1 provides the dashboard-facing HTTP handlers.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/workautomate224-lang/agentverse-sub002/internal/domain"
	"github.com/workautomate224-lang/agentverse-sub002/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers external routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Runs and replay
	e.GET("/v1/runs/:run_id", h.GetRun)
	e.GET("/v1/runs/:run_id/slices/:tick", h.GetSlice)
	e.GET("/v1/runs/:run_id/slices", h.GetRange)
	e.GET("/v1/runs/:run_id/replay/stream", h.StreamReplay)

	// Reliability
	e.GET("/v1/runs/:run_id/reliability", h.GetRunReliability)
	e.GET("/v1/nodes/:node_id/reliability", h.GetNodeReliability)

	// Statistics
	e.GET("/v1/nodes/:node_id/stats", h.GetStats)

	// Determinism
	e.GET("/v1/runs/:run_id/determinism", h.GetDeterminismSignature)
	e.GET("/v1/runs/compare", h.CompareRuns)

	// Branching graph
	e.GET("/v1/nodes/:node_id", h.GetNode)
	e.GET("/v1/nodes/:node_id/runs", h.ListNodeRuns)
	e.POST("/v1/nodes/:node_id/fork", h.Fork)
	e.POST("/v1/nodes/:node_id/normalize", h.NormalizeSiblings)
	e.GET("/v1/projects/:project_id/consistency", h.VerifyConsistency)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// writeError maps domain errors onto HTTP status codes. Insufficient data
// and degraded replay never travel this path; they are typed non-error
// states on the response bodies.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, domain.ErrorResponse{Error: err.Error()})
	case domain.IsValidation(err):
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return c.JSON(http.StatusConflict, domain.ErrorResponse{Error: err.Error(), Retryable: true})
	default:
		return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Error: err.Error()})
	}
}
