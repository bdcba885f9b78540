// Package internalapi provides the worker-facing HTTP handlers: run
// lifecycle, telemetry ingestion and baseline node registration. These
// routes are served on the internal port and are never exposed to the
// dashboard.
package internalapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/workautomate224-lang/agentverse-sub002/internal/domain"
	"github.com/workautomate224-lang/agentverse-sub002/internal/service"
)

// WorkerTokenHeader carries the executing worker's run claim. Telemetry
// appends are accepted only when it matches the target run, keeping the
// recording single-writer.
const WorkerTokenHeader = "X-Worker-Token"

// Handler handles internal HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new internal handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers internal routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/internal/runs", h.CreateRun)
	e.POST("/internal/runs/:run_id/status", h.AdvanceRunStatus)
	e.POST("/internal/runs/:run_id/progress", h.UpdateRunProgress)
	e.POST("/internal/runs/:run_id/keyframes", h.AppendKeyframe)
	e.POST("/internal/runs/:run_id/deltas", h.AppendDeltas)
	e.POST("/internal/runs/:run_id/complete", h.CompleteRun)
	e.GET("/internal/runs/:run_id/telemetry", h.GetTelemetryMeta)
	e.POST("/internal/projects/:project_id/baseline", h.CreateBaseline)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

// CreateRun registers a queued run for a node.
func (h *Handler) CreateRun(c echo.Context) error {
	var req domain.CreateRunRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, domain.NewValidationError("body", "invalid request body"))
	}
	run, err := h.service.CreateRun(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, run)
}

// AdvanceRunStatus applies a forward status transition.
func (h *Handler) AdvanceRunStatus(c echo.Context) error {
	var req domain.RunStatusRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, domain.NewValidationError("body", "invalid request body"))
	}
	run, err := h.service.AdvanceRunStatus(c.Request().Context(), c.Param("run_id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, run)
}

// UpdateRunProgress advances a running run's current tick.
func (h *Handler) UpdateRunProgress(c echo.Context) error {
	var req struct {
		CurrentTick int64 `json:"current_tick"`
	}
	if err := c.Bind(&req); err != nil {
		return writeError(c, domain.NewValidationError("body", "invalid request body"))
	}
	if err := h.service.UpdateRunProgress(c.Request().Context(), c.Param("run_id"), req.CurrentTick); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"run_id":       c.Param("run_id"),
		"current_tick": req.CurrentTick,
	})
}

func workerTokenValid(c echo.Context) bool {
	return c.Request().Header.Get(WorkerTokenHeader) == c.Param("run_id")
}

// AppendKeyframe ingests one keyframe from the executing worker.
func (h *Handler) AppendKeyframe(c echo.Context) error {
	if !workerTokenValid(c) {
		return c.JSON(http.StatusForbidden, domain.ErrorResponse{Error: "worker token does not match run"})
	}
	var req domain.AppendKeyframeRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, domain.NewValidationError("body", "invalid request body"))
	}
	if err := h.service.AppendKeyframe(c.Request().Context(), c.Param("run_id"), req); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusAccepted, map[string]any{
		"run_id": c.Param("run_id"),
		"tick":   req.Tick,
	})
}

// AppendDeltas ingests a batch of deltas from the executing worker.
func (h *Handler) AppendDeltas(c echo.Context) error {
	if !workerTokenValid(c) {
		return c.JSON(http.StatusForbidden, domain.ErrorResponse{Error: "worker token does not match run"})
	}
	var req domain.AppendDeltasRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, domain.NewValidationError("body", "invalid request body"))
	}
	if err := h.service.AppendDeltas(c.Request().Context(), c.Param("run_id"), req); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusAccepted, map[string]any{
		"run_id":   c.Param("run_id"),
		"accepted": len(req.Deltas),
	})
}

// CompleteRun moves a run to a terminal state and seals its telemetry.
func (h *Handler) CompleteRun(c echo.Context) error {
	var req domain.CompleteRunRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, domain.NewValidationError("body", "invalid request body"))
	}
	run, err := h.service.CompleteRun(c.Request().Context(), c.Param("run_id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, run)
}

// GetTelemetryMeta returns the telemetry header for a run.
func (h *Handler) GetTelemetryMeta(c echo.Context) error {
	meta, err := h.service.GetTelemetryMeta(c.Request().Context(), c.Param("run_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, meta)
}

// CreateBaseline registers a project's root node.
func (h *Handler) CreateBaseline(c echo.Context) error {
	var req struct {
		TelemetryRef string `json:"telemetry_ref"`
		ResultsRef   string `json:"results_ref"`
		StateRef     string `json:"state_ref"`
	}
	if err := c.Bind(&req); err != nil {
		return writeError(c, domain.NewValidationError("body", "invalid request body"))
	}
	node, err := h.service.CreateBaseline(c.Request().Context(), c.Param("project_id"),
		req.TelemetryRef, req.ResultsRef, req.StateRef)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, node)
}

func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, domain.ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrSealed):
		return c.JSON(http.StatusConflict, domain.ErrorResponse{Error: err.Error()})
	case domain.IsValidation(err):
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return c.JSON(http.StatusConflict, domain.ErrorResponse{Error: err.Error(), Retryable: true})
	default:
		return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Error: err.Error()})
	}
}
