package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/workautomate224-lang/agentverse-sub002/internal/domain"
)

// GetNode returns a node by ID.
func (h *Handler) GetNode(c echo.Context) error {
	node, err := h.service.GetNode(c.Request().Context(), c.Param("node_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, node)
}

// Fork creates an immutable child node under the parent.
func (h *Handler) Fork(c echo.Context) error {
	var req domain.ForkRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, domain.NewValidationError("body", "invalid request body"))
	}
	node, err := h.service.Fork(c.Request().Context(), c.Param("node_id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, node)
}

// NormalizeSiblings rescales the probability vector of a parent's children.
func (h *Handler) NormalizeSiblings(c echo.Context) error {
	resp, err := h.service.NormalizeSiblings(c.Request().Context(), c.Param("node_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// VerifyConsistency scans a project's sibling groups read-only.
func (h *Handler) VerifyConsistency(c echo.Context) error {
	report, err := h.service.VerifyConsistency(c.Request().Context(), c.Param("project_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}
