// Package http provides the HTTP server implementations for the trust core.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/workautomate224-lang/agentverse-sub002/internal/service"
	"github.com/workautomate224-lang/agentverse-sub002/internal/transport/http/internalapi"
	v1 "github.com/workautomate224-lang/agentverse-sub002/internal/transport/http/v1"
)

// NewExternalServer creates the dashboard-facing HTTP server: replay,
// reliability, statistics, determinism and graph queries, plus the two
// graph write operations.
func NewExternalServer(svc *service.Service, registry *prometheus.Registry) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	v1Handler := v1.NewHandler(svc)
	v1Handler.RegisterRoutes(e)

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return e
}

// NewInternalServer creates the worker-facing HTTP server handling run
// lifecycle and telemetry ingestion.
func NewInternalServer(svc *service.Service) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	internalHandler := internalapi.NewHandler(svc)
	internalHandler.RegisterRoutes(e)

	return e
}
