package handlers

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/waddythomson/buwa-crm/internal/metrics"
)

// MetricsHandler exposes the Prometheus registry on GET /metrics.
type MetricsHandler struct {
	gatherer prometheus.Gatherer
}

func NewMetricsHandler(g prometheus.Gatherer) *MetricsHandler {
	return &MetricsHandler{gatherer: g}
}

func (h *MetricsHandler) Register(e *echo.Echo) {
	e.GET("/metrics", echo.WrapHandler(metrics.Handler(h.gatherer)))
}
