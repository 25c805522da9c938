package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/Orchestrator/backend/internal/infrastructure/monitoring"
)

// MetricsHandlers exposes the host metrics.
type MetricsHandlers struct {
	metrics *monitoring.Metrics
}

// NewMetricsHandlers creates the metrics endpoints.
func NewMetricsHandlers(metrics *monitoring.Metrics) *MetricsHandlers {
	return &MetricsHandlers{metrics: metrics}
}

// Prometheus serves the text exposition format.
func (m *MetricsHandlers) Prometheus() gin.HandlerFunc {
	return gin.WrapH(m.metrics.Handler())
}

// Snapshot serves a JSON summary of the counters.
func (m *MetricsHandlers) Snapshot(c *gin.Context) {
	c.JSON(http.StatusOK, m.metrics.Snapshot())
}
