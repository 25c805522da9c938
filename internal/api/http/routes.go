package http

import (
	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/Orchestrator/backend/internal/host"
)

// Register mounts the API on router. Metrics and health stay reachable
// while the instance is not ready; everything else answers 503.
func Register(router gin.IRouter, inst *host.Instance) {
	h := NewHandlers(inst)
	m := NewMetricsHandlers(inst.Metrics())

	router.GET("/health", h.Health)
	router.GET("/metrics", m.Prometheus())

	ready := router.Group("/", h.RequireReady())
	ready.GET("/api/items", h.ListItems)
	ready.GET("/api/metrics", m.Snapshot)
	ready.POST("/api/items", h.CreateItem)
	ready.POST("/api/build/*item", h.TriggerBuild)
	ready.POST("/api/log/:number/*item", h.AppendLog)
	ready.POST("/api/reload", h.Reload)
	ready.POST("/api/reload/*item", h.ReloadItem)
	ready.GET("/job/*path", h.ResolveItem)
}
